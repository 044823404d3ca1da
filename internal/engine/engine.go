package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
	"github.com/wolfeidau/tenancy/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Engine enforces roles and lifecycle rules for organizations, memberships
// and projects. It holds no state between calls; every operation runs in a
// single store transaction.
type Engine struct {
	store   store.Store
	now     func() time.Time
	metrics *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for timestamps and organization slugs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over the given store.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		now:     time.Now,
		metrics: telemetry.GetMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// authorize loads the caller's membership inside tx and checks it against op.
func (e *Engine) authorize(ctx context.Context, tx store.Tx, callerID string, orgID uuid.UUID, op auth.Operation) (*models.Membership, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	membership, err := tx.Memberships().Get(ctx, orgID, callerID)
	if err != nil {
		if !errors.Is(err, store.ErrMembershipNotFound) {
			return nil, fmt.Errorf("failed to load membership: %w", err)
		}
		membership = nil
	}

	decision := auth.Authorize(membership, op)
	if decision.Allowed {
		return membership, nil
	}

	e.metrics.AuthzDenialsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", string(op)),
		attribute.String("reason", decision.Reason.String()),
	))

	zerolog.Ctx(ctx).Debug().
		Str("caller_id", callerID).
		Str("org_id", orgID.String()).
		Str("operation", string(op)).
		Stringer("reason", decision.Reason).
		Msg("Authorization denied")

	if decision.Reason == auth.ReasonNotAMember {
		return nil, fmt.Errorf("%w: %s", ErrNotAMember, orgID)
	}
	return nil, fmt.Errorf("%w: %s requires %s", ErrInsufficientRole, op, auth.RequiredRoles[op])
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

func newID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate id: %w", err)
	}
	return id, nil
}

// requireName trims a display name and rejects blank values.
func requireName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidArgument, field)
	}
	return name, nil
}

// normalizeDescription trims an optional description; blank clears it.
func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
