package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MemberRef identifies the user to add, by ID or by email address.
type MemberRef struct {
	UserID string
	Email  string
}

// AddMember grants a user a role in an organization. Requires owner.
func (e *Engine) AddMember(ctx context.Context, callerID string, orgID uuid.UUID, ref MemberRef, role models.Role) (*models.Member, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %s", ErrInvalidArgument, role)
	}
	if strings.TrimSpace(ref.UserID) == "" && strings.TrimSpace(ref.Email) == "" {
		return nil, fmt.Errorf("%w: user id or email is required", ErrInvalidArgument)
	}

	var member *models.Member
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpManageMembers); err != nil {
			return err
		}

		user, err := resolveUser(ctx, tx, ref)
		if err != nil {
			return err
		}

		// The unique constraint is the final arbiter, this only gives a clean error early.
		if _, err := tx.Memberships().Get(ctx, orgID, user.UserID); err == nil {
			return fmt.Errorf("%w: user %s in organization %s", ErrAlreadyMember, user.UserID, orgID)
		} else if !errors.Is(err, store.ErrMembershipNotFound) {
			return fmt.Errorf("failed to load membership: %w", err)
		}

		membership := models.Membership{
			OrgID:    orgID,
			UserID:   user.UserID,
			Role:     role,
			JoinedAt: e.timestamp(),
		}
		if err := tx.Memberships().Create(ctx, &membership); err != nil {
			if errors.Is(err, store.ErrMembershipAlreadyExists) {
				return fmt.Errorf("%w: user %s in organization %s", ErrAlreadyMember, user.UserID, orgID)
			}
			return fmt.Errorf("failed to create membership: %w", err)
		}

		member = &models.Member{
			Membership: membership,
			Name:       user.Name,
			Email:      user.Email,
			AvatarURL:  user.AvatarURL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordMembershipChange(ctx, "add")

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("user_id", member.UserID).
		Str("role", role.String()).
		Str("caller_id", callerID).
		Msg("Added member")

	return member, nil
}

func resolveUser(ctx context.Context, tx store.Tx, ref MemberRef) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if id := strings.TrimSpace(ref.UserID); id != "" {
		user, err = tx.Users().Get(ctx, id)
	} else {
		user, err = tx.Users().GetByEmail(ctx, models.NormalizeEmail(ref.Email))
	}
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateMemberRole changes the role of a member. Requires owner. Demoting the
// only owner fails with ErrLastOwner.
func (e *Engine) UpdateMemberRole(ctx context.Context, callerID string, orgID uuid.UUID, userID string, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %s", ErrInvalidArgument, role)
	}

	var updated *models.Membership
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		// Lock owners before reading any membership so the caller's role and
		// the owner count are read after concurrent owner changes commit.
		owners, err := tx.Memberships().LockOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to lock owners: %w", err)
		}

		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpManageMembers); err != nil {
			return err
		}

		target, err := tx.Memberships().Get(ctx, orgID, userID)
		if err != nil {
			return membershipError(err, userID)
		}

		if target.Role == models.RoleOwner && role != models.RoleOwner && !hasOtherOwner(owners, userID) {
			return e.lastOwner(ctx, orgID, userID)
		}

		updated, err = tx.Memberships().UpdateRole(ctx, orgID, userID, role)
		if err != nil {
			return membershipError(err, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordMembershipChange(ctx, "update_role")

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID).
		Str("role", role.String()).
		Str("caller_id", callerID).
		Msg("Updated member role")

	return updated, nil
}

// RemoveMember removes a user from an organization. Owners may remove anyone
// and every member may remove themself. Removing the only owner fails with
// ErrLastOwner.
func (e *Engine) RemoveMember(ctx context.Context, callerID string, orgID uuid.UUID, userID string) error {
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		owners, err := tx.Memberships().LockOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to lock owners: %w", err)
		}

		op := auth.OpManageMembers
		if callerID == userID {
			// leaving only requires membership
			op = auth.OpReadOrg
		}
		if _, err := e.authorize(ctx, tx, callerID, orgID, op); err != nil {
			return err
		}

		target, err := tx.Memberships().Get(ctx, orgID, userID)
		if err != nil {
			return membershipError(err, userID)
		}

		if target.Role == models.RoleOwner && !hasOtherOwner(owners, userID) {
			return e.lastOwner(ctx, orgID, userID)
		}

		if err := tx.Memberships().Delete(ctx, orgID, userID); err != nil {
			return membershipError(err, userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.recordMembershipChange(ctx, "remove")

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("user_id", userID).
		Str("caller_id", callerID).
		Msg("Removed member")

	return nil
}

// ListMembers returns the members of an organization, owners first then by name.
func (e *Engine) ListMembers(ctx context.Context, callerID string, orgID uuid.UUID) ([]*models.Member, error) {
	var members []*models.Member
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpListMembers); err != nil {
			return err
		}

		var err error
		members, err = tx.Memberships().ListByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func hasOtherOwner(owners []string, userID string) bool {
	return slices.ContainsFunc(owners, func(id string) bool { return id != userID })
}

func (e *Engine) lastOwner(ctx context.Context, orgID uuid.UUID, userID string) error {
	e.metrics.LastOwnerRejectionsTotal.Add(ctx, 1)
	return fmt.Errorf("%w: user %s is the only owner of organization %s", ErrLastOwner, userID, orgID)
}

func (e *Engine) recordMembershipChange(ctx context.Context, change string) {
	e.metrics.MembershipChangesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("change", change)))
}

func membershipError(err error, userID string) error {
	if errors.Is(err, store.ErrMembershipNotFound) {
		return fmt.Errorf("%w: member %s", ErrNotFound, userID)
	}
	return fmt.Errorf("member %s: %w", userID, err)
}
