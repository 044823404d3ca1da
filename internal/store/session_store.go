package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
)

// Sentinel errors for session store operations
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionStore manages server-side session state.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *models.Session) error

	// GetByTokenHash retrieves a session by the hash of its cookie token.
	// Returns ErrSessionNotFound or ErrSessionExpired.
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// Touch records a use of the session and stores its expiry, which the
	// caller may have extended.
	Touch(ctx context.Context, sessionID uuid.UUID, usedAt, expiresAt time.Time) error

	// Delete deletes a session by ID (logout).
	Delete(ctx context.Context, sessionID uuid.UUID) error

	// DeleteByUser deletes all sessions for a user (logout everywhere).
	DeleteByUser(ctx context.Context, userID string) (int, error)

	// DeleteExpired deletes all expired sessions (sweeper).
	DeleteExpired(ctx context.Context) (int, error)
}
