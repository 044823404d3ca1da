package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

const sessionColumns = `session_id, token_hash, user_id, created_at, expires_at, last_used_at, user_agent, host(ip_address)`

// SessionStore implements store.SessionStore using PostgreSQL. Only the token
// hash is stored, never the cookie value.
type SessionStore struct {
	db      querier
	timeout time.Duration
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastUsedAt.IsZero() {
		session.LastUsedAt = now
	}

	args := pgx.NamedArgs{
		"session_id":   session.SessionID,
		"token_hash":   session.TokenHash,
		"user_id":      session.UserID,
		"created_at":   session.CreatedAt,
		"expires_at":   session.ExpiresAt,
		"last_used_at": session.LastUsedAt,
		"user_agent":   session.UserAgent,
		"ip_address":   nullIfEmpty(session.IPAddress),
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (session_id, token_hash, user_id, created_at, expires_at, last_used_at, user_agent, ip_address)
		VALUES (@session_id, @token_hash, @user_id, @created_at, @expires_at, @last_used_at, @user_agent, @ip_address::inet)
	`, args)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", mapPostgresError(err))
	}

	log.Debug().Stringer("session_id", session.SessionID).Str("user_id", session.UserID).Msg("Created session")
	return nil
}

// GetByTokenHash returns ErrSessionExpired for a row past its expiry, which
// the sweeper has not removed yet.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, tokenHash)
	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, store.ErrSessionExpired
	}
	return session, nil
}

// Touch records a use. A shorter expiresAt than the stored one is ignored.
func (s *SessionStore) Touch(ctx context.Context, sessionID uuid.UUID, usedAt, expiresAt time.Time) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET last_used_at = $2, expires_at = GREATEST(expires_at, $3)
		WHERE session_id = $1
	`, sessionID, usedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	n, err := s.deleteWhere(ctx, `session_id = $1`, sessionID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}

	log.Debug().Stringer("session_id", sessionID).Msg("Deleted session")
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	n, err := s.deleteWhere(ctx, `user_id = $1`, userID)
	if err != nil {
		return 0, err
	}

	log.Info().Str("user_id", userID).Int("count", n).Msg("Deleted all sessions for user")
	return n, nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	n, err := s.deleteWhere(ctx, `expires_at <= $1`, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("Deleted expired sessions")
	}
	return n, nil
}

func (s *SessionStore) deleteWhere(ctx context.Context, cond string, arg any) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE `+cond, arg)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", mapPostgresError(err))
	}
	return int(tag.RowsAffected()), nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		session models.Session
		ip      *string
	)
	err := row.Scan(
		&session.SessionID,
		&session.TokenHash,
		&session.UserID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastUsedAt,
		&session.UserAgent,
		&ip,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", mapPostgresError(err))
	}
	if ip != nil {
		session.IPAddress = *ip
	}
	return &session, nil
}

// nullIfEmpty maps "" to NULL for columns such as inet that reject empty strings.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
