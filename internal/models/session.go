package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server side sign in. The cookie carries a random token and the
// store keeps only its hash.
type Session struct {
	SessionID uuid.UUID // UUIDv7
	TokenHash string    // base58(sha256(token))
	UserID    string

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	UserAgent string
	IPAddress string
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Refresh slides the expiry to now+ttl once updateAge has passed since it was
// last set, and reports whether it moved. A zero updateAge disables sliding.
func (s *Session) Refresh(now time.Time, ttl, updateAge time.Duration) bool {
	if updateAge <= 0 {
		return false
	}
	lastSet := s.ExpiresAt.Add(-ttl)
	if now.Sub(lastSet) < updateAge {
		return false
	}
	s.ExpiresAt = now.Add(ttl)
	return true
}
