package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a map keyed by ID with a token hash index.
// Callers always receive copies.
type SessionStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.Session
	byHash map[string]uuid.UUID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:   make(map[uuid.UUID]*models.Session),
		byHash: make(map[string]uuid.UUID),
	}
}

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastUsedAt.IsZero() {
		session.LastUsedAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	s.byID[stored.SessionID] = &stored
	s.byHash[stored.TokenHash] = stored.SessionID
	return nil
}

func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byID[s.byHash[tokenHash]]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		return nil, store.ErrSessionExpired
	}

	out := *session
	return &out, nil
}

// Touch records a use. A shorter expiresAt than the stored one is ignored.
func (s *SessionStore) Touch(ctx context.Context, sessionID uuid.UUID, usedAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[sessionID]
	if !ok {
		return store.ErrSessionNotFound
	}

	session.LastUsedAt = usedAt
	if expiresAt.After(session.ExpiresAt) {
		session.ExpiresAt = expiresAt
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeWhere(func(session *models.Session) bool { return session.SessionID == sessionID }) == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeWhere(func(session *models.Session) bool { return session.UserID == userID }), nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeWhere(func(session *models.Session) bool { return session.Expired(now) }), nil
}

// removeWhere deletes matching sessions and their index entries. Caller holds s.mu.
func (s *SessionStore) removeWhere(match func(*models.Session) bool) int {
	n := 0
	for id, session := range s.byID {
		if !match(session) {
			continue
		}
		delete(s.byHash, session.TokenHash)
		delete(s.byID, id)
		n++
	}
	return n
}
