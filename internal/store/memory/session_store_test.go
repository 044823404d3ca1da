package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

func newTestSession(userID, hash string, expiresIn time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		SessionID:  uuid.Must(uuid.NewV7()),
		TokenHash:  hash,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(expiresIn),
		LastUsedAt: now,
	}
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("get by token hash", func(t *testing.T) {
		st := NewSessionStore()
		session := newTestSession("u1", "hash-1", time.Hour)
		require.NoError(t, st.Create(ctx, session))

		got, err := st.GetByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, session.SessionID, got.SessionID)

		_, err = st.GetByTokenHash(ctx, "missing")
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("touch", func(t *testing.T) {
		st := NewSessionStore()
		session := newTestSession("u1", "hash-1", time.Hour)
		require.NoError(t, st.Create(ctx, session))

		used := time.Now().Add(time.Minute)
		extended := session.ExpiresAt.Add(time.Hour)
		require.NoError(t, st.Touch(ctx, session.SessionID, used, extended))
		require.NoError(t, st.Touch(ctx, session.SessionID, used, session.ExpiresAt))

		got, err := st.GetByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, used, got.LastUsedAt)
		require.Equal(t, extended, got.ExpiresAt)

		require.ErrorIs(t, st.Touch(ctx, uuid.Must(uuid.NewV7()), used, extended), store.ErrSessionNotFound)
	})

	t.Run("expired session", func(t *testing.T) {
		st := NewSessionStore()
		require.NoError(t, st.Create(ctx, newTestSession("u1", "hash-1", -time.Minute)))

		_, err := st.GetByTokenHash(ctx, "hash-1")
		require.ErrorIs(t, err, store.ErrSessionExpired)

		n, err := st.DeleteExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		_, err = st.GetByTokenHash(ctx, "hash-1")
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("delete by user", func(t *testing.T) {
		st := NewSessionStore()
		require.NoError(t, st.Create(ctx, newTestSession("u1", "hash-1", time.Hour)))
		require.NoError(t, st.Create(ctx, newTestSession("u1", "hash-2", time.Hour)))
		keep := newTestSession("u2", "hash-3", time.Hour)
		require.NoError(t, st.Create(ctx, keep))

		n, err := st.DeleteByUser(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t, 2, n)

		_, err = st.GetByTokenHash(ctx, "hash-2")
		require.ErrorIs(t, err, store.ErrSessionNotFound)

		require.NoError(t, st.Delete(ctx, keep.SessionID))
		require.ErrorIs(t, st.Delete(ctx, keep.SessionID), store.ErrSessionNotFound)
	})
}
