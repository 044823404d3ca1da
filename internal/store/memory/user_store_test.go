package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create normalizes email", func(t *testing.T) {
		st := NewUserStore()
		user := &models.User{UserID: "u1", Name: "Alice", Email: "  Alice@Example.COM "}
		require.NoError(t, st.Create(ctx, user))

		got, err := st.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)
		require.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		st := NewUserStore()
		require.NoError(t, st.Create(ctx, &models.User{UserID: "u1", Email: "a@example.com"}))
		err := st.Create(ctx, &models.User{UserID: "u2", Email: "A@example.com"})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)
	})

	t.Run("github lookup", func(t *testing.T) {
		st := NewUserStore()
		ghID := "12345"
		require.NoError(t, st.Create(ctx, &models.User{UserID: "u1", Email: "a@example.com", GitHubID: &ghID}))

		got, err := st.GetByGitHubID(ctx, "12345")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)

		_, err = st.GetByGitHubID(ctx, "999")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("update reindexes", func(t *testing.T) {
		st := NewUserStore()
		require.NoError(t, st.Create(ctx, &models.User{UserID: "u1", Email: "old@example.com"}))

		user, err := st.Get(ctx, "u1")
		require.NoError(t, err)
		user.Email = "new@example.com"
		user.AvatarURL = "https://example.com/a.png"
		require.NoError(t, st.Update(ctx, user))

		_, err = st.GetByEmail(ctx, "old@example.com")
		require.ErrorIs(t, err, store.ErrUserNotFound)

		got, err := st.GetByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		require.Equal(t, "https://example.com/a.png", got.AvatarURL)

		require.ErrorIs(t, st.Update(ctx, &models.User{UserID: "missing"}), store.ErrUserNotFound)
	})
}
