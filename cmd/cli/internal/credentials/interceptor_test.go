package credentials

import (
	"context"
	"net/http"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	connect.AnyRequest
	header http.Header
}

func (r fakeRequest) Header() http.Header { return r.header }

func newStoreWith(t *testing.T, creds ...Credential) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	for _, cred := range creds {
		_, err := store.Save(cred)
		require.NoError(t, err)
	}
	return store
}

func TestNewAuthInterceptor(t *testing.T) {
	store := newStoreWith(t, Credential{Name: "local", Server: "http://localhost:8080/", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)})

	t.Run("uses default", func(t *testing.T) {
		interceptor, err := NewAuthInterceptor(store, "", "")
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/", interceptor.Server())
	})

	t.Run("server must match", func(t *testing.T) {
		_, err := NewAuthInterceptor(store, "local", "http://localhost:8080")
		require.NoError(t, err)

		_, err = NewAuthInterceptor(store, "local", "https://other.example.com")
		require.Error(t, err)
	})

	t.Run("unknown credential", func(t *testing.T) {
		_, err := NewAuthInterceptor(store, "missing", "")
		require.ErrorIs(t, err, ErrCredentialNotFound)
	})

	t.Run("no default", func(t *testing.T) {
		_, err := NewAuthInterceptor(newStoreWith(t), "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenancy login")
	})
}

func TestAuthInterceptor_WrapUnary(t *testing.T) {
	now := time.Now()
	store := newStoreWith(t, Credential{Name: "local", Server: "http://localhost:8080", Token: "tok", ExpiresAt: now.Add(time.Hour)})

	interceptor, err := NewAuthInterceptor(store, "local", "")
	require.NoError(t, err)

	var seen string
	call := interceptor.WrapUnary(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		seen = req.Header().Get("Authorization")
		return nil, nil
	})

	_, err = call(context.Background(), fakeRequest{header: http.Header{}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", seen)

	interceptor.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = call(context.Background(), fakeRequest{header: http.Header{}})
	require.ErrorIs(t, err, ErrCredentialExpired)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
