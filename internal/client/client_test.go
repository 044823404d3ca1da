package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/login"
	"github.com/wolfeidau/tenancy/internal/rpc"
	"github.com/wolfeidau/tenancy/internal/server"
	"github.com/wolfeidau/tenancy/internal/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memory.NewStore()
	eng := engine.New(st)

	tokens, err := auth.NewTokenSigner([]byte("client-test-secret-at-least-32-bytes"), "", 0)
	require.NoError(t, err)

	svc, err := login.New(st.Users(), st.Sessions(), eng, tokens, login.Config{})
	require.NoError(t, err)

	mux := http.NewServeMux()
	svc.Routes(mux)
	server.NewServer(eng, auth.NewAuthFunc(tokens, svc)).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClients_invalidURL(t *testing.T) {
	for _, raw := range []string{"localhost:8080", "ftp://example.com", "http://", "::"} {
		_, err := NewClients(Config{ServerURL: raw})
		require.Error(t, err, raw)
	}
}

func TestSignUpAndCallAPI(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	clients, err := NewClients(Config{ServerURL: srv.URL + "/", Timeout: 10 * time.Second})
	require.NoError(t, err)

	result, err := clients.Auth.SignUp(ctx, "Ada Lovelace", "ada@example.com", "analytical1")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", result.User.Email)
	require.NotEmpty(t, result.Token.Token)
	require.True(t, result.Token.ExpiresAt.After(time.Now()))

	t.Run("anonymous calls are rejected", func(t *testing.T) {
		_, err := clients.Organizations.ListOrganizations(ctx, connect.NewRequest(&rpc.ListOrganizationsRequest{}))
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	authed, err := NewClients(Config{ServerURL: srv.URL, Timeout: 10 * time.Second, Debug: true}, WithBearerToken(result.Token.Token))
	require.NoError(t, err)

	orgs, err := authed.Organizations.ListOrganizations(ctx, connect.NewRequest(&rpc.ListOrganizationsRequest{}))
	require.NoError(t, err)
	require.Len(t, orgs.Msg.Organizations, 1)
	require.Equal(t, "Ada Lovelace's Organization", orgs.Msg.Organizations[0].Name)
	require.Equal(t, "owner", orgs.Msg.Organizations[0].Role)

	projects, err := authed.Projects.ListProjects(ctx, connect.NewRequest(&rpc.ListProjectsRequest{OrgID: orgs.Msg.Organizations[0].ID}))
	require.NoError(t, err)
	require.Len(t, projects.Msg.Projects, 1)
	require.Equal(t, "default", projects.Msg.Projects[0].Slug)

	t.Run("sign in issues a new token", func(t *testing.T) {
		again, err := clients.Auth.SignIn(ctx, "ADA@example.com", "analytical1")
		require.NoError(t, err)
		require.Equal(t, result.User.ID, again.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := clients.Auth.SignIn(ctx, "ada@example.com", "wrong-password1")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
		require.Equal(t, "invalid_credentials", apiErr.Code)
	})

	t.Run("duplicate sign up", func(t *testing.T) {
		_, err := clients.Auth.SignUp(ctx, "Ada", "ada@example.com", "analytical1")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.Status)
	})
}
