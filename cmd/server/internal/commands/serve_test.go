package commands

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/login"
	"github.com/wolfeidau/tenancy/internal/rpc"
	"github.com/wolfeidau/tenancy/internal/server"
	"github.com/wolfeidau/tenancy/internal/store/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	st := memory.NewStore()
	eng := engine.New(st)

	tokens, err := auth.NewTokenSigner([]byte("serve-test-secret-at-least-32-bytes"), "", 0)
	require.NoError(t, err)

	loginSvc, err := login.New(st.Users(), st.Sessions(), eng, tokens, login.Config{})
	require.NoError(t, err)

	cmd := &ServeCmd{CORSOrigins: []string{"http://localhost:3000"}}
	handler, err := cmd.handler(zerolog.Nop(), loginSvc, server.NewServer(eng, auth.NewAuthFunc(tokens, loginSvc)), nil)
	require.NoError(t, err)
	return handler
}

func TestHandler_Health(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_CORS(t *testing.T) {
	handler := newTestHandler(t)

	r := httptest.NewRequest(http.MethodOptions, rpc.ListOrganizationsProcedure, nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	r.Header.Set("Access-Control-Request-Headers", "authorization,content-type")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodOptions, rpc.ListOrganizationsProcedure, nil)
	r.Header.Set("Origin", "https://evil.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_CSRF(t *testing.T) {
	handler := newTestHandler(t)
	body := `{"email":"ada@example.com","password":"analytical1"}`

	tests := []struct {
		name      string
		origin    string
		forbidden bool
	}{
		{name: "cross site", origin: "https://evil.example", forbidden: true},
		{name: "trusted origin", origin: "http://localhost:3000", forbidden: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/email", strings.NewReader(body))
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("Origin", tt.origin)
			r.Header.Set("Sec-Fetch-Site", "cross-site")

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if tt.forbidden {
				require.Equal(t, http.StatusForbidden, w.Code)
				return
			}
			// passes CSRF and reaches the handler, which rejects the unknown user
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	t.Run("non browser clients", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in/email", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
