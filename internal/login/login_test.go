package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store/memory"
	"golang.org/x/oauth2"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type harness struct {
	st     *memory.Store
	eng    *engine.Engine
	svc    *Service
	tokens *auth.TokenSigner
	mux    *http.ServeMux
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	st := memory.NewStore()
	eng := engine.New(st)

	tokens, err := auth.NewTokenSigner(testSecret, "", 0)
	require.NoError(t, err)

	svc, err := New(st.Users(), st.Sessions(), eng, tokens, cfg)
	require.NoError(t, err)

	mux := http.NewServeMux()
	svc.Routes(mux)

	return &harness{st: st, eng: eng, svc: svc, tokens: tokens, mux: mux}
}

func (h *harness) do(t *testing.T, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(buf))
	} else {
		reader = strings.NewReader("")
	}

	r := httptest.NewRequest(method, target, reader)
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, r)
	return w
}

func (h *harness) signUp(t *testing.T, name, email, password string) (*http.Cookie, AuthResponse) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	cookie := cookieNamed(w, auth.SessionCookieName)
	require.NotNil(t, cookie)
	return cookie, resp
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	require.Equal(t, 168*time.Hour, cfg.SessionTTL)
	require.Equal(t, "/", cfg.FrontendURL)
	require.NoError(t, cfg.Validate())

	cfg.GitHub.ClientID = "client"
	require.Error(t, cfg.Validate())

	_, err := New(nil, nil, nil, nil, Config{})
	require.Error(t, err)
}

func TestSignUpEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions personal organization", func(t *testing.T) {
		h := newHarness(t, Config{})
		cookie, resp := h.signUp(t, "Ada Lovelace", " Ada@Example.com ", "analytical1")

		require.Equal(t, "ada@example.com", resp.User.Email)
		require.Equal(t, resp.User.ID, resp.Session.UserID)
		require.True(t, cookie.HttpOnly)

		orgs, err := h.eng.ListOrganizationsForUser(ctx, resp.User.ID)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		require.Equal(t, "Ada Lovelace's Organization", orgs[0].Name)
		require.Equal(t, models.RoleOwner, orgs[0].Role)

		projects, err := h.eng.ListProjectsForOrg(ctx, resp.User.ID, orgs[0].OrgID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		require.Equal(t, engine.DefaultProjectSlug, projects[0].Slug)

		user, err := h.st.Users().GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.NotEqual(t, "analytical1", user.PasswordHash)
		require.True(t, VerifyPassword("analytical1", user.PasswordHash))
	})

	t.Run("provisioning failure is swallowed", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.st.InjectFault("projects.create", errors.New("disk full"))

		_, resp := h.signUp(t, "Grace", "grace@example.com", "compiler1")

		h.st.ClearFaults()
		orgs, err := h.eng.ListOrganizationsForUser(ctx, resp.User.ID)
		require.NoError(t, err)
		require.Empty(t, orgs)

		w := h.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
			"email": "grace@example.com", "password": "compiler1",
		})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.signUp(t, "Ada", "ada@example.com", "analytical1")

		w := h.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]string{
			"name": "Imposter", "email": "ADA@example.com", "password": "analytical2",
		})
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, "user_already_exists", decodeError(t, w).Code)
	})

	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, Config{})
		tests := []struct {
			name    string
			body    map[string]string
			field   string
			message string
		}{
			{
				name:    "short password",
				body:    map[string]string{"name": "A", "email": "a@example.com", "password": "abc1"},
				field:   "password",
				message: "Password must be at least 8 characters",
			},
			{
				name:    "password without digit",
				body:    map[string]string{"name": "A", "email": "a@example.com", "password": "abcdefghij"},
				field:   "password",
				message: "Password must contain a number (0-9)",
			},
			{
				name:    "bad email",
				body:    map[string]string{"name": "A", "email": "not-an-email", "password": "abcdefgh1"},
				field:   "email",
				message: "email must be a valid email",
			},
			{
				name:    "blank name",
				body:    map[string]string{"name": "   ", "email": "a@example.com", "password": "abcdefgh1"},
				field:   "name",
				message: "name is required",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := h.do(t, http.MethodPost, "/api/auth/sign-up/email", tt.body)
				require.Equal(t, http.StatusBadRequest, w.Code)
				resp := decodeError(t, w)
				require.Equal(t, "validation_failed", resp.Code)
				require.Equal(t, tt.message, resp.Fields[tt.field])
			})
		}

		_, err := h.st.Users().GetByEmail(context.Background(), "a@example.com")
		require.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newHarness(t, Config{})
		w := h.do(t, http.MethodPost, "/api/auth/sign-up/email", map[string]any{"name": 1})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "invalid_request", decodeError(t, w).Code)
	})
}

func TestSignInEmail(t *testing.T) {
	h := newHarness(t, Config{SignInBurst: 100})
	h.signUp(t, "Ada", "ada@example.com", "analytical1")

	t.Run("success", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
			"email": "Ada@Example.com", "password": "analytical1",
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, cookieNamed(w, auth.SessionCookieName))
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := h.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
			"email": "ada@example.com", "password": "analytical2",
		})
		unknown := h.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
			"email": "nobody@example.com", "password": "analytical1",
		})
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, wrong.Body.String(), unknown.Body.String())
		require.Nil(t, cookieNamed(wrong, auth.SessionCookieName))
	})
}

func TestSignInEmail_rateLimited(t *testing.T) {
	h := newHarness(t, Config{SignInPerMinute: 1, SignInBurst: 2})

	body := map[string]string{"email": "nobody@example.com", "password": "whatever1"}
	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/auth/sign-in/email", body).Code)
	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/api/auth/sign-in/email", body).Code)
	require.Equal(t, http.StatusTooManyRequests, h.do(t, http.MethodPost, "/api/auth/sign-in/email", body).Code)

	// sign up is not throttled by the sign in bucket
	h.signUp(t, "Ada", "ada@example.com", "analytical1")
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t, Config{})

	t.Run("anonymous session is null", func(t *testing.T) {
		w := h.do(t, http.MethodGet, "/api/auth/session", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, "null", w.Body.String())

		w = h.do(t, http.MethodGet, "/api/auth/session", nil, &http.Cookie{Name: auth.SessionCookieName, Value: "bogus"})
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, "null", w.Body.String())
	})

	cookie, signedUp := h.signUp(t, "Ada", "ada@example.com", "analytical1")

	t.Run("session returns user", func(t *testing.T) {
		w := h.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, signedUp.User.ID, resp.User.ID)
		require.Equal(t, signedUp.Session.ID, resp.Session.ID)
	})

	t.Run("resolve session", func(t *testing.T) {
		userID, err := h.svc.ResolveSession(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.Equal(t, signedUp.User.ID, userID)

		_, err = h.svc.ResolveSession(context.Background(), "bogus")
		require.ErrorIs(t, err, ErrInvalidSession)

		_, err = h.svc.ResolveSession(context.Background(), "")
		require.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("token exchange", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/api/auth/token", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		w = h.do(t, http.MethodPost, "/api/auth/token", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		subject, err := h.tokens.Verify(resp.Token)
		require.NoError(t, err)
		require.Equal(t, signedUp.User.ID, subject)
		require.True(t, resp.ExpiresAt.After(time.Now()))
	})

	t.Run("sign out", func(t *testing.T) {
		w := h.do(t, http.MethodPost, "/api/auth/sign-out", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		cleared := cookieNamed(w, auth.SessionCookieName)
		require.NotNil(t, cleared)
		require.Empty(t, cleared.Value)

		_, err := h.svc.ResolveSession(context.Background(), cookie.Value)
		require.ErrorIs(t, err, ErrInvalidSession)

		w = h.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
		require.JSONEq(t, "null", w.Body.String())
	})
}

func TestSessionSliding(t *testing.T) {
	h := newHarness(t, Config{SessionTTL: 7 * 24 * time.Hour, SessionUpdateAge: 24 * time.Hour})
	cookie, _ := h.signUp(t, "Ada", "ada@example.com", "analytical1")

	w := h.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, cookieNamed(w, auth.SessionCookieName), "fresh session is not reissued")

	later := time.Now().Add(48 * time.Hour)
	h.svc.now = func() time.Time { return later }

	w = h.do(t, http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	reissued := cookieNamed(w, auth.SessionCookieName)
	require.NotNil(t, reissued)
	require.Equal(t, cookie.Value, reissued.Value)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), reissued.MaxAge)

	session, err := h.st.Sessions().GetByTokenHash(context.Background(), HashSessionToken(cookie.Value))
	require.NoError(t, err)
	require.WithinDuration(t, later.Add(7*24*time.Hour), session.ExpiresAt, time.Second)
	require.WithinDuration(t, later, session.LastUsedAt, time.Second)
}

func TestRevokeSessions(t *testing.T) {
	h := newHarness(t, Config{})
	first, _ := h.signUp(t, "Ada", "ada@example.com", "analytical1")

	w := h.do(t, http.MethodPost, "/api/auth/sign-in/email", map[string]string{
		"email": "ada@example.com", "password": "analytical1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := cookieNamed(w, auth.SessionCookieName)
	require.NotNil(t, second)

	w = h.do(t, http.MethodPost, "/api/auth/revoke-sessions", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/api/auth/revoke-sessions", nil, first)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"revoked":2}`, w.Body.String())

	cleared := cookieNamed(w, auth.SessionCookieName)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)

	for _, c := range []*http.Cookie{first, second} {
		_, err := h.svc.ResolveSession(context.Background(), c.Value)
		require.ErrorIs(t, err, ErrInvalidSession)
	}
}

func TestSweepExpiredSessions(t *testing.T) {
	h := newHarness(t, Config{SessionTTL: time.Hour})
	_, resp := h.signUp(t, "Ada", "ada@example.com", "analytical1")

	h.svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := h.svc.createSession(context.Background(), resp.User.ID, "test", "198.51.100.1")
	require.NoError(t, err)

	_, err = h.svc.ResolveSession(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidSession)

	require.Equal(t, 1, h.svc.SweepExpiredSessions(context.Background()))
	require.Equal(t, 0, h.svc.SweepExpiredSessions(context.Background()))
}

func TestNormalizeIP(t *testing.T) {
	require.Equal(t, "198.51.100.1", normalizeIP("198.51.100.1"))
	require.Equal(t, "2001:db8::1", normalizeIP("2001:db8::1"))
	require.Equal(t, "192.0.2.1", normalizeIP("::ffff:192.0.2.1"))
	require.Empty(t, normalizeIP("unknown"))
	require.Empty(t, normalizeIP("[2001:db8::1]"))
}

// fakeGitHub serves the OAuth token endpoint and the user API.
func fakeGitHub(t *testing.T, user GitHubUser, emails []githubEmail) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer","scope":"user:email"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(emails)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (h *harness) useGitHub(srv *httptest.Server) {
	h.svc.github = &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/api/auth/callback/github",
		Scopes:       []string{"read:user", "user:email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/login/oauth/authorize",
			TokenURL: srv.URL + "/login/oauth/access_token",
		},
	}
	h.svc.githubAPI = srv.URL
}

// githubSignIn runs the redirect and callback legs and returns the callback response.
func (h *harness) githubSignIn(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	start := h.do(t, http.MethodGet, "/api/auth/sign-in/github", nil)
	require.Equal(t, http.StatusFound, start.Code)

	stateCookie := cookieNamed(start, stateCookieName)
	require.NotNil(t, stateCookie)

	location, err := url.Parse(start.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, stateCookie.Value, location.Query().Get("state"))

	q := url.Values{"state": {stateCookie.Value}, "code": {"abc"}}
	return h.do(t, http.MethodGet, "/api/auth/callback/github?"+q.Encode(), nil, stateCookie)
}

func TestGitHubSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t, Config{})
		w := h.do(t, http.MethodGet, "/api/auth/sign-in/github", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("registers new user once", func(t *testing.T) {
		h := newHarness(t, Config{FrontendURL: "http://localhost:5173/"})
		srv := fakeGitHub(t,
			GitHubUser{ID: 42, Login: "octocat", AvatarURL: "https://avatars.example.com/42"},
			[]githubEmail{
				{Email: "old@example.com", Primary: false, Verified: true},
				{Email: "Octo@Example.com", Primary: true, Verified: true},
			},
		)
		h.useGitHub(srv)

		w := h.githubSignIn(t)
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "http://localhost:5173/", w.Header().Get("Location"))
		require.NotNil(t, cookieNamed(w, auth.SessionCookieName))

		user, err := h.st.Users().GetByGitHubID(ctx, "42")
		require.NoError(t, err)
		require.Equal(t, "octocat", user.Name)
		require.Equal(t, "octo@example.com", user.Email)
		require.Empty(t, user.PasswordHash)

		w = h.githubSignIn(t)
		require.Equal(t, http.StatusFound, w.Code)

		orgs, err := h.eng.ListOrganizationsForUser(ctx, user.UserID)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		require.Equal(t, "octocat's Organization", orgs[0].Name)
	})

	t.Run("links existing email account", func(t *testing.T) {
		h := newHarness(t, Config{})
		_, resp := h.signUp(t, "Octo", "octo@example.com", "password1")

		srv := fakeGitHub(t, GitHubUser{ID: 7, Login: "octo", Name: "Octo Cat", Email: "octo@example.com"}, nil)
		h.useGitHub(srv)

		w := h.githubSignIn(t)
		require.Equal(t, http.StatusFound, w.Code)

		user, err := h.st.Users().GetByGitHubID(ctx, "7")
		require.NoError(t, err)
		require.Equal(t, resp.User.ID, user.UserID)
		require.Equal(t, "Octo", user.Name)
	})

	t.Run("state mismatch", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.useGitHub(fakeGitHub(t, GitHubUser{ID: 1, Login: "x", Email: "x@example.com"}, nil))

		q := url.Values{"state": {"forged"}, "code": {"abc"}}
		w := h.do(t, http.MethodGet, "/api/auth/callback/github?"+q.Encode(), nil,
			&http.Cookie{Name: stateCookieName, Value: "expected"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Nil(t, cookieNamed(w, auth.SessionCookieName))
	})

	t.Run("no verified email", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.useGitHub(fakeGitHub(t,
			GitHubUser{ID: 9, Login: "ghost"},
			[]githubEmail{{Email: "ghost@example.com", Primary: true, Verified: false}},
		))

		w := h.githubSignIn(t)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
