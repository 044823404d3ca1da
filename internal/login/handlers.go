package login

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/auth"
	httpmiddleware "github.com/wolfeidau/tenancy/internal/http"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxBodyBytes = 64 * 1024

// Routes registers the identity endpoints under /api/auth/ on mux.
func (s *Service) Routes(mux *http.ServeMux) {
	limited := httpmiddleware.RateLimit(s.limiter, func(r *http.Request) {
		s.metrics.RateLimitedTotal.Add(r.Context(), 1)
	})

	mux.HandleFunc("POST /api/auth/sign-up/email", s.SignUpEmailHandler)
	mux.Handle("POST /api/auth/sign-in/email", limited(http.HandlerFunc(s.SignInEmailHandler)))
	mux.HandleFunc("POST /api/auth/sign-out", s.SignOutHandler)
	mux.HandleFunc("POST /api/auth/revoke-sessions", s.RevokeSessionsHandler)
	mux.HandleFunc("GET /api/auth/session", s.SessionHandler)
	mux.HandleFunc("POST /api/auth/token", s.TokenHandler)
	mux.HandleFunc("GET /api/auth/sign-in/github", s.GitHubLoginHandler)
	mux.HandleFunc("GET /api/auth/callback/github", s.GitHubCallbackHandler)
}

type signUpRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,max=128,containsany=0123456789"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse is the public view of a session. The token never leaves the cookie.
type SessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponse is returned by sign up, sign in and the session endpoint.
type AuthResponse struct {
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// TokenResponse carries a short lived bearer token for API clients.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func newAuthResponse(user *models.User, session *models.Session) AuthResponse {
	return AuthResponse{
		User: UserResponse{
			ID:        user.UserID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
			CreatedAt: user.CreatedAt,
		},
		Session: SessionResponse{
			ID:        session.SessionID.String(),
			UserID:    session.UserID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		},
	}
}

// SignUpEmailHandler registers a user with email and password and signs them in.
func (s *Service) SignUpEmailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signUpRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := s.RegisterWithPassword(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationError(w, err)
		case errors.Is(err, ErrEmailTaken):
			writeError(w, http.StatusConflict, "user_already_exists", "a user with this email already exists")
		default:
			log.Error().Err(err).Msg("Failed to register user")
			writeError(w, http.StatusInternalServerError, "internal", "failed to register user")
		}
		return
	}

	s.startSession(w, r, user, http.StatusCreated)
}

// SignInEmailHandler signs a user in with email and password. Unknown emails
// and wrong passwords get the same response.
func (s *Service) SignInEmailHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signInRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = models.NormalizeEmail(req.Email)

	if err := validateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		burnPasswordCheck(req.Password)
	case err != nil:
		log.Error().Err(err).Msg("Failed to load user")
		writeError(w, http.StatusInternalServerError, "internal", "failed to sign in")
		return
	case user.PasswordHash == "":
		burnPasswordCheck(req.Password)
		err = ErrInvalidCredentials
	case !VerifyPassword(req.Password, user.PasswordHash):
		err = ErrInvalidCredentials
	}
	if err != nil {
		s.metrics.SignInsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", "email"), attribute.String("result", "failure")))
		log.Debug().Err(err).Msg("Email sign in rejected")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", ErrInvalidCredentials.Error())
		return
	}

	s.metrics.SignInsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", "email"), attribute.String("result", "success")))

	s.startSession(w, r, user, http.StatusOK)
}

func (s *Service) startSession(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, session, err := s.createSession(r.Context(), user.UserID, r.UserAgent(), requestIP(r))
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}

	s.setSessionCookie(w, token)
	writeJSON(w, status, newAuthResponse(user, session))
}

// SignOutHandler deletes the caller's session and clears the cookie.
func (s *Service) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		session, _, err := s.lookupSession(r.Context(), cookie.Value)
		if err == nil {
			if err := s.sessions.Delete(r.Context(), session.SessionID); err != nil {
				log.Error().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to delete session")
				writeError(w, http.StatusInternalServerError, "internal", "failed to sign out")
				return
			}
			log.Info().Str("user_id", session.UserID).Msg("User signed out")
		}
	}

	s.clearCookie(w, auth.SessionCookieName)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RevokeSessionsHandler signs the caller out of every session they hold,
// including the current one.
func (s *Service) RevokeSessionsHandler(w http.ResponseWriter, r *http.Request) {
	_, session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if session == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "a valid session is required")
		return
	}

	n, err := s.sessions.DeleteByUser(r.Context(), session.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to revoke sessions")
		writeError(w, http.StatusInternalServerError, "internal", "failed to revoke sessions")
		return
	}

	log.Info().Str("user_id", session.UserID).Int("sessions", n).Msg("Revoked all sessions")

	s.clearCookie(w, auth.SessionCookieName)
	writeJSON(w, http.StatusOK, revokeSessionsResponse{Success: true, Revoked: n})
}

type revokeSessionsResponse struct {
	Success bool `json:"success"`
	Revoked int  `json:"revoked"`
}

// SessionHandler returns the caller's user and session, or JSON null when
// the caller has no valid session.
func (s *Service) SessionHandler(w http.ResponseWriter, r *http.Request) {
	user, session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(user, session))
}

// TokenHandler exchanges a valid session for a short lived bearer token.
func (s *Service) TokenHandler(w http.ResponseWriter, r *http.Request) {
	user, session, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}
	if session == nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "a valid session is required")
		return
	}

	token, expiresAt, err := s.tokens.Issue(user.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to issue token")
		writeError(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	log.Info().Str("user_id", user.UserID).Time("expires_at", expiresAt).Msg("Issued API token")

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// sessionFromRequest resolves the session cookie. A nil session with ok=true
// means the caller is anonymous; ok=false means an error response was written.
func (s *Service) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*models.User, *models.Session, bool) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return nil, nil, true
	}

	session, refreshed, err := s.lookupSession(r.Context(), cookie.Value)
	if errors.Is(err, ErrInvalidSession) {
		s.clearCookie(w, auth.SessionCookieName)
		return nil, nil, true
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve session")
		writeError(w, http.StatusInternalServerError, "internal", "failed to resolve session")
		return nil, nil, false
	}
	if refreshed {
		s.setSessionCookie(w, cookie.Value)
	}

	user, err := s.users.Get(r.Context(), session.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID).Msg("Session user not found")
		return nil, nil, true
	}

	return user, session, true
}

func (s *Service) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
}

func (s *Service) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func requestIP(r *http.Request) string {
	if ip := httpmiddleware.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return httpmiddleware.RemoteIP(r)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object")
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_failed",
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
