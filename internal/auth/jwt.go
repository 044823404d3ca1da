package auth

import (
	"context"
	"strings"

	"connectrpc.com/authn"
	"github.com/rs/zerolog/log"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "tenancy_session"

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID string
	Method string // "token" or "session"
}

// SessionResolver maps a session cookie token to the user it belongs to.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (userID string, err error)
}

// NewAuthFunc returns an authn.AuthFunc resolving the caller from a Bearer JWT
// or, when no Authorization header is present, the session cookie.
// An invalid bearer token never falls back to the cookie.
// On success the *Caller can be retrieved via CallerFromContext(ctx).
func NewAuthFunc(tokens *TokenSigner, sessions SessionResolver) authn.AuthFunc {
	return func(ctx context.Context, req authn.Request) (any, error) {
		if header := req.Header().Get("Authorization"); header != "" {
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				return nil, authn.Errorf("invalid authorization header")
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("JWT verification failed")
				return nil, authn.Errorf("invalid token")
			}

			return &Caller{UserID: userID, Method: "token"}, nil
		}

		cookie, err := req.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			return nil, authn.Errorf("not authenticated")
		}

		userID, err := sessions.ResolveSession(ctx, cookie.Value)
		if err != nil {
			log.Debug().Err(err).Msg("Session resolution failed")
			return nil, authn.Errorf("invalid session")
		}

		return &Caller{UserID: userID, Method: "session"}, nil
	}
}

// CallerFromContext returns the caller stored by the authn middleware.
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := authn.GetInfo(ctx).(*Caller)
	return caller, ok && caller != nil
}

// WithCaller stores a caller in ctx the same way the authn middleware does.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return authn.SetInfo(ctx, caller)
}
