package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
)

// AuthInterceptor adds the stored bearer token to Connect RPC requests.
type AuthInterceptor struct {
	cred *Credential
	now  func() time.Time
}

// NewAuthInterceptor creates an interceptor for the named credential.
// credName is the credential to use (empty string uses default).
// server, when set, must match the server the credential was issued by.
func NewAuthInterceptor(store *Store, credName, server string) (*AuthInterceptor, error) {
	cred, err := store.Resolve(credName)
	if err != nil {
		if errors.Is(err, ErrNoDefaultCredential) {
			return nil, fmt.Errorf("no credential specified and no default set\n\n" +
				"Sign in first:\n" +
				"  tenancy login --email <email>")
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	if server != "" && strings.TrimRight(server, "/") != strings.TrimRight(cred.Server, "/") {
		return nil, fmt.Errorf("credential %q was issued by %s, not %s", cred.Name, cred.Server, server)
	}

	log.Debug().
		Str("credName", cred.Name).
		Str("server", cred.Server).
		Msg("initialized auth interceptor")

	return &AuthInterceptor{cred: cred, now: time.Now}, nil
}

// Server returns the server the credential belongs to.
func (i *AuthInterceptor) Server() string {
	return i.cred.Server
}

// WrapUnary implements connect.Interceptor.
func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if i.cred.Expired(i.now()) {
			return nil, connect.NewError(connect.CodeUnauthenticated,
				fmt.Errorf("%w: run tenancy login --name %s", ErrCredentialExpired, i.cred.Name))
		}
		req.Header().Set("Authorization", "Bearer "+i.cred.Token)
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set("Authorization", "Bearer "+i.cred.Token)
		return conn
	}
}

// WrapStreamingHandler is not used for client interceptors.
func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
