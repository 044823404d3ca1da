package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

// Config selects the server the clients talk to.
type Config struct {
	ServerURL string
	Timeout   time.Duration
	// Debug logs every call with its procedure, outcome and duration.
	Debug bool
}

// Clients bundles the RPC clients with the cookie based auth client.
type Clients struct {
	Organizations rpc.OrganizationServiceClient
	Projects      rpc.ProjectServiceClient
	Auth          *AuthClient
}

func NewClients(config Config, opts ...connect.ClientOption) (*Clients, error) {
	baseURL, err := parseServerURL(config.ServerURL)
	if err != nil {
		return nil, err
	}

	if config.Debug {
		opts = append(opts, connect.WithInterceptors(callLogger()))
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	return &Clients{
		Organizations: rpc.NewOrganizationServiceClient(httpClient, baseURL, opts...),
		Projects:      rpc.NewProjectServiceClient(httpClient, baseURL, opts...),
		Auth:          NewAuthClient(baseURL, config.Timeout),
	}, nil
}

// callLogger runs innermost so it sees the headers added by other interceptors
// without logging their values.
func callLogger() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			event := log.Debug().
				Str("procedure", req.Spec().Procedure).
				Bool("authenticated", req.Header().Get("Authorization") != "").
				Dur("duration", time.Since(start))
			if err != nil {
				event = event.Stringer("code", connect.CodeOf(err)).Err(err)
			}
			event.Msg("rpc call")
			return resp, err
		}
	}
}

func parseServerURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// WithBearerToken sends token in the Authorization header of every unary call.
func WithBearerToken(token string) connect.ClientOption {
	return connect.WithInterceptors(connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}))
}
