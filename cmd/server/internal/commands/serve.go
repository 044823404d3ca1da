package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	connectcors "connectrpc.com/cors"
	"connectrpc.com/otelconnect"
	"filippo.io/csrf"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/engine"
	httpmiddleware "github.com/wolfeidau/tenancy/internal/http"
	"github.com/wolfeidau/tenancy/internal/logger"
	"github.com/wolfeidau/tenancy/internal/login"
	"github.com/wolfeidau/tenancy/internal/rpc"
	"github.com/wolfeidau/tenancy/internal/server"
	"github.com/wolfeidau/tenancy/internal/telemetry"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TENANCY_LISTEN"`
	Cert   string `help:"path to TLS cert file, plaintext HTTP/2 when empty" default:"" env:"TENANCY_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TENANCY_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"TENANCY_CORS_ORIGINS"`

	// Reverse proxies allowed to set X-Forwarded-For
	TrustedProxies []string `help:"CIDRs or addresses of trusted reverse proxies" env:"TENANCY_TRUSTED_PROXIES"`

	// Token and session configuration
	TokenSecret      string        `help:"HMAC secret for bearer tokens, at least 32 bytes" required:"" env:"TENANCY_TOKEN_SECRET"`
	TokenTTL         time.Duration `help:"bearer token lifetime" default:"15m" env:"TENANCY_TOKEN_TTL"`
	SessionTTL       time.Duration `help:"session TTL" default:"168h" env:"TENANCY_SESSION_TTL"`
	SessionUpdateAge time.Duration `help:"session age after which use extends it by the TTL, negative disables" default:"24h" env:"TENANCY_SESSION_UPDATE_AGE"`
	SecureCookies    bool          `help:"mark session cookies Secure" default:"true" negatable:"" env:"TENANCY_SECURE_COOKIES"`
	FrontendURL      string        `help:"where to send the browser after GitHub sign in" default:"/" env:"TENANCY_FRONTEND_URL"`
	SweepInterval    time.Duration `help:"how often expired sessions are removed" default:"10m" env:"TENANCY_SWEEP_INTERVAL"`

	// Sign in throttling
	SignInPerMinute float64 `help:"email sign in attempts allowed per client IP per minute" default:"10" env:"TENANCY_SIGN_IN_PER_MINUTE"`
	SignInBurst     int     `help:"email sign in burst per client IP" default:"5" env:"TENANCY_SIGN_IN_BURST"`

	// GitHub OAuth configuration
	GitHubClientID     string `help:"GitHub client ID, GitHub sign in is disabled when empty" default:"" env:"TENANCY_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `help:"GitHub client secret" default:"" env:"TENANCY_GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `help:"GitHub callback URL" default:"" env:"TENANCY_GITHUB_CALLBACK_URL"`

	// Telemetry
	Tracing          bool          `help:"export traces over OTLP" default:"false" env:"TENANCY_TRACING"`
	TraceSampleRatio float64       `help:"fraction of root traces to record" default:"1" env:"TENANCY_TRACE_SAMPLE_RATIO"`
	Metrics          bool          `help:"export metrics over OTLP" default:"false" env:"TENANCY_METRICS"`
	MetricInterval   time.Duration `help:"metric export interval" default:"10s" env:"TENANCY_METRIC_INTERVAL"`

	Store StoreFlags `embed:""`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log, err := globals.setupLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("dev", globals.Dev).Msg("Starting server")

	interceptors := []connect.Interceptor{logger.NewRequestLogger(log)}
	telemetryCfg := telemetry.Config{
		ServiceName:    "tenancy-server",
		Version:        globals.Version,
		Traces:         c.Tracing,
		SampleRatio:    c.TraceSampleRatio,
		Metrics:        c.Metrics,
		MetricInterval: c.MetricInterval,
	}
	if telemetryCfg.Enabled() {
		shutdown, err := telemetry.InitTelemetry(ctx, telemetryCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
		otelInterceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			return fmt.Errorf("failed to create OTEL interceptor: %w", err)
		}
		interceptors = append(interceptors, otelInterceptor)
	}

	stores, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer stores.close()

	tokens, err := auth.NewTokenSigner([]byte(c.TokenSecret), auth.DefaultIssuer, c.TokenTTL)
	if err != nil {
		return err
	}

	eng := engine.New(stores.store)

	loginSvc, err := login.New(stores.users, stores.sessions, eng, tokens, login.Config{
		SessionTTL:       c.SessionTTL,
		SessionUpdateAge: c.SessionUpdateAge,
		SecureCookies:    c.SecureCookies,
		FrontendURL:      c.FrontendURL,
		SignInPerMinute:  c.SignInPerMinute,
		SignInBurst:      c.SignInBurst,
		GitHub: login.GitHubConfig{
			ClientID:     c.GitHubClientID,
			ClientSecret: c.GitHubClientSecret,
			CallbackURL:  c.GitHubCallbackURL,
		},
	})
	if err != nil {
		return err
	}
	if !c.SecureCookies {
		log.Warn().Msg("Session cookies are not marked Secure (--no-secure-cookies). This should only be used in development!")
	}

	go loginSvc.RunSessionSweeper(ctx, c.SweepInterval)

	handler, err := c.handler(log, loginSvc, server.NewServer(eng, auth.NewAuthFunc(tokens, loginSvc)), interceptors)
	if err != nil {
		return err
	}

	return c.listen(ctx, log, handler)
}

// handler assembles the routes: auth endpoints get CSRF protection, and both
// the auth endpoints and the RPC services get CORS.
func (c *ServeCmd) handler(log zerolog.Logger, loginSvc *login.Service, srv *server.Server, interceptors []connect.Interceptor) (http.Handler, error) {
	mux := http.NewServeMux()
	loginSvc.Routes(mux)
	srv.Register(mux, interceptors...)

	log.Info().
		Str("organizations", rpc.OrganizationServicePath).
		Str("projects", rpc.ProjectServicePath).
		Msg("RPC services registered")

	protection := csrf.New()
	for _, origin := range c.CORSOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid CORS origin %q: %w", origin, err)
		}
	}

	withCORS := newCORS(c.CORSOrigins)
	authRoutes := withCORS(protection.Handler(mux))
	rpcRoutes := withCORS(mux)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/auth/"):
			authRoutes.ServeHTTP(w, r)
		case isRPCRoute(r.URL.Path):
			rpcRoutes.ServeHTTP(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})

	clientIP, err := httpmiddleware.NewClientIP(c.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	return clientIP.Middleware(handler), nil
}

func (c *ServeCmd) listen(ctx context.Context, log zerolog.Logger, handler http.Handler) error {
	tlsEnabled := c.Cert != "" || c.Key != ""
	if tlsEnabled {
		if c.Cert == "" || c.Key == "" {
			return errors.New("both --cert and --key are required to enable TLS")
		}
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	} else {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", tlsEnabled).Msg("Starting HTTP server")
		if tlsEnabled {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func isRPCRoute(path string) bool {
	return strings.HasPrefix(path, rpc.OrganizationServicePath) ||
		strings.HasPrefix(path, rpc.ProjectServicePath)
}

// newCORS returns CORS middleware accepting Connect requests from allowedOrigins.
func newCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   connectcors.AllowedMethods(),
		AllowedHeaders:   append(connectcors.AllowedHeaders(), "Authorization"),
		ExposedHeaders:   connectcors.ExposedHeaders(),
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler
}
