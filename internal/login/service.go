package login

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/auth"
	httpmiddleware "github.com/wolfeidau/tenancy/internal/http"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
	"github.com/wolfeidau/tenancy/internal/telemetry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	ErrInvalidSession     = errors.New("invalid session")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// Provisioner creates the personal organization of a newly registered user.
type Provisioner interface {
	ProvisionPersonalOrganization(ctx context.Context, user *models.User) (*models.Organization, *models.Project, error)
}

// GitHubConfig enables GitHub sign in when ClientID is set.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Config holds the identity provider settings.
type Config struct {
	// SessionTTL is the lifetime of a session cookie. Default: 168h
	SessionTTL time.Duration

	// SessionUpdateAge is how old a session's expiry must be before use
	// slides it forward by SessionTTL. Default: 24h, negative disables sliding.
	SessionUpdateAge time.Duration

	// SecureCookies marks cookies Secure. Disable only for plain HTTP development.
	SecureCookies bool

	// FrontendURL is where the GitHub callback redirects after sign in. Default: /
	FrontendURL string

	// SignInPerMinute and SignInBurst bound email sign in attempts per client IP.
	// Default: 10 per minute, burst 5
	SignInPerMinute float64
	SignInBurst     int

	GitHub GitHubConfig
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.SessionTTL == 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
	if c.SessionUpdateAge == 0 {
		c.SessionUpdateAge = 24 * time.Hour
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "/"
	}
	if c.SignInPerMinute == 0 {
		c.SignInPerMinute = 10
	}
	if c.SignInBurst == 0 {
		c.SignInBurst = 5
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.SessionTTL < 0 {
		return fmt.Errorf("session TTL must be greater than 0")
	}
	if c.SignInPerMinute < 0 || c.SignInBurst < 0 {
		return fmt.Errorf("sign in rate limit must not be negative")
	}
	gh := c.GitHub
	if gh.ClientID != "" && (gh.ClientSecret == "" || gh.CallbackURL == "") {
		return fmt.Errorf("GitHub client secret and callback URL are required when a client ID is set")
	}
	return nil
}

// Service is the identity provider: it registers users, signs them in with
// email/password or GitHub, and keeps server side sessions.
type Service struct {
	users       store.UserStore
	sessions    store.SessionStore
	provisioner Provisioner
	tokens      *auth.TokenSigner
	limiter     *httpmiddleware.RateLimiter
	cfg         Config
	metrics     *telemetry.Metrics
	now         func() time.Time

	github    *oauth2.Config
	githubAPI string
}

// New creates the identity provider.
func New(users store.UserStore, sessions store.SessionStore, provisioner Provisioner, tokens *auth.TokenSigner, cfg Config) (*Service, error) {
	if users == nil || sessions == nil || provisioner == nil || tokens == nil {
		return nil, fmt.Errorf("users, sessions, provisioner and token signer are required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid login config: %w", err)
	}

	s := &Service{
		users:       users,
		sessions:    sessions,
		provisioner: provisioner,
		tokens:      tokens,
		limiter:     httpmiddleware.NewRateLimiter(cfg.SignInPerMinute, cfg.SignInBurst),
		cfg:         cfg,
		metrics:     telemetry.GetMetrics(),
		now:         time.Now,
		githubAPI:   "https://api.github.com",
	}

	if cfg.GitHub.ClientID != "" {
		s.github = &oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURL:  cfg.GitHub.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	}

	return s, nil
}

// ResolveSession returns the user owning the session token and refreshes its
// last used time. It implements auth.SessionResolver.
func (s *Service) ResolveSession(ctx context.Context, token string) (string, error) {
	session, _, err := s.lookupSession(ctx, token)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// lookupSession loads the session for token, records the use and slides its
// expiry. refreshed reports whether the expiry moved, in which case the
// cookie should be reissued.
func (s *Service) lookupSession(ctx context.Context, token string) (session *models.Session, refreshed bool, err error) {
	if token == "" {
		return nil, false, ErrInvalidSession
	}

	session, err = s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) || errors.Is(err, store.ErrSessionExpired) {
			return nil, false, ErrInvalidSession
		}
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now().UTC()
	refreshed = session.Refresh(now, s.cfg.SessionTTL, s.cfg.SessionUpdateAge)
	session.LastUsedAt = now
	if err := s.sessions.Touch(ctx, session.SessionID, now, session.ExpiresAt); err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to touch session")
		refreshed = false
	}

	return session, refreshed, nil
}

// createSession stores a new session for userID and returns the cookie token.
func (s *Service) createSession(ctx context.Context, userID, userAgent, ip string) (string, *models.Session, error) {
	token, err := NewSessionToken()
	if err != nil {
		return "", nil, err
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now().UTC()
	session := &models.Session{
		SessionID:  sessionID,
		TokenHash:  HashSessionToken(token),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
		LastUsedAt: now,
		UserAgent:  userAgent,
		IPAddress:  normalizeIP(ip),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug().Str("user_id", userID).Str("session_id", sessionID.String()).Msg("Created session")

	return token, session, nil
}

// RegisterWithPassword validates and stores a new email/password user, then
// provisions their personal organization.
func (s *Service) RegisterWithPassword(ctx context.Context, name, email, password string) (*models.User, error) {
	req := signUpRequest{
		Name:     strings.TrimSpace(name),
		Email:    models.NormalizeEmail(email),
		Password: password,
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	userID, err := newUserID()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.registerUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// registerUser stores a new user and provisions their personal organization.
// A provisioning failure is logged and counted but does not fail registration;
// the user can still sign in and simply has no organizations.
func (s *Service) registerUser(ctx context.Context, user *models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.SignUpsTotal.Add(ctx, 1)
	log.Info().Str("user_id", user.UserID).Msg("Registered user")

	if _, _, err := s.provisioner.ProvisionPersonalOrganization(ctx, user); err != nil {
		s.metrics.ProvisioningFailuresTotal.Add(ctx, 1)
		log.Error().Err(err).Str("user_id", user.UserID).Msg("Failed to provision personal organization")
	}

	return nil
}

func newUserID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate user ID: %w", err)
	}
	return id.String(), nil
}

// RunSessionSweeper deletes expired sessions, and idle rate limit buckets,
// every interval until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpiredSessions(ctx)
			s.limiter.Sweep()
		}
	}
}

// SweepExpiredSessions deletes expired sessions once and returns how many were removed.
func (s *Service) SweepExpiredSessions(ctx context.Context) int {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete expired sessions")
		return 0
	}
	if n > 0 {
		s.metrics.SessionsSweptTotal.Add(ctx, int64(n))
		log.Info().Int("sessions", n).Msg("Deleted expired sessions")
	}
	return n
}

// normalizeIP drops anything that is not a literal IP address.
func normalizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
