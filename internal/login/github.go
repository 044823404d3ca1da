package login

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

const stateCookieName = "tenancy_oauth_state"

// GitHubUser is the subset of the GitHub user profile used to find or create a user.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func (s *Service) saveState(w http.ResponseWriter) string {
	// generate random state
	state := rand.Text()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes - enough time for OAuth flow
	})

	return state
}

// GitHubLoginHandler starts the GitHub OAuth flow.
func (s *Service) GitHubLoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		writeError(w, http.StatusNotFound, "not_found", "GitHub sign in is not configured")
		return
	}

	log.Debug().Msg("Initiating GitHub OAuth flow")

	state := s.saveState(w)
	http.Redirect(w, r, s.github.AuthCodeURL(state), http.StatusFound)
}

// GitHubCallbackHandler completes the GitHub OAuth flow, finds or creates the
// user, starts a session and redirects to the frontend.
func (s *Service) GitHubCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		writeError(w, http.StatusNotFound, "not_found", "GitHub sign in is not configured")
		return
	}

	ctx := r.Context()
	log.Debug().Msg("OAuth callback received")

	state := r.FormValue("state")
	code := r.FormValue("code")

	if state == "" || code == "" {
		log.Warn().Msg("OAuth callback missing state or code")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		log.Warn().Err(err).Msg("OAuth callback missing state cookie")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	if state != cookie.Value {
		log.Warn().Msg("OAuth callback state mismatch")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	s.clearCookie(w, stateCookieName)

	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		s.recordGitHubSignIn(ctx, "failure")
		log.Warn().Err(err).Msg("Failed to exchange OAuth code for token")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	ghUser, err := s.getUserInfo(ctx, token)
	if err != nil {
		s.recordGitHubSignIn(ctx, "failure")
		log.Warn().Err(err).Msg("Failed to fetch user info from GitHub")
		http.Error(w, "Authentication failed", http.StatusBadRequest)
		return
	}

	if ghUser.Email == "" {
		s.recordGitHubSignIn(ctx, "failure")
		log.Warn().Int64("github_id", ghUser.ID).Msg("GitHub user info missing email address")
		http.Error(w, "Email address required", http.StatusBadRequest)
		return
	}

	user, err := s.findOrCreateGitHubUser(ctx, ghUser)
	if err != nil {
		s.recordGitHubSignIn(ctx, "failure")
		log.Error().Err(err).Int64("github_id", ghUser.ID).Msg("Failed to find or create GitHub user")
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	sessionToken, _, err := s.createSession(ctx, user.UserID, r.UserAgent(), requestIP(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	s.recordGitHubSignIn(ctx, "success")
	log.Info().Str("user_id", user.UserID).Msg("User authenticated with GitHub")

	s.setSessionCookie(w, sessionToken)
	http.Redirect(w, r, s.cfg.FrontendURL, http.StatusFound)
}

// findOrCreateGitHubUser matches on GitHub ID first, then links an existing
// account with the same email, and otherwise registers a new user.
func (s *Service) findOrCreateGitHubUser(ctx context.Context, gh *GitHubUser) (*models.User, error) {
	githubID := strconv.FormatInt(gh.ID, 10)

	user, err := s.users.GetByGitHubID(ctx, githubID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up GitHub user: %w", err)
	}

	email := models.NormalizeEmail(gh.Email)

	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.GitHubID = &githubID
		if user.AvatarURL == "" {
			user.AvatarURL = gh.AvatarURL
		}
		user.UpdatedAt = s.now().UTC()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to link GitHub account: %w", err)
		}
		log.Info().Str("user_id", user.UserID).Msg("Linked GitHub account to existing user")
		return user, nil
	case !errors.Is(err, store.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	userID, err := newUserID()
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(gh.Name)
	if name == "" {
		name = gh.Login
	}

	now := s.now().UTC()
	user = &models.User{
		UserID:    userID,
		Name:      name,
		Email:     email,
		AvatarURL: gh.AvatarURL,
		GitHubID:  &githubID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.registerUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) recordGitHubSignIn(ctx context.Context, result string) {
	s.metrics.SignInsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", "github"), attribute.String("result", result)))
}

func (s *Service) getUserInfo(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	// Add timeout to prevent hanging on slow GitHub API
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := s.github.Client(ctx, token)

	var user GitHubUser
	if err := getJSON(ctx, client, s.githubAPI+"/user", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	// If email is not available from /user endpoint, fetch from /user/emails
	if user.Email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, s.githubAPI+"/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("failed to fetch user emails: %w", err)
		}
		for _, email := range emails {
			if email.Primary && email.Verified {
				user.Email = email.Email
				break
			}
		}
	}

	return &user, nil
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Validate HTTP status code
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API returned HTTP %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
