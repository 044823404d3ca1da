package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/wolfeidau/tenancy/internal/login"
)

// APIError is a non 2xx response from the auth endpoints.
type APIError struct {
	Status  int
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("auth request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AuthClient talks to the /api/auth endpoints. Each sign in uses a fresh
// cookie jar so the session cookie never outlives the call.
type AuthClient struct {
	baseURL string
	timeout time.Duration
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{baseURL: baseURL, timeout: timeout}
}

// Login holds the result of a password sign in.
type Login struct {
	User  login.UserResponse
	Token login.TokenResponse
}

// SignIn signs in with email and password and exchanges the resulting
// session for a bearer token. The session is signed out afterwards.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*Login, error) {
	return c.authenticate(ctx, "/api/auth/sign-in/email", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignUp registers a new account and returns a bearer token for it.
func (c *AuthClient) SignUp(ctx context.Context, name, email, password string) (*Login, error) {
	return c.authenticate(ctx, "/api/auth/sign-up/email", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

func (c *AuthClient) authenticate(ctx context.Context, path string, body any) (*Login, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	httpClient := &http.Client{Timeout: c.timeout, Jar: jar}

	var auth login.AuthResponse
	if err := c.post(ctx, httpClient, path, body, &auth); err != nil {
		return nil, err
	}

	var token login.TokenResponse
	if err := c.post(ctx, httpClient, "/api/auth/token", nil, &token); err != nil {
		return nil, err
	}

	// the bearer token stays valid after the session ends
	_ = c.post(ctx, httpClient, "/api/auth/sign-out", nil, nil)

	return &Login{User: auth.User, Token: token}, nil
}

func (c *AuthClient) post(ctx context.Context, httpClient *http.Client, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
