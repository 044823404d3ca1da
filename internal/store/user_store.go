package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/tenancy/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserReader looks up users. It is available inside transactions.
type UserReader interface {
	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID string) (*models.User, error)

	// GetByEmail retrieves a user by normalized email address.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserStore manages users on behalf of the identity provider.
type UserStore interface {
	UserReader

	// Create inserts a new user.
	// Returns ErrUserAlreadyExists if the email or GitHub ID is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByGitHubID retrieves a user by GitHub user ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetByGitHubID(ctx context.Context, githubID string) (*models.User, error)

	// Update saves the profile fields of an existing user.
	// Returns ErrUserNotFound if the user doesn't exist.
	Update(ctx context.Context, user *models.User) error
}
