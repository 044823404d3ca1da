package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db      querier
	timeout time.Duration
	tx      *pgTx
}

const userColumns = `user_id, name, email, avatar_url, COALESCE(password_hash, ''), github_id, created_at, updated_at`

// Create inserts a new user. The email is stored normalized.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	user.Email = models.NormalizeEmail(user.Email)

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	query := `
		INSERT INTO users (
			user_id, name, email, avatar_url, password_hash, github_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, query,
		user.UserID,
		user.Name,
		user.Email,
		user.AvatarURL,
		passwordHash,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("user_id", user.UserID).
		Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
}

// GetByEmail retrieves a user by email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
}

// GetByGitHubID retrieves a user by GitHub user ID.
func (s *UserStore) GetByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
}

// Update saves the profile fields of an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	user.UpdatedAt = time.Now()

	var passwordHash *string
	if user.PasswordHash != "" {
		passwordHash = &user.PasswordHash
	}

	query := `
		UPDATE users SET
			name = $2,
			avatar_url = $3,
			password_hash = $4,
			github_id = $5,
			updated_at = $6
		WHERE user_id = $1
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, query,
		user.UserID,
		user.Name,
		user.AvatarURL,
		passwordHash,
		user.GitHubID,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

func (s *UserStore) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var user models.User
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&user.UserID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
		&user.PasswordHash,
		&user.GitHubID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", mapPostgresError(err))
	}

	return &user, nil
}
