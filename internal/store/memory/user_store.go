package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing only - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users         map[string]*models.User // user_id -> User
	usersByEmail  map[string]*models.User // email -> User
	usersByGitHub map[string]*models.User // github_id -> User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]*models.User),
		usersByGitHub: make(map[string]*models.User),
	}
}

func cloneUser(u *models.User) *models.User {
	clone := *u
	if u.GitHubID != nil {
		id := *u.GitHubID
		clone.GitHubID = &id
	}
	return &clone
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}

	email := models.NormalizeEmail(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return store.ErrUserAlreadyExists
	}

	if user.GitHubID != nil {
		if _, exists := s.usersByGitHub[*user.GitHubID]; exists {
			return store.ErrUserAlreadyExists
		}
	}

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	user.Email = email

	clone := cloneUser(user)
	s.users[user.UserID] = clone
	s.usersByEmail[email] = clone
	if clone.GitHubID != nil {
		s.usersByGitHub[*clone.GitHubID] = clone
	}

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// GetByEmail retrieves a user by email address.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByEmail[models.NormalizeEmail(email)]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// GetByGitHubID retrieves a user by GitHub ID.
func (s *UserStore) GetByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByGitHub[githubID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// Update saves the profile fields of an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.UserID]
	if !exists {
		return store.ErrUserNotFound
	}

	email := models.NormalizeEmail(user.Email)
	if other, taken := s.usersByEmail[email]; taken && other.UserID != user.UserID {
		return store.ErrUserAlreadyExists
	}
	if user.GitHubID != nil {
		if other, taken := s.usersByGitHub[*user.GitHubID]; taken && other.UserID != user.UserID {
			return store.ErrUserAlreadyExists
		}
	}

	// Remove old indexes
	delete(s.usersByEmail, existing.Email)
	if existing.GitHubID != nil {
		delete(s.usersByGitHub, *existing.GitHubID)
	}

	user.Email = email
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()

	clone := cloneUser(user)
	s.users[user.UserID] = clone
	s.usersByEmail[email] = clone
	if clone.GitHubID != nil {
		s.usersByGitHub[*clone.GitHubID] = clone
	}

	return nil
}
