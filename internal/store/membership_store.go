package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipAlreadyExists = errors.New("membership already exists")
)

// MembershipStore manages the link between users and organizations.
type MembershipStore interface {
	// Create inserts a membership.
	// Returns ErrMembershipAlreadyExists when (org_id, user_id) already exists,
	// ErrUserNotFound or ErrOrganizationNotFound when either side is missing.
	Create(ctx context.Context, m *models.Membership) error

	// Get returns the membership of userID in orgID.
	// Returns ErrMembershipNotFound if there is none.
	Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error)

	// UpdateRole changes the role of a membership and returns the stored row.
	// Returns ErrMembershipNotFound if there is none.
	UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) (*models.Membership, error)

	// Delete removes a single membership.
	// Returns ErrMembershipNotFound if there is none.
	Delete(ctx context.Context, orgID uuid.UUID, userID string) error

	// DeleteByOrg removes every membership of an organization and returns the count.
	DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error)

	// ListByOrg returns the members of an organization joined with their user
	// profile, owners first, then by name.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Member, error)

	// LockOwners returns the user IDs of the organization's owners and holds a
	// lock on those rows until the transaction ends.
	LockOwners(ctx context.Context, orgID uuid.UUID) ([]string, error)
}
