package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
)

var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore persists tenants. Lookups of a missing row return
// ErrOrganizationNotFound; a clashing ID or slug returns ErrOrganizationAlreadyExists.
// Deleting an organization removes its memberships and projects with it.
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// UpdateName renames the organization, bumps updated_at and returns the stored row.
	UpdateName(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error)

	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListByUser returns the organizations userID belongs to with the user's
	// role in each, ordered by name.
	ListByUser(ctx context.Context, userID string) ([]*models.UserOrganization, error)
}
