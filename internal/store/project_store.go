package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
)

// Sentinel errors for project store operations
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectSlugTaken = errors.New("project slug already exists in organization")
)

// ProjectUpdate holds the mutable fields of a project. Nil fields are left unchanged.
type ProjectUpdate struct {
	Name *string

	// Description is applied when SetDescription is true, a nil value clears it.
	Description    *string
	SetDescription bool
}

// ProjectStore manages projects scoped to an organization.
type ProjectStore interface {
	// Create inserts a project.
	// Returns ErrProjectSlugTaken if the slug is already used in the organization.
	Create(ctx context.Context, p *models.Project) error

	// Get returns a project by ID within an organization.
	// Returns ErrProjectNotFound if it doesn't exist in that organization.
	Get(ctx context.Context, orgID, projectID uuid.UUID) (*models.Project, error)

	// GetBySlug returns a project by slug within an organization.
	GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error)

	// Update applies the update, refreshes updated_at, and returns the stored row.
	Update(ctx context.Context, orgID, projectID uuid.UUID, update ProjectUpdate) (*models.Project, error)

	// Delete removes a single project.
	Delete(ctx context.Context, orgID, projectID uuid.UUID) error

	// DeleteByOrg removes every project of an organization and returns the count.
	DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error)

	// ListByOrg returns the projects of an organization ordered by name.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error)
}
