package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// organizationStore implements store.OrganizationStore inside a memory transaction.
type organizationStore struct {
	tx *memTx
}

// Create creates a new organization in memory.
func (s *organizationStore) Create(ctx context.Context, org *models.Organization) error {
	if err := s.tx.check(ctx, "organizations.create"); err != nil {
		return err
	}

	if _, exists := s.tx.data.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}
	for _, existing := range s.tx.data.organizations {
		if existing.Slug == org.Slug {
			return store.ErrOrganizationAlreadyExists
		}
	}

	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = org.CreatedAt
	}

	// Clone to avoid external modifications
	clone := *org
	s.tx.data.organizations[org.OrgID] = &clone

	return nil
}

// Get retrieves an organization by ID.
func (s *organizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	org, exists := s.tx.data.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	clone := *org
	return &clone, nil
}

// GetBySlug retrieves an organization by slug.
func (s *organizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	for _, org := range s.tx.data.organizations {
		if org.Slug == slug {
			clone := *org
			return &clone, nil
		}
	}

	return nil, store.ErrOrganizationNotFound
}

// UpdateName renames an organization.
func (s *organizationStore) UpdateName(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error) {
	if err := s.tx.check(ctx, "organizations.update"); err != nil {
		return nil, err
	}

	org, exists := s.tx.data.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	org.Name = name
	org.UpdatedAt = time.Now()

	clone := *org
	return &clone, nil
}

// Delete deletes an organization and cascades to its memberships and projects,
// mirroring the foreign keys of the relational schema.
func (s *organizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	if err := s.tx.check(ctx, "organizations.delete"); err != nil {
		return err
	}

	if _, exists := s.tx.data.organizations[orgID]; !exists {
		return store.ErrOrganizationNotFound
	}

	for key := range s.tx.data.memberships {
		if key.orgID == orgID {
			delete(s.tx.data.memberships, key)
		}
	}
	for id, p := range s.tx.data.projects {
		if p.OrgID == orgID {
			delete(s.tx.data.projects, id)
		}
	}
	delete(s.tx.data.organizations, orgID)

	return nil
}

// ListByUser returns the organizations userID belongs to, ordered by name.
func (s *organizationStore) ListByUser(ctx context.Context, userID string) ([]*models.UserOrganization, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	result := make([]*models.UserOrganization, 0)
	for key, m := range s.tx.data.memberships {
		if key.userID != userID {
			continue
		}
		org, exists := s.tx.data.organizations[key.orgID]
		if !exists {
			continue
		}
		result = append(result, &models.UserOrganization{Organization: *org, Role: m.Role})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].OrgID.String() < result[j].OrgID.String()
	})

	return result, nil
}
