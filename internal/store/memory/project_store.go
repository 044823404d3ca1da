package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// projectStore implements store.ProjectStore inside a memory transaction.
type projectStore struct {
	tx *memTx
}

func cloneProject(p *models.Project) *models.Project {
	clone := *p
	if p.Description != nil {
		desc := *p.Description
		clone.Description = &desc
	}
	return &clone
}

// Create inserts a project, enforcing the per-organization slug key.
func (s *projectStore) Create(ctx context.Context, p *models.Project) error {
	if err := s.tx.check(ctx, "projects.create"); err != nil {
		return err
	}

	if _, exists := s.tx.data.organizations[p.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}
	for _, existing := range s.tx.data.projects {
		if existing.OrgID == p.OrgID && existing.Slug == p.Slug {
			return store.ErrProjectSlugTaken
		}
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	s.tx.data.projects[p.ProjectID] = cloneProject(p)

	return nil
}

// Get returns a project by ID within an organization.
func (s *projectStore) Get(ctx context.Context, orgID, projectID uuid.UUID) (*models.Project, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	p, exists := s.tx.data.projects[projectID]
	if !exists || p.OrgID != orgID {
		return nil, store.ErrProjectNotFound
	}

	return cloneProject(p), nil
}

// GetBySlug returns a project by slug within an organization.
func (s *projectStore) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	for _, p := range s.tx.data.projects {
		if p.OrgID == orgID && p.Slug == slug {
			return cloneProject(p), nil
		}
	}

	return nil, store.ErrProjectNotFound
}

// Update applies the mutable fields of a project.
func (s *projectStore) Update(ctx context.Context, orgID, projectID uuid.UUID, update store.ProjectUpdate) (*models.Project, error) {
	if err := s.tx.check(ctx, "projects.update"); err != nil {
		return nil, err
	}

	p, exists := s.tx.data.projects[projectID]
	if !exists || p.OrgID != orgID {
		return nil, store.ErrProjectNotFound
	}

	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.SetDescription {
		p.Description = nil
		if update.Description != nil {
			desc := *update.Description
			p.Description = &desc
		}
	}
	p.UpdatedAt = time.Now()

	return cloneProject(p), nil
}

// Delete removes a single project.
func (s *projectStore) Delete(ctx context.Context, orgID, projectID uuid.UUID) error {
	if err := s.tx.check(ctx, "projects.delete"); err != nil {
		return err
	}

	p, exists := s.tx.data.projects[projectID]
	if !exists || p.OrgID != orgID {
		return store.ErrProjectNotFound
	}

	delete(s.tx.data.projects, projectID)

	return nil
}

// DeleteByOrg removes all projects of an organization.
func (s *projectStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	if err := s.tx.check(ctx, "projects.delete"); err != nil {
		return 0, err
	}

	count := 0
	for id, p := range s.tx.data.projects {
		if p.OrgID == orgID {
			delete(s.tx.data.projects, id)
			count++
		}
	}

	return count, nil
}

// ListByOrg returns the projects of an organization ordered by name.
func (s *projectStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	result := make([]*models.Project, 0)
	for _, p := range s.tx.data.projects {
		if p.OrgID == orgID {
			result = append(result, cloneProject(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Slug < result[j].Slug
	})

	return result, nil
}
