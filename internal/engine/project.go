package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// CreateProjectInput describes a new project. Slug is derived from Name when nil.
type CreateProjectInput struct {
	Name        string
	Slug        *string
	Description *string
}

// UpdateProjectInput holds the mutable fields of a project. Nil fields are
// left unchanged; SetDescription applies Description even when it is nil.
type UpdateProjectInput struct {
	Name           *string
	Description    *string
	SetDescription bool
}

// CreateProject adds a project to an organization. Any member may create
// projects. A slug already used in the organization fails with ErrDuplicateSlug.
func (e *Engine) CreateProject(ctx context.Context, callerID string, orgID uuid.UUID, in CreateProjectInput) (*models.Project, error) {
	name, err := requireName("name", in.Name)
	if err != nil {
		return nil, err
	}

	slug, err := projectSlug(name, in.Slug)
	if err != nil {
		return nil, err
	}

	projectID, err := newID()
	if err != nil {
		return nil, err
	}

	now := e.timestamp()
	project := &models.Project{
		ProjectID:   projectID,
		OrgID:       orgID,
		Name:        name,
		Slug:        slug,
		Description: normalizeDescription(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpCreateProject); err != nil {
			return err
		}
		return createProjectTx(ctx, tx, project)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.ProjectsCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("project_id", project.ProjectID.String()).
		Str("slug", project.Slug).
		Msg("Created project")

	return project, nil
}

func createProjectTx(ctx context.Context, tx store.Tx, project *models.Project) error {
	if err := tx.Projects().Create(ctx, project); err != nil {
		switch {
		case errors.Is(err, store.ErrProjectSlugTaken):
			return fmt.Errorf("%w: project slug %q", ErrDuplicateSlug, project.Slug)
		case errors.Is(err, store.ErrOrganizationNotFound):
			return fmt.Errorf("%w: organization %s", ErrNotFound, project.OrgID)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// projectSlug validates an explicit slug or derives one from the name.
func projectSlug(name string, explicit *string) (string, error) {
	if explicit != nil {
		s := strings.TrimSpace(*explicit)
		if !validProjectSlug(s) {
			return "", fmt.Errorf("%w: slug %q must be lower-case letters and digits separated by single hyphens", ErrInvalidArgument, s)
		}
		return s, nil
	}

	s := Slugify(name)
	if s == "" {
		return "", fmt.Errorf("%w: name %q must contain letters or digits", ErrInvalidArgument, name)
	}
	return s, nil
}

// GetProject returns a project of an organization the caller belongs to.
func (e *Engine) GetProject(ctx context.Context, callerID string, orgID, projectID uuid.UUID) (*models.Project, error) {
	var project *models.Project
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpReadProject); err != nil {
			return err
		}

		var err error
		project, err = tx.Projects().Get(ctx, orgID, projectID)
		if err != nil {
			return projectError(err, projectID.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// GetProjectBySlug is GetProject addressed by the project's slug.
func (e *Engine) GetProjectBySlug(ctx context.Context, callerID string, orgID uuid.UUID, slug string) (*models.Project, error) {
	var project *models.Project
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpReadProject); err != nil {
			return err
		}

		var err error
		project, err = tx.Projects().GetBySlug(ctx, orgID, slug)
		if err != nil {
			return projectError(err, slug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProject changes a project's name and/or description. Requires admin.
func (e *Engine) UpdateProject(ctx context.Context, callerID string, orgID, projectID uuid.UUID, in UpdateProjectInput) (*models.Project, error) {
	update := store.ProjectUpdate{
		SetDescription: in.SetDescription,
	}

	if in.Name != nil {
		name, err := requireName("name", *in.Name)
		if err != nil {
			return nil, err
		}
		update.Name = &name
	}

	if in.SetDescription {
		update.Description = normalizeDescription(in.Description)
	}

	var project *models.Project
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpUpdateProject); err != nil {
			return err
		}

		var err error
		project, err = tx.Projects().Update(ctx, orgID, projectID, update)
		if err != nil {
			return projectError(err, projectID.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("project_id", projectID.String()).
		Str("caller_id", callerID).
		Msg("Updated project")

	return project, nil
}

// RenameProject changes the display name of a project. The slug never changes.
func (e *Engine) RenameProject(ctx context.Context, callerID string, orgID, projectID uuid.UUID, name string) (*models.Project, error) {
	return e.UpdateProject(ctx, callerID, orgID, projectID, UpdateProjectInput{Name: &name})
}

// UpdateProjectDescription sets or, with a nil or blank value, clears the description.
func (e *Engine) UpdateProjectDescription(ctx context.Context, callerID string, orgID, projectID uuid.UUID, description *string) (*models.Project, error) {
	return e.UpdateProject(ctx, callerID, orgID, projectID, UpdateProjectInput{Description: description, SetDescription: true})
}

// DeleteProject removes a single project. Requires admin.
func (e *Engine) DeleteProject(ctx context.Context, callerID string, orgID, projectID uuid.UUID) error {
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpDeleteProject); err != nil {
			return err
		}

		if err := tx.Projects().Delete(ctx, orgID, projectID); err != nil {
			return projectError(err, projectID.String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metrics.ProjectsDeletedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("project_id", projectID.String()).
		Str("caller_id", callerID).
		Msg("Deleted project")

	return nil
}

// ListProjectsForOrg returns the projects of an organization ordered by name.
func (e *Engine) ListProjectsForOrg(ctx context.Context, callerID string, orgID uuid.UUID) ([]*models.Project, error) {
	var projects []*models.Project
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpListProjects); err != nil {
			return err
		}

		var err error
		projects, err = tx.Projects().ListByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func projectError(err error, ref string) error {
	if errors.Is(err, store.ErrProjectNotFound) {
		return fmt.Errorf("%w: project %s", ErrNotFound, ref)
	}
	return fmt.Errorf("project %s: %w", ref, err)
}
