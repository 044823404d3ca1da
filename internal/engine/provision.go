package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

const (
	DefaultProjectName = "Default"
	DefaultProjectSlug = "default"
)

// PersonalOrganizationName is the name given to the organization provisioned for a new user.
func PersonalOrganizationName(user *models.User) string {
	return fmt.Sprintf("%s's Organization", user.DisplayName())
}

// ProvisionPersonalOrganization creates the organization, owner membership and
// default project of a newly registered user. Either all three rows are
// created or none are.
func (e *Engine) ProvisionPersonalOrganization(ctx context.Context, user *models.User) (*models.Organization, *models.Project, error) {
	if user == nil || user.UserID == "" {
		return nil, nil, ErrUnauthenticated
	}

	orgID, err := newID()
	if err != nil {
		return nil, nil, err
	}

	projectID, err := newID()
	if err != nil {
		return nil, nil, err
	}

	now := e.timestamp()
	name := PersonalOrganizationName(user)
	org := &models.Organization{
		OrgID:     orgID,
		Name:      name,
		Slug:      OrganizationSlug(name, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	project := &models.Project{
		ProjectID: projectID,
		OrgID:     orgID,
		Name:      DefaultProjectName,
		Slug:      DefaultProjectSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := createOrganizationTx(ctx, tx, org, user.UserID); err != nil {
			return err
		}
		return createProjectTx(ctx, tx, project)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to provision personal organization: %w", err)
	}

	e.metrics.OrganizationsCreatedTotal.Add(ctx, 1)
	e.metrics.ProjectsCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("user_id", user.UserID).
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Msg("Provisioned personal organization")

	return org, project, nil
}
