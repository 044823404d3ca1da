package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/tenancy/internal/auth"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// CreateOrganization creates an organization named name with ownerID as its
// sole owner. The slug is derived from the name and the creation time.
func (e *Engine) CreateOrganization(ctx context.Context, ownerID, name string) (*models.Organization, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	orgID, err := newID()
	if err != nil {
		return nil, err
	}

	now := e.timestamp()
	org := &models.Organization{
		OrgID:     orgID,
		Name:      name,
		Slug:      OrganizationSlug(name, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return createOrganizationTx(ctx, tx, org, ownerID)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.OrganizationsCreatedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Str("owner_id", ownerID).
		Msg("Created organization")

	return org, nil
}

// createOrganizationTx inserts org and the owner membership.
func createOrganizationTx(ctx context.Context, tx store.Tx, org *models.Organization, ownerID string) error {
	if err := tx.Organizations().Create(ctx, org); err != nil {
		if errors.Is(err, store.ErrOrganizationAlreadyExists) {
			return fmt.Errorf("%w: organization slug %q", ErrDuplicateSlug, org.Slug)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	owner := &models.Membership{
		OrgID:    org.OrgID,
		UserID:   ownerID,
		Role:     models.RoleOwner,
		JoinedAt: org.CreatedAt,
	}
	if err := tx.Memberships().Create(ctx, owner); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, ownerID)
		}
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	return nil
}

// GetOrganization returns an organization the caller belongs to, with the caller's role.
func (e *Engine) GetOrganization(ctx context.Context, callerID string, orgID uuid.UUID) (*models.UserOrganization, error) {
	var result *models.UserOrganization
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		membership, err := e.authorize(ctx, tx, callerID, orgID, auth.OpReadOrg)
		if err != nil {
			return err
		}

		org, err := tx.Organizations().Get(ctx, orgID)
		if err != nil {
			return organizationError(err, orgID.String())
		}

		result = &models.UserOrganization{Organization: *org, Role: membership.Role}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetOrganizationBySlug is GetOrganization addressed by slug.
func (e *Engine) GetOrganizationBySlug(ctx context.Context, callerID, slug string) (*models.UserOrganization, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}

	var result *models.UserOrganization
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		org, err := tx.Organizations().GetBySlug(ctx, slug)
		if errors.Is(err, store.ErrOrganizationNotFound) {
			// indistinguishable from an organization the caller cannot see
			return fmt.Errorf("%w: %s", ErrNotAMember, slug)
		}
		if err != nil {
			return organizationError(err, slug)
		}

		membership, err := e.authorize(ctx, tx, callerID, org.OrgID, auth.OpReadOrg)
		if err != nil {
			return err
		}

		result = &models.UserOrganization{Organization: *org, Role: membership.Role}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RenameOrganization changes the display name of an organization. The slug never changes.
func (e *Engine) RenameOrganization(ctx context.Context, callerID string, orgID uuid.UUID, name string) (*models.Organization, error) {
	name, err := requireName("name", name)
	if err != nil {
		return nil, err
	}

	var org *models.Organization
	err = e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpUpdateOrg); err != nil {
			return err
		}

		var err error
		org, err = tx.Organizations().UpdateName(ctx, orgID, name)
		if err != nil {
			return organizationError(err, orgID.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("caller_id", callerID).
		Msg("Renamed organization")

	return org, nil
}

// DeleteOrganization removes an organization with all of its memberships and
// projects, children first, in one transaction.
func (e *Engine) DeleteOrganization(ctx context.Context, callerID string, orgID uuid.UUID) error {
	var members, projects int
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := e.authorize(ctx, tx, callerID, orgID, auth.OpDeleteOrg); err != nil {
			return err
		}

		var err error
		members, err = tx.Memberships().DeleteByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}

		projects, err = tx.Projects().DeleteByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to delete projects: %w", err)
		}

		if err := tx.Organizations().Delete(ctx, orgID); err != nil {
			return organizationError(err, orgID.String())
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metrics.OrganizationsDeletedTotal.Add(ctx, 1)

	zerolog.Ctx(ctx).Info().
		Str("org_id", orgID.String()).
		Str("caller_id", callerID).
		Int("memberships", members).
		Int("projects", projects).
		Msg("Deleted organization")

	return nil
}

// ListOrganizationsForUser returns every organization the user belongs to,
// ordered by name, each with the user's role.
func (e *Engine) ListOrganizationsForUser(ctx context.Context, userID string) ([]*models.UserOrganization, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	var orgs []*models.UserOrganization
	err := e.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		orgs, err = tx.Organizations().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list organizations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

func organizationError(err error, ref string) error {
	if errors.Is(err, store.ErrOrganizationNotFound) {
		return fmt.Errorf("%w: organization %s", ErrNotFound, ref)
	}
	return fmt.Errorf("organization %s: %w", ref, err)
}
