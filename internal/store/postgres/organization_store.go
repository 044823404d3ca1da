package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	db      querier
	timeout time.Duration
	tx      *pgTx
}

const organizationColumns = `org_id, name, slug, created_at, updated_at`

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	now := time.Now()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	if org.UpdatedAt.IsZero() {
		org.UpdatedAt = org.CreatedAt
	}

	query := `
		INSERT INTO organizations (
			org_id, name, slug, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Slug,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("slug", org.Slug).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE org_id = $1`
	return s.getOne(ctx, query, orgID)
}

// GetBySlug retrieves an organization by its slug.
func (s *OrganizationStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE slug = $1`
	return s.getOne(ctx, query, slug)
}

// UpdateName renames an organization.
func (s *OrganizationStore) UpdateName(ctx context.Context, orgID uuid.UUID, name string) (*models.Organization, error) {
	query := `
		UPDATE organizations SET
			name = $2,
			updated_at = now()
		WHERE org_id = $1
		RETURNING ` + organizationColumns

	org, err := s.getOne(ctx, query, orgID, name)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Msg("Updated organization")

	return org, nil
}

// Delete deletes an organization by ID.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Debug().
		Str("org_id", orgID.String()).
		Msg("Deleted organization")

	return nil
}

// ListByUser returns the organizations a user belongs to with their role.
func (s *OrganizationStore) ListByUser(ctx context.Context, userID string) ([]*models.UserOrganization, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	query := `
		SELECT o.org_id, o.name, o.slug, o.created_at, o.updated_at, m.role
		FROM organizations o
		JOIN org_members m ON m.org_id = o.org_id
		WHERE m.user_id = $1
		ORDER BY o.name, o.org_id
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	orgs := make([]*models.UserOrganization, 0)
	for rows.Next() {
		var (
			uo   models.UserOrganization
			role string
		)
		if err := rows.Scan(
			&uo.OrgID,
			&uo.Name,
			&uo.Slug,
			&uo.CreatedAt,
			&uo.UpdatedAt,
			&role,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		if uo.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		orgs = append(orgs, &uo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

func (s *OrganizationStore) getOne(ctx context.Context, query string, args ...any) (*models.Organization, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var org models.Organization
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&org.OrgID,
		&org.Name,
		&org.Slug,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}

	return &org, nil
}
