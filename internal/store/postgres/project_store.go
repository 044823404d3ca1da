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

// ProjectStore implements store.ProjectStore using PostgreSQL.
type ProjectStore struct {
	db      querier
	timeout time.Duration
	tx      *pgTx
}

const projectColumns = `project_id, org_id, name, slug, description, created_at, updated_at`

// Create inserts a project.
func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, query,
		p.ProjectID,
		p.OrgID,
		p.Name,
		p.Slug,
		p.Description,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("project_id", p.ProjectID.String()).
		Str("org_id", p.OrgID.String()).
		Str("slug", p.Slug).
		Msg("Created project")

	return nil
}

// Get returns a project by ID within an organization.
func (s *ProjectStore) Get(ctx context.Context, orgID, projectID uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE org_id = $1 AND project_id = $2`
	return s.getOne(ctx, query, orgID, projectID)
}

// GetBySlug returns a project by slug within an organization.
func (s *ProjectStore) GetBySlug(ctx context.Context, orgID uuid.UUID, slug string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE org_id = $1 AND slug = $2`
	return s.getOne(ctx, query, orgID, slug)
}

// Update applies a partial update to a project.
func (s *ProjectStore) Update(ctx context.Context, orgID, projectID uuid.UUID, update store.ProjectUpdate) (*models.Project, error) {
	query := `
		UPDATE projects SET
			name = COALESCE($3, name),
			description = CASE WHEN $4 THEN $5 ELSE description END,
			updated_at = now()
		WHERE org_id = $1 AND project_id = $2
		RETURNING ` + projectColumns

	return s.getOne(ctx, query, orgID, projectID, update.Name, update.SetDescription, update.Description)
}

// Delete removes a single project.
func (s *ProjectStore) Delete(ctx context.Context, orgID, projectID uuid.UUID) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, `DELETE FROM projects WHERE org_id = $1 AND project_id = $2`, orgID, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrProjectNotFound
	}

	log.Debug().
		Str("project_id", projectID.String()).
		Msg("Deleted project")

	return nil
}

// DeleteByOrg removes every project of an organization.
func (s *ProjectStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	if err := checkTx(s.tx); err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, `DELETE FROM projects WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete projects: %w", mapPostgresError(err))
	}

	return int(result.RowsAffected()), nil
}

// ListByOrg returns the projects of an organization ordered by name.
func (s *ProjectStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Project, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE org_id = $1 ORDER BY name, project_id`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", mapPostgresError(err))
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

func (s *ProjectStore) getOne(ctx context.Context, query string, args ...any) (*models.Project, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := scanProject(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", mapPostgresError(err))
	}

	return p, nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ProjectID,
		&p.OrgID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
