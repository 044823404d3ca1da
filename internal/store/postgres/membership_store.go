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

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	db      querier
	timeout time.Duration
	tx      *pgTx
}

// Create inserts a membership.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}

	query := `
		INSERT INTO org_members (org_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, query, m.OrgID, m.UserID, m.Role.String(), m.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", m.OrgID.String()).
		Str("user_id", m.UserID).
		Str("role", m.Role.String()).
		Msg("Created membership")

	return nil
}

// Get returns the membership of a user in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error) {
	query := `
		SELECT org_id, user_id, role, joined_at
		FROM org_members
		WHERE org_id = $1 AND user_id = $2
	`
	return s.getOne(ctx, query, orgID, userID)
}

// UpdateRole changes the role of a membership.
func (s *MembershipStore) UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) (*models.Membership, error) {
	query := `
		UPDATE org_members SET role = $3
		WHERE org_id = $1 AND user_id = $2
		RETURNING org_id, user_id, role, joined_at
	`
	return s.getOne(ctx, query, orgID, userID, role.String())
}

// Delete removes a single membership.
func (s *MembershipStore) Delete(ctx context.Context, orgID uuid.UUID, userID string) error {
	if err := checkTx(s.tx); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, `DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrMembershipNotFound
	}

	return nil
}

// DeleteByOrg removes every membership of an organization.
func (s *MembershipStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	if err := checkTx(s.tx); err != nil {
		return 0, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.Exec(ctx, `DELETE FROM org_members WHERE org_id = $1`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete memberships: %w", mapPostgresError(err))
	}

	return int(result.RowsAffected()), nil
}

// ListByOrg returns the members of an organization, owners first.
func (s *MembershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Member, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	query := `
		SELECT m.org_id, m.user_id, m.role, m.joined_at, u.name, u.email, u.avatar_url
		FROM org_members m
		JOIN users u ON u.user_id = m.user_id
		WHERE m.org_id = $1
		ORDER BY
			CASE m.role WHEN 'owner' THEN 0 WHEN 'admin' THEN 1 ELSE 2 END,
			u.name,
			m.user_id
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", mapPostgresError(err))
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		var (
			member models.Member
			role   string
		)
		if err := rows.Scan(
			&member.OrgID,
			&member.UserID,
			&role,
			&member.JoinedAt,
			&member.Name,
			&member.Email,
			&member.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if member.Role, err = models.ParseRole(role); err != nil {
			return nil, err
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// LockOwners locks the owner rows of an organization for the rest of the
// transaction. Concurrent demotions or removals of owners serialise here.
func (s *MembershipStore) LockOwners(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	query := `
		SELECT user_id FROM org_members
		WHERE org_id = $1 AND role = 'owner'
		ORDER BY user_id
		FOR UPDATE
	`

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock owners: %w", mapPostgresError(err))
	}

	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to lock owners: %w", mapPostgresError(err))
	}

	return owners, nil
}

func (s *MembershipStore) getOne(ctx context.Context, query string, args ...any) (*models.Membership, error) {
	if err := checkTx(s.tx); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var (
		m    models.Membership
		role string
	)
	err := s.db.QueryRow(ctx, query, args...).Scan(&m.OrgID, &m.UserID, &role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", mapPostgresError(err))
	}

	if m.Role, err = models.ParseRole(role); err != nil {
		return nil, err
	}

	return &m, nil
}
