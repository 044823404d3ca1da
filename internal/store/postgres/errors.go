package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/tenancy/internal/store"
)

// constraintErrors maps named constraints from the schema to sentinel errors.
var constraintErrors = map[string]error{
	"organizations_pkey":       store.ErrOrganizationAlreadyExists,
	"organizations_slug_key":   store.ErrOrganizationAlreadyExists,
	"org_members_pkey":         store.ErrMembershipAlreadyExists,
	"org_members_org_id_fkey":  store.ErrOrganizationNotFound,
	"org_members_user_id_fkey": store.ErrUserNotFound,
	"projects_org_slug_key":    store.ErrProjectSlugTaken,
	"projects_org_id_fkey":     store.ErrOrganizationNotFound,
	"users_pkey":               store.ErrUserAlreadyExists,
	"users_email_key":          store.ErrUserAlreadyExists,
	"users_github_id_key":      store.ErrUserAlreadyExists,
	"sessions_user_id_fkey":    store.ErrUserNotFound,
}

// mapPostgresError turns violations of named schema constraints into store
// sentinels and labels other server errors by SQLSTATE class. Errors that did
// not come from the server are returned unchanged.
func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return err
	}

	code := pgErr.Code
	switch {
	case pgerrcode.IsIntegrityConstraintViolation(code):
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return sentinel
		}
		return fmt.Errorf("constraint %s violated: %w", pgErr.ConstraintName, err)
	case pgerrcode.IsTransactionRollback(code):
		return fmt.Errorf("transaction conflict: %w", err)
	case code == pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)
	case pgerrcode.IsConnectionException(code), pgerrcode.IsOperatorIntervention(code):
		return fmt.Errorf("database unavailable: %w", err)
	case pgerrcode.IsInsufficientResources(code):
		return fmt.Errorf("database resource limit: %w", err)
	default:
		return fmt.Errorf("postgres error %s: %w", code, err)
	}
}
