package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	require.NoError(t, mapPostgresError(nil))
	require.ErrorIs(t, mapPostgresError(context.Canceled), context.Canceled)

	tests := []struct {
		name     string
		err      *pgconn.PgError
		sentinel error
		contains string
	}{
		{
			name:     "duplicate org slug",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "organizations_slug_key"},
			sentinel: store.ErrOrganizationAlreadyExists,
		},
		{
			name:     "duplicate project slug",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "projects_org_slug_key"},
			sentinel: store.ErrProjectSlugTaken,
		},
		{
			name:     "member of missing org",
			err:      &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "org_members_org_id_fkey"},
			sentinel: store.ErrOrganizationNotFound,
		},
		{
			name:     "unknown constraint",
			err:      &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "org_members_role_check"},
			contains: "constraint org_members_role_check violated",
		},
		{
			name:     "serialization failure",
			err:      &pgconn.PgError{Code: pgerrcode.SerializationFailure},
			contains: "transaction conflict",
		},
		{
			name:     "statement timeout",
			err:      &pgconn.PgError{Code: pgerrcode.QueryCanceled},
			contains: "query canceled",
		},
		{
			name:     "shutdown",
			err:      &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			contains: "database unavailable",
		},
		{
			name:     "too many connections",
			err:      &pgconn.PgError{Code: pgerrcode.TooManyConnections},
			contains: "database resource limit",
		},
		{
			name:     "syntax error",
			err:      &pgconn.PgError{Code: pgerrcode.SyntaxError},
			contains: "postgres error 42601",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapPostgresError(tt.err)
			if tt.sentinel != nil {
				require.ErrorIs(t, got, tt.sentinel)
				return
			}
			require.ErrorContains(t, got, tt.contains)

			var pgErr *pgconn.PgError
			require.True(t, errors.As(got, &pgErr))
		})
	}
}
