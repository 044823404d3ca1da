package postgres

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID is the advisory lock key held while migrating, so replicas
// started with auto migrate apply each version once.
const migrationLockID int64 = 0x74656e616e6379

// ErrMigrationChanged is returned when an applied migration no longer matches
// the embedded file.
var ErrMigrationChanged = errors.New("applied migration has changed")

// Migration is one embedded schema change, named "<version>_<description>.sql".
type Migration struct {
	Version  int
	Name     string
	Checksum string // hex SHA-256 of the SQL
	SQL      string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   int
	Name      string
	AppliedAt *time.Time // nil while pending
}

type appliedMigration struct {
	checksum  string
	appliedAt time.Time
}

// loadMigrations reads the *.sql files in the root of fsys ordered by version.
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			log.Warn().Str("file", entry.Name()).Msg("Skipping migration file with invalid name format")
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			log.Warn().Str("file", entry.Name()).Msg("Skipping migration file with invalid version number")
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, entry.Name(), version)
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(content)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     entry.Name(),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(content),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

func embeddedMigrations() ([]Migration, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return loadMigrations(sub)
}

// RunMigrations applies pending embedded migrations, each in its own
// transaction, while holding a session advisory lock. Applied migrations are
// recorded with their checksum in schema_migrations.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := embeddedMigrations()
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID); err != nil {
			log.Warn().Err(err).Msg("Failed to release migration lock")
		}
	}()

	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER     PRIMARY KEY,
			name       TEXT        NOT NULL,
			checksum   TEXT        NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if a, ok := applied[m.Version]; ok {
			if a.checksum != m.Checksum {
				return fmt.Errorf("%w: %s", ErrMigrationChanged, m.Name)
			}
			log.Debug().Int("version", m.Version).Str("name", m.Name).Msg("Migration already applied, skipping")
			continue
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")
		err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
				m.Version, m.Name, m.Checksum)
			if err != nil {
				return fmt.Errorf("failed to record migration: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		count++
	}

	log.Info().Int("applied", count).Int("total", len(migrations)).Msg("Migrations complete")
	return nil
}

// MigrationStatuses lists every embedded migration with its applied time.
// A database that was never migrated reports everything as pending.
func MigrationStatuses(ctx context.Context, pool *pgxpool.Pool) ([]MigrationStatus, error) {
	migrations, err := embeddedMigrations()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	applied, err := appliedMigrations(ctx, conn)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable:
		applied = nil
	case err != nil:
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		status := MigrationStatus{Version: m.Version, Name: m.Name}
		if a, ok := applied[m.Version]; ok {
			appliedAt := a.appliedAt
			status.AppliedAt = &appliedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func appliedMigrations(ctx context.Context, conn *pgxpool.Conn) (map[int]appliedMigration, error) {
	rows, err := conn.Query(ctx, `SELECT version, checksum, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]appliedMigration)
	for rows.Next() {
		var (
			version int
			a       appliedMigration
		)
		if err := rows.Scan(&version, &a.checksum, &a.appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan applied migration: %w", err)
		}
		applied[version] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	return applied, nil
}
