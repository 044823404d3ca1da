package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/store"
	memorystore "github.com/wolfeidau/tenancy/internal/store/memory"
	postgresstore "github.com/wolfeidau/tenancy/internal/store/postgres"
)

type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypePostgres StoreType = "postgres"
)

// StoreFlags select and configure the backing store.
type StoreFlags struct {
	StoreType     StoreType          `help:"store type (memory or postgres)" default:"memory" env:"TENANCY_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns            int32         `help:"maximum number of connections in pool" default:"20"`
	MinConns            int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime     time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime     time.Duration `help:"maximum connection idle time" default:"30m"`
	ConnectRetryTimeout time.Duration `help:"how long to keep retrying the first connection, negative disables retries" default:"30s"`
	QueryTimeout        time.Duration `help:"client side timeout per query, negative disables it" default:"10s"`
	StatementTimeout    time.Duration `help:"server side statement_timeout, 0 keeps the server default" default:"0s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"TENANCY_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (s *PostgresStoreFlags) poolConfig() *postgresstore.PoolConfig {
	return &postgresstore.PoolConfig{
		ConnString:          s.ConnString,
		MaxConns:            s.MaxConns,
		MinConns:            s.MinConns,
		MaxConnLifetime:     s.MaxConnLifetime,
		MaxConnIdleTime:     s.MaxConnIdleTime,
		ConnectRetryTimeout: s.ConnectRetryTimeout,
		StatementTimeout:    s.StatementTimeout,
	}
}

// stores bundles the transactional store with the user and session tables.
type stores struct {
	store    store.Store
	users    store.UserStore
	sessions store.SessionStore
	close    func()
}

func (f *StoreFlags) open(ctx context.Context) (*stores, error) {
	switch f.StoreType {
	case StoreTypePostgres:
		if err := f.PostgresStore.Validate(); err != nil {
			return nil, err
		}

		pool, err := postgresstore.NewPool(ctx, f.PostgresStore.poolConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}

		if f.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info().Msg("Database migrations completed")
		}

		st := postgresstore.NewStore(pool, &postgresstore.StoreConfig{QueryTimeout: f.PostgresStore.QueryTimeout})
		log.Info().Msg("Using PostgreSQL store")

		return &stores{
			store:    st,
			users:    st.Users(),
			sessions: st.Sessions(),
			close:    pool.Close,
		}, nil

	default:
		st := memorystore.NewStore()
		log.Warn().Msg("Using in-memory store, all data is lost on restart")

		return &stores{
			store:    st,
			users:    st.Users(),
			sessions: st.Sessions(),
			close:    func() {},
		}, nil
	}
}

// MigrateCmd applies the embedded PostgreSQL migrations.
type MigrateCmd struct {
	Status        bool               `help:"list migrations and when they were applied, without applying anything"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	log, err := globals.setupLogger()
	if err != nil {
		return err
	}

	if err := c.PostgresStore.Validate(); err != nil {
		return err
	}

	pool, err := postgresstore.NewPool(ctx, c.PostgresStore.poolConfig())
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if c.Status {
		statuses, err := postgresstore.MigrationStatuses(ctx, pool)
		if err != nil {
			return err
		}
		return printMigrationStatuses(os.Stdout, statuses)
	}

	if err := postgresstore.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}

func printMigrationStatuses(out io.Writer, statuses []postgresstore.MigrationStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, s := range statuses {
		applied := "pending"
		if s.AppliedAt != nil {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	return w.Flush()
}
