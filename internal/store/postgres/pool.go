package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PoolConfig holds configuration for the PostgreSQL connection pool.
type PoolConfig struct {
	// ConnString is a postgres:// URL or key=value DSN.
	ConnString string

	// ApplicationName is reported in pg_stat_activity. Default: tenancy
	ApplicationName string

	// MaxConns and MinConns bound the pool size. Default: 20 and 2
	MaxConns int32
	MinConns int32

	// MaxConnLifetime and MaxConnIdleTime recycle connections. Default: 1h and 30m
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// HealthCheckPeriod is the interval between idle connection checks. Default: 1m
	HealthCheckPeriod time.Duration

	// ConnectTimeout bounds a single dial. Default: 10s
	ConnectTimeout time.Duration

	// ConnectRetryTimeout bounds how long NewPool keeps retrying while the
	// database comes up. Default: 30s, negative disables retries
	ConnectRetryTimeout time.Duration

	// StatementTimeout is enforced by the server for every statement on the
	// pool's connections. Zero leaves the server default.
	StatementTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *PoolConfig) ApplyDefaults() {
	if c.ApplicationName == "" {
		c.ApplicationName = "tenancy"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 20
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ConnectRetryTimeout == 0 {
		c.ConnectRetryTimeout = 30 * time.Second
	}
}

// Validate checks that the pool configuration is valid.
func (c *PoolConfig) Validate() error {
	if c.ConnString == "" {
		return errors.New("connection string is required")
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max conns must be at least 1, got %d", c.MaxConns)
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min conns (%d) must not exceed max conns (%d)", c.MinConns, c.MaxConns)
	}
	if c.StatementTimeout < 0 {
		return errors.New("statement timeout must not be negative")
	}
	return nil
}

// pgxConfig builds the pgxpool configuration. Runtime parameters are sent in
// the startup message, so they apply to every connection without a round trip.
func (c *PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.HealthCheckPeriod
	cfg.ConnConfig.ConnectTimeout = c.ConnectTimeout

	params := cfg.ConnConfig.RuntimeParams
	if _, ok := params["application_name"]; !ok {
		params["application_name"] = c.ApplicationName
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(c.StatementTimeout.Milliseconds(), 10)
	}

	return cfg, nil
}

// NewPool creates a connection pool and pings it, retrying with exponential
// backoff until ConnectRetryTimeout elapses.
func NewPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errors.New("pool config is required")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolConfig, err := cfg.pgxConfig()
	if err != nil {
		return nil, err
	}

	connect := func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create connection pool: %w", err))
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return pool, nil
	}

	if cfg.ConnectRetryTimeout < 0 {
		return connect()
	}

	return backoff.Retry(ctx, connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(cfg.ConnectRetryTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("Database not ready, retrying")
		}),
	)
}
