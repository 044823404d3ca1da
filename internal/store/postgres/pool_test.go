package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolConfig_defaults(t *testing.T) {
	cfg := &PoolConfig{ConnString: "postgres://u:p@localhost:5432/tenancy"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	require.Equal(t, "tenancy", cfg.ApplicationName)
	require.EqualValues(t, 20, cfg.MaxConns)
	require.EqualValues(t, 2, cfg.MinConns)
	require.Equal(t, time.Hour, cfg.MaxConnLifetime)
	require.Equal(t, 30*time.Second, cfg.ConnectRetryTimeout)
}

func TestPoolConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  PoolConfig
		msg  string
	}{
		{name: "missing conn string", cfg: PoolConfig{MaxConns: 1}, msg: "connection string is required"},
		{name: "no connections", cfg: PoolConfig{ConnString: "postgres://localhost", MaxConns: -1}, msg: "max conns"},
		{name: "min above max", cfg: PoolConfig{ConnString: "postgres://localhost", MaxConns: 2, MinConns: 3}, msg: "must not exceed"},
		{name: "negative statement timeout", cfg: PoolConfig{ConnString: "postgres://localhost", MaxConns: 2, StatementTimeout: -time.Second}, msg: "statement timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorContains(t, tt.cfg.Validate(), tt.msg)
		})
	}
}

func TestPoolConfig_pgxConfig(t *testing.T) {
	cfg := &PoolConfig{
		ConnString:       "postgres://u:p@localhost:5432/tenancy",
		MaxConnIdleTime:  5 * time.Minute,
		StatementTimeout: 2500 * time.Millisecond,
	}
	cfg.ApplyDefaults()

	pgxCfg, err := cfg.pgxConfig()
	require.NoError(t, err)
	require.EqualValues(t, 20, pgxCfg.MaxConns)
	require.Equal(t, 5*time.Minute, pgxCfg.MaxConnIdleTime)
	require.Equal(t, 10*time.Second, pgxCfg.ConnConfig.ConnectTimeout)
	require.Equal(t, "tenancy", pgxCfg.ConnConfig.RuntimeParams["application_name"])
	require.Equal(t, "2500", pgxCfg.ConnConfig.RuntimeParams["statement_timeout"])

	t.Run("application name from conn string wins", func(t *testing.T) {
		cfg := &PoolConfig{ConnString: "postgres://u:p@localhost:5432/tenancy?application_name=worker"}
		cfg.ApplyDefaults()

		pgxCfg, err := cfg.pgxConfig()
		require.NoError(t, err)
		require.Equal(t, "worker", pgxCfg.ConnConfig.RuntimeParams["application_name"])
		require.NotContains(t, pgxCfg.ConnConfig.RuntimeParams, "statement_timeout")
	})

	t.Run("bad conn string", func(t *testing.T) {
		cfg := &PoolConfig{ConnString: "postgres://u:p@localhost:notaport/db"}
		cfg.ApplyDefaults()
		_, err := cfg.pgxConfig()
		require.Error(t, err)
	})
}

func TestNewPool_invalidConfig(t *testing.T) {
	_, err := NewPool(context.Background(), nil)
	require.Error(t, err)

	_, err = NewPool(context.Background(), &PoolConfig{})
	require.ErrorContains(t, err, "connection string is required")
}

func TestStoreConfig_queryTimeout(t *testing.T) {
	cfg := &StoreConfig{}
	cfg.ApplyDefaults()
	require.Equal(t, 10*time.Second, cfg.queryTimeout())

	cfg = &StoreConfig{QueryTimeout: -1}
	cfg.ApplyDefaults()
	require.Zero(t, cfg.queryTimeout())
}
