package postgres

import (
	"context"
	"time"
)

// StoreConfig holds settings shared by the PostgreSQL repositories. Pool
// settings live in PoolConfig.
type StoreConfig struct {
	// QueryTimeout bounds each repository call on the client side.
	// Default: 10s, negative relies on the caller's context only
	QueryTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *StoreConfig) ApplyDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

func (c *StoreConfig) queryTimeout() time.Duration {
	return max(c.QueryTimeout, 0)
}

// withTimeout bounds a single query. A zero timeout leaves ctx unchanged.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
