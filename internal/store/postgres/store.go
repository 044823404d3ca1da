package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	cfg  *StoreConfig
}

// NewStore creates a PostgreSQL-backed store. A nil cfg uses defaults.
// The schema must already be migrated, see RunMigrations.
func NewStore(pool *pgxpool.Pool, cfg *StoreConfig) *Store {
	if cfg == nil {
		cfg = &StoreConfig{}
	}
	cfg.ApplyDefaults()

	return &Store{
		pool: pool,
		cfg:  cfg,
	}
}

// Users returns the user repository bound to the pool.
func (s *Store) Users() *UserStore {
	return &UserStore{db: s.pool, timeout: s.cfg.queryTimeout()}
}

// Sessions returns the session repository bound to the pool.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{db: s.pool, timeout: s.cfg.queryTimeout()}
}

// InTx runs fn inside a READ COMMITTED transaction. Owner rows are locked
// explicitly with MembershipStore.LockOwners where invariants need it.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(pgxTx pgx.Tx) error {
		t := &pgTx{db: pgxTx, timeout: s.cfg.queryTimeout()}
		err := fn(ctx, t)
		t.done = true
		return err
	})
}

type pgTx struct {
	db      querier
	timeout time.Duration
	done    bool
}

func (t *pgTx) Organizations() store.OrganizationStore {
	return &OrganizationStore{db: t.db, timeout: t.timeout, tx: t}
}

func (t *pgTx) Memberships() store.MembershipStore {
	return &MembershipStore{db: t.db, timeout: t.timeout, tx: t}
}

func (t *pgTx) Projects() store.ProjectStore {
	return &ProjectStore{db: t.db, timeout: t.timeout, tx: t}
}

func (t *pgTx) Users() store.UserReader {
	return &UserStore{db: t.db, timeout: t.timeout, tx: t}
}

// checkTx reports ErrTxDone for repositories used after their transaction ended.
// Repositories bound to the pool have a nil tx.
func checkTx(t *pgTx) error {
	if t != nil && t.done {
		return store.ErrTxDone
	}
	return nil
}
