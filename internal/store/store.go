package store

import (
	"context"
	"errors"
)

// Sentinel errors for common error conditions
var (
	ErrTxDone = errors.New("transaction already committed or rolled back")
)

// Store opens units of work against the relational store.
type Store interface {
	// InTx runs fn inside a single transaction. The transaction commits when fn
	// returns nil and rolls back when fn returns an error or ctx is cancelled
	// before commit. The error returned by fn is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one transaction.
// Repositories obtained from a Tx must not be used after fn returns.
type Tx interface {
	Organizations() OrganizationStore
	Memberships() MembershipStore
	Projects() ProjectStore
	Users() UserReader
}
