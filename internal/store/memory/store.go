package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

var _ store.Store = (*Store)(nil)

type membershipKey struct {
	orgID  uuid.UUID
	userID string
}

// tables holds the transactional state. A transaction works on a clone
// which replaces the live tables on commit.
type tables struct {
	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
	memberships   map[membershipKey]*models.Membership
	projects      map[uuid.UUID]*models.Project // project_id -> Project
}

func newTables() *tables {
	return &tables{
		organizations: make(map[uuid.UUID]*models.Organization),
		memberships:   make(map[membershipKey]*models.Membership),
		projects:      make(map[uuid.UUID]*models.Project),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		organizations: make(map[uuid.UUID]*models.Organization, len(t.organizations)),
		memberships:   make(map[membershipKey]*models.Membership, len(t.memberships)),
		projects:      make(map[uuid.UUID]*models.Project, len(t.projects)),
	}
	for k, v := range t.organizations {
		org := *v
		c.organizations[k] = &org
	}
	for k, v := range t.memberships {
		m := *v
		c.memberships[k] = &m
	}
	for k, v := range t.projects {
		c.projects[k] = cloneProject(v)
	}
	return c
}

// Store implements store.Store using in-memory storage.
// Transactions are serialised and see a private copy of the data until commit.
// This implementation is for testing and local development only - data is lost on restart.
type Store struct {
	mu   sync.Mutex
	data *tables

	users    *UserStore
	sessions *SessionStore

	faultMu sync.Mutex
	faults  map[string]error
}

// NewStore creates a new in-memory store with empty user and session tables.
func NewStore() *Store {
	return &Store{
		data:     newTables(),
		users:    NewUserStore(),
		sessions: NewSessionStore(),
		faults:   make(map[string]error),
	}
}

// Users returns the user table shared with transactions.
func (s *Store) Users() *UserStore {
	return s.users
}

// Sessions returns the session table.
func (s *Store) Sessions() *SessionStore {
	return s.sessions
}

// InjectFault makes the named write operation fail with err inside any
// transaction until ClearFaults is called. Operation names have the form
// "<table>.<operation>", for example "organizations.delete" or "projects.create".
func (s *Store) InjectFault(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes all injected faults.
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// InTx runs fn against a private copy of the tables and publishes the copy
// only if fn succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, data: s.data.clone()}
	err := fn(ctx, tx)
	tx.done = true
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = tx.data
	return nil
}

// memTx is a unit of work over a cloned set of tables.
type memTx struct {
	store *Store
	data  *tables
	done  bool
}

func (tx *memTx) Organizations() store.OrganizationStore { return &organizationStore{tx: tx} }
func (tx *memTx) Memberships() store.MembershipStore     { return &membershipStore{tx: tx} }
func (tx *memTx) Projects() store.ProjectStore           { return &projectStore{tx: tx} }
func (tx *memTx) Users() store.UserReader                { return tx.store.users }

// check guards every repository call against use after the transaction ended
// and applies injected faults to writes.
func (tx *memTx) check(ctx context.Context, op string) error {
	if tx.done {
		return store.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if op == "" {
		return nil
	}
	return tx.store.fault(op)
}
