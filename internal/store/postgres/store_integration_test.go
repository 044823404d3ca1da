//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

func setupPostgresContainer(t *testing.T, ctx context.Context) (*Store, func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)

	statuses, err := MigrationStatuses(ctx, pool)
	require.NoError(t, err)
	for _, s := range statuses {
		require.Nil(t, s.AppliedAt, s.Name)
	}

	require.NoError(t, RunMigrations(ctx, pool))
	// second run is a no-op
	require.NoError(t, RunMigrations(ctx, pool))

	statuses, err = MigrationStatuses(ctx, pool)
	require.NoError(t, err)
	for _, s := range statuses {
		require.NotNil(t, s.AppliedAt, s.Name)
	}

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return NewStore(pool, nil), cleanup
}

func createUser(t *testing.T, ctx context.Context, st *Store, name, email string) *models.User {
	t.Helper()
	user := &models.User{
		UserID: uuid.Must(uuid.NewV7()).String(),
		Name:   name,
		Email:  email,
	}
	require.NoError(t, st.Users().Create(ctx, user))
	return user
}

func createOrg(t *testing.T, ctx context.Context, st *Store, owner *models.User, slug string) *models.Organization {
	t.Helper()
	org := &models.Organization{
		OrgID: uuid.Must(uuid.NewV7()),
		Name:  slug,
		Slug:  slug,
	}
	err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return err
		}
		return tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: owner.UserID, Role: models.RoleOwner})
	})
	require.NoError(t, err)
	return org
}

func TestIntegration_Store(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	alice := createUser(t, ctx, st, "Alice", "Alice@Example.com")
	bob := createUser(t, ctx, st, "Bob", "bob@example.com")

	t.Run("user lookups", func(t *testing.T) {
		got, err := st.Users().GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		require.Equal(t, alice.UserID, got.UserID)
		require.Equal(t, "alice@example.com", got.Email)

		err = st.Users().Create(ctx, &models.User{UserID: uuid.NewString(), Email: "alice@example.com"})
		require.ErrorIs(t, err, store.ErrUserAlreadyExists)

		_, err = st.Users().Get(ctx, "missing")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("organization lifecycle", func(t *testing.T) {
		org := createOrg(t, ctx, st, alice, "acme")

		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.Organizations().Create(ctx, &models.Organization{OrgID: uuid.Must(uuid.NewV7()), Name: "dup", Slug: "acme"})
		})
		require.ErrorIs(t, err, store.ErrOrganizationAlreadyExists)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			updated, err := tx.Organizations().UpdateName(ctx, org.OrgID, "Acme Corp")
			if err != nil {
				return err
			}
			require.Equal(t, "Acme Corp", updated.Name)
			require.Equal(t, "acme", updated.Slug)

			orgs, err := tx.Organizations().ListByUser(ctx, alice.UserID)
			if err != nil {
				return err
			}
			require.Len(t, orgs, 1)
			require.Equal(t, models.RoleOwner, orgs[0].Role)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("membership rules", func(t *testing.T) {
		org := createOrg(t, ctx, st, alice, "members")

		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: bob.UserID, Role: models.RoleDeveloper}); err != nil {
				return err
			}
			return tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: bob.UserID, Role: models.RoleAdmin})
		})
		require.ErrorIs(t, err, store.ErrMembershipAlreadyExists)

		// the failed tx rolled back bob's first membership as well
		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Memberships().Get(ctx, org.OrgID, bob.UserID)
			return err
		})
		require.ErrorIs(t, err, store.ErrMembershipNotFound)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: "ghost", Role: models.RoleDeveloper})
		})
		require.ErrorIs(t, err, store.ErrUserNotFound)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: bob.UserID, Role: models.RoleDeveloper}); err != nil {
				return err
			}
			m, err := tx.Memberships().UpdateRole(ctx, org.OrgID, bob.UserID, models.RoleAdmin)
			if err != nil {
				return err
			}
			require.Equal(t, models.RoleAdmin, m.Role)

			members, err := tx.Memberships().ListByOrg(ctx, org.OrgID)
			if err != nil {
				return err
			}
			require.Len(t, members, 2)
			require.Equal(t, alice.UserID, members[0].UserID)
			require.Equal(t, "Alice", members[0].Name)

			owners, err := tx.Memberships().LockOwners(ctx, org.OrgID)
			if err != nil {
				return err
			}
			require.Equal(t, []string{alice.UserID}, owners)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("project slug unique per org", func(t *testing.T) {
		org := createOrg(t, ctx, st, alice, "projects")
		other := createOrg(t, ctx, st, alice, "projects-other")

		desc := "first"
		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Projects().Create(ctx, &models.Project{ProjectID: uuid.Must(uuid.NewV7()), OrgID: org.OrgID, Name: "API", Slug: "api", Description: &desc}); err != nil {
				return err
			}
			return tx.Projects().Create(ctx, &models.Project{ProjectID: uuid.Must(uuid.NewV7()), OrgID: other.OrgID, Name: "API", Slug: "api"})
		})
		require.NoError(t, err)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.Projects().Create(ctx, &models.Project{ProjectID: uuid.Must(uuid.NewV7()), OrgID: org.OrgID, Name: "Other", Slug: "api"})
		})
		require.ErrorIs(t, err, store.ErrProjectSlugTaken)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			p, err := tx.Projects().GetBySlug(ctx, org.OrgID, "api")
			if err != nil {
				return err
			}

			name := "Public API"
			updated, err := tx.Projects().Update(ctx, org.OrgID, p.ProjectID, store.ProjectUpdate{Name: &name})
			if err != nil {
				return err
			}
			require.Equal(t, "Public API", updated.Name)
			require.NotNil(t, updated.Description)
			require.Equal(t, "first", *updated.Description)

			cleared, err := tx.Projects().Update(ctx, org.OrgID, p.ProjectID, store.ProjectUpdate{SetDescription: true})
			if err != nil {
				return err
			}
			require.Nil(t, cleared.Description)
			require.Equal(t, "Public API", cleared.Name)

			_, err = tx.Projects().Get(ctx, other.OrgID, p.ProjectID)
			require.ErrorIs(t, err, store.ErrProjectNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("delete organization cascades", func(t *testing.T) {
		org := createOrg(t, ctx, st, alice, "doomed")

		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.Projects().Create(ctx, &models.Project{ProjectID: uuid.Must(uuid.NewV7()), OrgID: org.OrgID, Name: "P", Slug: "p"}); err != nil {
				return err
			}
			members, err := tx.Memberships().DeleteByOrg(ctx, org.OrgID)
			if err != nil {
				return err
			}
			require.Equal(t, 1, members)
			projects, err := tx.Projects().DeleteByOrg(ctx, org.OrgID)
			if err != nil {
				return err
			}
			require.Equal(t, 1, projects)
			return tx.Organizations().Delete(ctx, org.OrgID)
		})
		require.NoError(t, err)

		err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Organizations().Get(ctx, org.OrgID)
			return err
		})
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("repository used after tx returns ErrTxDone", func(t *testing.T) {
		var leaked store.OrganizationStore
		err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			leaked = tx.Organizations()
			return nil
		})
		require.NoError(t, err)

		_, err = leaked.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrTxDone)
	})

	t.Run("lock owners serialises concurrent demotions", func(t *testing.T) {
		org := createOrg(t, ctx, st, alice, "race")
		require.NoError(t, st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.Memberships().Create(ctx, &models.Membership{OrgID: org.OrgID, UserID: bob.UserID, Role: models.RoleOwner})
		}))

		errLastOwner := errors.New("last owner")
		demote := func(userID string) error {
			return st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				owners, err := tx.Memberships().LockOwners(ctx, org.OrgID)
				if err != nil {
					return err
				}
				if len(owners) <= 1 {
					return errLastOwner
				}
				time.Sleep(50 * time.Millisecond)
				_, err = tx.Memberships().UpdateRole(ctx, org.OrgID, userID, models.RoleAdmin)
				return err
			})
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, id := range []string{alice.UserID, bob.UserID} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = demote(id)
			}()
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				require.ErrorIs(t, err, errLastOwner)
				failures++
			}
		}
		require.Equal(t, 1, failures)
	})

	t.Run("sessions", func(t *testing.T) {
		sessions := st.Sessions()
		session := &models.Session{
			SessionID: uuid.Must(uuid.NewV7()),
			TokenHash: "hash-1",
			UserID:    alice.UserID,
			ExpiresAt: time.Now().Add(time.Hour),
			IPAddress: "10.0.0.1",
		}
		require.NoError(t, sessions.Create(ctx, session))

		got, err := sessions.GetByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		require.Equal(t, "10.0.0.1", got.IPAddress)

		extended := got.ExpiresAt.Add(24 * time.Hour)
		require.NoError(t, sessions.Touch(ctx, session.SessionID, time.Now(), extended))
		// an earlier expiry does not shorten the session
		require.NoError(t, sessions.Touch(ctx, session.SessionID, time.Now(), got.ExpiresAt))
		got, err = sessions.GetByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		require.WithinDuration(t, extended, got.ExpiresAt, time.Millisecond)
		require.ErrorIs(t, sessions.Touch(ctx, uuid.Must(uuid.NewV7()), time.Now(), extended), store.ErrSessionNotFound)

		expired := &models.Session{
			SessionID: uuid.Must(uuid.NewV7()),
			TokenHash: "hash-2",
			UserID:    alice.UserID,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, sessions.Create(ctx, expired))
		_, err = sessions.GetByTokenHash(ctx, "hash-2")
		require.ErrorIs(t, err, store.ErrSessionExpired)

		count, err := sessions.DeleteExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		count, err = sessions.DeleteByUser(ctx, alice.UserID)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
