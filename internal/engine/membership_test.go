package engine

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenancy/internal/models"
)

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", "Owner")
	admin := f.user(t, "admin", "Admin")
	carol := f.user(t, "carol", "Carol")
	org := f.org(t, owner, "Acme", map[*models.User]models.Role{admin: models.RoleAdmin})

	t.Run("by email", func(t *testing.T) {
		member, err := f.eng.AddMember(ctx, owner.UserID, org.OrgID, MemberRef{Email: "  CAROL@example.com "}, models.RoleDeveloper)
		require.NoError(t, err)
		require.Equal(t, carol.UserID, member.UserID)
		require.Equal(t, "Carol", member.Name)
		require.Equal(t, models.RoleDeveloper, member.Role)
	})

	t.Run("already member", func(t *testing.T) {
		_, err := f.eng.AddMember(ctx, owner.UserID, org.OrgID, MemberRef{UserID: carol.UserID}, models.RoleAdmin)
		require.ErrorIs(t, err, ErrAlreadyMember)

		role, ok := f.role(t, org.OrgID, carol.UserID)
		require.True(t, ok)
		require.Equal(t, models.RoleDeveloper, role)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.eng.AddMember(ctx, owner.UserID, org.OrgID, MemberRef{Email: "nobody@example.com"}, models.RoleDeveloper)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("admin cannot add", func(t *testing.T) {
		f.user(t, "dave", "Dave")
		_, err := f.eng.AddMember(ctx, admin.UserID, org.OrgID, MemberRef{UserID: "dave"}, models.RoleDeveloper)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := f.eng.AddMember(ctx, owner.UserID, org.OrgID, MemberRef{UserID: "dave"}, models.Role(9))
		require.ErrorIs(t, err, ErrInvalidArgument)

		_, err = f.eng.AddMember(ctx, owner.UserID, org.OrgID, MemberRef{}, models.RoleDeveloper)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestListMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner", "Zed Owner")
	admin := f.user(t, "admin", "Amy Admin")
	dev1 := f.user(t, "dev1", "Bea Dev")
	dev2 := f.user(t, "dev2", "Abe Dev")
	org := f.org(t, owner, "Acme", map[*models.User]models.Role{
		admin: models.RoleAdmin,
		dev1:  models.RoleDeveloper,
		dev2:  models.RoleDeveloper,
	})

	members, err := f.eng.ListMembers(ctx, dev1.UserID, org.OrgID)
	require.NoError(t, err)

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	require.Equal(t, []string{"owner", "admin", "dev2", "dev1"}, ids)
	require.Equal(t, "owner@example.com", members[0].Email)
}

func TestUpdateMemberRole(t *testing.T) {
	ctx := context.Background()

	t.Run("last owner cannot be demoted", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		org := f.org(t, owner, "Solo", nil)

		_, err := f.eng.UpdateMemberRole(ctx, owner.UserID, org.OrgID, owner.UserID, models.RoleAdmin)
		require.ErrorIs(t, err, ErrLastOwner)

		role, ok := f.role(t, org.OrgID, owner.UserID)
		require.True(t, ok)
		require.Equal(t, models.RoleOwner, role)
	})

	t.Run("owner can hand over", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		heir := f.user(t, "heir", "Heir")
		org := f.org(t, owner, "Handover", map[*models.User]models.Role{heir: models.RoleDeveloper})

		m, err := f.eng.UpdateMemberRole(ctx, owner.UserID, org.OrgID, heir.UserID, models.RoleOwner)
		require.NoError(t, err)
		require.Equal(t, models.RoleOwner, m.Role)

		_, err = f.eng.UpdateMemberRole(ctx, owner.UserID, org.OrgID, owner.UserID, models.RoleDeveloper)
		require.NoError(t, err)
		require.Equal(t, []string{"heir"}, f.owners(t, org.OrgID))

		// the demoted owner lost the right to manage members
		_, err = f.eng.UpdateMemberRole(ctx, owner.UserID, org.OrgID, heir.UserID, models.RoleAdmin)
		require.ErrorIs(t, err, ErrInsufficientRole)
	})

	t.Run("admin cannot change roles", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		admin := f.user(t, "admin", "Admin")
		dev := f.user(t, "dev", "Dev")
		org := f.org(t, owner, "Acme", map[*models.User]models.Role{admin: models.RoleAdmin, dev: models.RoleDeveloper})

		_, err := f.eng.UpdateMemberRole(ctx, admin.UserID, org.OrgID, dev.UserID, models.RoleAdmin)
		require.ErrorIs(t, err, ErrInsufficientRole)

		_, err = f.eng.UpdateMemberRole(ctx, owner.UserID, org.OrgID, "nobody", models.RoleAdmin)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("self leave", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		dev := f.user(t, "dev", "Dev")
		org := f.org(t, owner, "Acme", map[*models.User]models.Role{dev: models.RoleDeveloper})

		require.NoError(t, f.eng.RemoveMember(ctx, dev.UserID, org.OrgID, dev.UserID))
		_, ok := f.role(t, org.OrgID, dev.UserID)
		require.False(t, ok)
	})

	t.Run("last owner cannot leave", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		org := f.org(t, owner, "Acme", nil)

		err := f.eng.RemoveMember(ctx, owner.UserID, org.OrgID, owner.UserID)
		require.ErrorIs(t, err, ErrLastOwner)
		require.Equal(t, []string{"owner"}, f.owners(t, org.OrgID))
	})

	t.Run("developer cannot remove others", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		dev := f.user(t, "dev", "Dev")
		admin := f.user(t, "admin", "Admin")
		org := f.org(t, owner, "Acme", map[*models.User]models.Role{dev: models.RoleDeveloper, admin: models.RoleAdmin})

		err := f.eng.RemoveMember(ctx, dev.UserID, org.OrgID, admin.UserID)
		require.ErrorIs(t, err, ErrInsufficientRole)

		require.NoError(t, f.eng.RemoveMember(ctx, owner.UserID, org.OrgID, admin.UserID))
		require.Equal(t, rowCounts{orgExists: true, members: 2}, f.counts(t, org.OrgID))
	})

	t.Run("non member", func(t *testing.T) {
		f := newFixture(t)
		owner := f.user(t, "owner", "Owner")
		outsider := f.user(t, "outsider", "Outsider")
		org := f.org(t, owner, "Acme", nil)

		err := f.eng.RemoveMember(ctx, outsider.UserID, org.OrgID, outsider.UserID)
		require.ErrorIs(t, err, ErrNotAMember)
	})
}

// TestOwnerInvariant drives random role changes and removals and checks that
// every organization keeps at least one owner after each step.
func TestOwnerInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users := []*models.User{
		f.user(t, "u0", "U0"),
		f.user(t, "u1", "U1"),
		f.user(t, "u2", "U2"),
		f.user(t, "u3", "U3"),
	}
	org := f.org(t, users[0], "Invariant", map[*models.User]models.Role{
		users[1]: models.RoleOwner,
		users[2]: models.RoleAdmin,
		users[3]: models.RoleDeveloper,
	})

	rng := rand.New(rand.NewPCG(1, 2))
	roles := []models.Role{models.RoleDeveloper, models.RoleAdmin, models.RoleOwner}

	for i := 0; i < 500; i++ {
		caller := users[rng.IntN(len(users))]
		target := users[rng.IntN(len(users))]

		switch rng.IntN(3) {
		case 0:
			_, _ = f.eng.UpdateMemberRole(ctx, caller.UserID, org.OrgID, target.UserID, roles[rng.IntN(len(roles))])
		case 1:
			_ = f.eng.RemoveMember(ctx, caller.UserID, org.OrgID, target.UserID)
		case 2:
			// the first owner found re-adds anyone who left
			owners := f.owners(t, org.OrgID)
			_, _ = f.eng.AddMember(ctx, owners[0], org.OrgID, MemberRef{UserID: target.UserID}, roles[rng.IntN(len(roles))])
		}

		require.NotEmpty(t, f.owners(t, org.OrgID), "step %d left no owner", i)
	}
}
