package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/store"
)

// membershipStore implements store.MembershipStore inside a memory transaction.
type membershipStore struct {
	tx *memTx
}

// Create adds a membership, enforcing the (org_id, user_id) unique key and
// the foreign keys to organizations and users.
func (s *membershipStore) Create(ctx context.Context, m *models.Membership) error {
	if err := s.tx.check(ctx, "memberships.create"); err != nil {
		return err
	}

	if _, exists := s.tx.data.organizations[m.OrgID]; !exists {
		return store.ErrOrganizationNotFound
	}
	if _, err := s.tx.store.users.Get(ctx, m.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return store.ErrUserNotFound
		}
		return err
	}

	key := membershipKey{orgID: m.OrgID, userID: m.UserID}
	if _, exists := s.tx.data.memberships[key]; exists {
		return store.ErrMembershipAlreadyExists
	}

	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}

	clone := *m
	s.tx.data.memberships[key] = &clone

	return nil
}

// Get returns a single membership.
func (s *membershipStore) Get(ctx context.Context, orgID uuid.UUID, userID string) (*models.Membership, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	m, exists := s.tx.data.memberships[membershipKey{orgID: orgID, userID: userID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// UpdateRole changes the role of a membership.
func (s *membershipStore) UpdateRole(ctx context.Context, orgID uuid.UUID, userID string, role models.Role) (*models.Membership, error) {
	if err := s.tx.check(ctx, "memberships.update"); err != nil {
		return nil, err
	}

	m, exists := s.tx.data.memberships[membershipKey{orgID: orgID, userID: userID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	m.Role = role

	clone := *m
	return &clone, nil
}

// Delete removes a single membership.
func (s *membershipStore) Delete(ctx context.Context, orgID uuid.UUID, userID string) error {
	if err := s.tx.check(ctx, "memberships.delete"); err != nil {
		return err
	}

	key := membershipKey{orgID: orgID, userID: userID}
	if _, exists := s.tx.data.memberships[key]; !exists {
		return store.ErrMembershipNotFound
	}

	delete(s.tx.data.memberships, key)

	return nil
}

// DeleteByOrg removes all memberships of an organization.
func (s *membershipStore) DeleteByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	if err := s.tx.check(ctx, "memberships.delete"); err != nil {
		return 0, err
	}

	count := 0
	for key := range s.tx.data.memberships {
		if key.orgID == orgID {
			delete(s.tx.data.memberships, key)
			count++
		}
	}

	return count, nil
}

// ListByOrg returns the members of an organization, owners first, then by name.
func (s *membershipStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Member, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	result := make([]*models.Member, 0)
	for key, m := range s.tx.data.memberships {
		if key.orgID != orgID {
			continue
		}
		member := &models.Member{Membership: *m}
		if user, err := s.tx.store.users.Get(ctx, m.UserID); err == nil {
			member.Name = user.Name
			member.Email = user.Email
			member.AvatarURL = user.AvatarURL
		}
		result = append(result, member)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Role != result[j].Role {
			return result[i].Role > result[j].Role
		}
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].UserID < result[j].UserID
	})

	return result, nil
}

// LockOwners returns the owners of an organization. Transactions are already
// serialised so no additional locking is required.
func (s *membershipStore) LockOwners(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	if err := s.tx.check(ctx, ""); err != nil {
		return nil, err
	}

	owners := make([]string, 0)
	for key, m := range s.tx.data.memberships {
		if key.orgID == orgID && m.Role == models.RoleOwner {
			owners = append(owners, key.userID)
		}
	}
	sort.Strings(owners)

	return owners, nil
}
