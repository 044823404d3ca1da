package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a member's level of access within an organization.
// Roles are ordered: Developer < Admin < Owner.
type Role int

const (
	RoleDeveloper Role = iota
	RoleAdmin
	RoleOwner
)

var roleNames = map[Role]string{
	RoleDeveloper: "developer",
	RoleAdmin:     "admin",
	RoleOwner:     "owner",
}

// ParseRole converts the wire name of a role into a Role.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// String returns the wire name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Membership links a user to an organization with a role.
// (OrgID, UserID) is unique.
type Membership struct {
	OrgID    uuid.UUID
	UserID   string
	Role     Role
	JoinedAt time.Time
}

// Member is a membership joined with the member's user profile.
type Member struct {
	Membership
	Name      string
	Email     string
	AvatarURL string
}
