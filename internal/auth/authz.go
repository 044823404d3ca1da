package auth

import (
	"github.com/wolfeidau/tenancy/internal/models"
)

// Operation is an action a member performs against an organization or its projects.
type Operation string

const (
	OpReadOrg       Operation = "org:read"
	OpUpdateOrg     Operation = "org:update"
	OpDeleteOrg     Operation = "org:delete"
	OpListMembers   Operation = "members:list"
	OpManageMembers Operation = "members:manage"
	OpListProjects  Operation = "projects:list"
	OpReadProject   Operation = "project:read"
	OpCreateProject Operation = "project:create"
	OpUpdateProject Operation = "project:update"
	OpDeleteProject Operation = "project:delete"
)

// RequiredRoles maps each operation to the minimum role allowed to perform it.
var RequiredRoles = map[Operation]models.Role{
	OpReadOrg:       models.RoleDeveloper,
	OpListMembers:   models.RoleDeveloper,
	OpListProjects:  models.RoleDeveloper,
	OpReadProject:   models.RoleDeveloper,
	OpCreateProject: models.RoleDeveloper,
	OpUpdateOrg:     models.RoleAdmin,
	OpUpdateProject: models.RoleAdmin,
	OpDeleteProject: models.RoleAdmin,
	OpDeleteOrg:     models.RoleOwner,
	OpManageMembers: models.RoleOwner,
}

// Reason explains a denied decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotAMember
	ReasonInsufficientRole
)

func (r Reason) String() string {
	switch r {
	case ReasonNotAMember:
		return "not a member"
	case ReasonInsufficientRole:
		return "insufficient role"
	default:
		return "none"
	}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// RoleAtLeast reports whether actual grants at least the privileges of required.
func RoleAtLeast(actual, required models.Role) bool {
	return actual >= required
}

// Authorize decides whether the holder of membership may perform op.
// A nil membership means the caller does not belong to the organization.
func Authorize(membership *models.Membership, op Operation) Decision {
	if membership == nil {
		return Decision{Reason: ReasonNotAMember}
	}

	required, ok := RequiredRoles[op]
	if !ok {
		// unknown operations are never allowed
		return Decision{Reason: ReasonInsufficientRole}
	}

	if !RoleAtLeast(membership.Role, required) {
		return Decision{Reason: ReasonInsufficientRole}
	}

	return Decision{Allowed: true}
}
