package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents an organization (tenant) in the system.
// Each organization has members with roles and owns projects.
type Organization struct {
	OrgID     uuid.UUID // UUIDv7
	Name      string
	Slug      string // globally unique, immutable after creation
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserOrganization is an organization as seen by one of its members.
type UserOrganization struct {
	Organization
	Role Role
}
