package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a unit of work owned by exactly one organization.
// The slug is unique within the organization and never changes.
type Project struct {
	ProjectID   uuid.UUID // UUIDv7
	OrgID       uuid.UUID
	Name        string
	Slug        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
