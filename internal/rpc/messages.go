package rpc

import "time"

// Organization as seen by the caller, including the caller's role.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member of an organization. Name, Email and AvatarURL are empty when only
// the membership itself was returned.
type Member struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

type Project struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ListOrganizationsRequest struct{}

type ListOrganizationsResponse struct {
	Organizations []*Organization `json:"organizations"`
}

// GetOrganizationRequest addresses an organization by OrgID or, when empty, by Slug.
type GetOrganizationRequest struct {
	OrgID string `json:"org_id,omitempty"`
	Slug  string `json:"slug,omitempty"`
}

type GetOrganizationResponse struct {
	Organization *Organization `json:"organization"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

type CreateOrganizationResponse struct {
	Organization *Organization `json:"organization"`
}

type UpdateOrganizationRequest struct {
	OrgID string `json:"org_id"`
	Name  string `json:"name"`
}

type UpdateOrganizationResponse struct {
	Organization *Organization `json:"organization"`
}

type DeleteOrganizationRequest struct {
	OrgID string `json:"org_id"`
}

type DeleteOrganizationResponse struct{}

type ListMembersRequest struct {
	OrgID string `json:"org_id"`
}

type ListMembersResponse struct {
	Members []*Member `json:"members"`
}

// AddMemberRequest identifies the user by UserID or, when empty, by Email.
type AddMemberRequest struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type UpdateMemberRoleRequest struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type UpdateMemberRoleResponse struct {
	Member *Member `json:"member"`
}

type RemoveMemberRequest struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id"`
}

type RemoveMemberResponse struct{}

type ListProjectsRequest struct {
	OrgID string `json:"org_id"`
}

type ListProjectsResponse struct {
	Projects []*Project `json:"projects"`
}

// GetProjectRequest addresses a project by ProjectID or, when empty, by Slug.
type GetProjectRequest struct {
	OrgID     string `json:"org_id"`
	ProjectID string `json:"project_id,omitempty"`
	Slug      string `json:"slug,omitempty"`
}

type GetProjectResponse struct {
	Project *Project `json:"project"`
}

// CreateProjectRequest derives the slug from Name when Slug is nil.
type CreateProjectRequest struct {
	OrgID       string  `json:"org_id"`
	Name        string  `json:"name"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateProjectResponse struct {
	Project *Project `json:"project"`
}

// UpdateProjectRequest changes the fields that are set. ClearDescription
// removes the description and takes precedence over Description.
type UpdateProjectRequest struct {
	OrgID            string  `json:"org_id"`
	ProjectID        string  `json:"project_id"`
	Name             *string `json:"name,omitempty"`
	Description      *string `json:"description,omitempty"`
	ClearDescription bool    `json:"clear_description,omitempty"`
}

type UpdateProjectResponse struct {
	Project *Project `json:"project"`
}

type DeleteProjectRequest struct {
	OrgID     string `json:"org_id"`
	ProjectID string `json:"project_id"`
}

type DeleteProjectResponse struct{}
