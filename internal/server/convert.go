package server

import (
	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

func parseID(field, value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, invalidArgument(field + " is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, invalidArgument("invalid " + field)
	}
	return id, nil
}

func parseRole(value string) (models.Role, error) {
	role, err := models.ParseRole(value)
	if err != nil {
		return 0, invalidArgument(err.Error())
	}
	return role, nil
}

func toOrganization(org *models.Organization, role *models.Role) *rpc.Organization {
	out := &rpc.Organization{
		ID:        org.OrgID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
	if role != nil {
		out.Role = role.String()
	}
	return out
}

func toUserOrganization(org *models.UserOrganization) *rpc.Organization {
	return toOrganization(&org.Organization, &org.Role)
}

func toMember(m *models.Member) *rpc.Member {
	return &rpc.Member{
		UserID:    m.UserID,
		Name:      m.Name,
		Email:     m.Email,
		AvatarURL: m.AvatarURL,
		Role:      m.Role.String(),
		JoinedAt:  m.JoinedAt,
	}
}

func toMembership(m *models.Membership) *rpc.Member {
	return &rpc.Member{
		UserID:   m.UserID,
		Role:     m.Role.String(),
		JoinedAt: m.JoinedAt,
	}
}

func toProject(p *models.Project) *rpc.Project {
	return &rpc.Project{
		ID:          p.ProjectID.String(),
		OrgID:       p.OrgID.String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
