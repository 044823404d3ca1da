package server

import (
	"context"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

var _ rpc.OrganizationServiceHandler = &OrganizationServiceServer{}

// OrganizationServiceServer implements tenancy.v1.OrganizationService on top of the engine.
type OrganizationServiceServer struct {
	engine *engine.Engine
}

// NewOrganizationServiceServer creates a new OrganizationService server.
func NewOrganizationServiceServer(eng *engine.Engine) *OrganizationServiceServer {
	return &OrganizationServiceServer{engine: eng}
}

func (s *OrganizationServiceServer) ListOrganizations(
	ctx context.Context,
	req *connect.Request[rpc.ListOrganizationsRequest],
) (*connect.Response[rpc.ListOrganizationsResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgs, err := s.engine.ListOrganizationsForUser(ctx, caller)
	if err != nil {
		return nil, connectError(rpc.ListOrganizationsProcedure, err)
	}

	out := make([]*rpc.Organization, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, toUserOrganization(org))
	}

	return connect.NewResponse(&rpc.ListOrganizationsResponse{Organizations: out}), nil
}

func (s *OrganizationServiceServer) GetOrganization(
	ctx context.Context,
	req *connect.Request[rpc.GetOrganizationRequest],
) (*connect.Response[rpc.GetOrganizationResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	var org *models.UserOrganization
	switch {
	case req.Msg.OrgID != "":
		orgID, perr := parseID("org_id", req.Msg.OrgID)
		if perr != nil {
			return nil, perr
		}
		org, err = s.engine.GetOrganization(ctx, caller, orgID)
	case req.Msg.Slug != "":
		org, err = s.engine.GetOrganizationBySlug(ctx, caller, req.Msg.Slug)
	default:
		return nil, invalidArgument("org_id or slug is required")
	}
	if err != nil {
		return nil, connectError(rpc.GetOrganizationProcedure, err)
	}

	return connect.NewResponse(&rpc.GetOrganizationResponse{Organization: toUserOrganization(org)}), nil
}

func (s *OrganizationServiceServer) CreateOrganization(
	ctx context.Context,
	req *connect.Request[rpc.CreateOrganizationRequest],
) (*connect.Response[rpc.CreateOrganizationResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.engine.CreateOrganization(ctx, caller, req.Msg.Name)
	if err != nil {
		return nil, connectError(rpc.CreateOrganizationProcedure, err)
	}

	owner := models.RoleOwner
	return connect.NewResponse(&rpc.CreateOrganizationResponse{Organization: toOrganization(org, &owner)}), nil
}

func (s *OrganizationServiceServer) UpdateOrganization(
	ctx context.Context,
	req *connect.Request[rpc.UpdateOrganizationRequest],
) (*connect.Response[rpc.UpdateOrganizationResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	org, err := s.engine.RenameOrganization(ctx, caller, orgID, req.Msg.Name)
	if err != nil {
		return nil, connectError(rpc.UpdateOrganizationProcedure, err)
	}

	return connect.NewResponse(&rpc.UpdateOrganizationResponse{Organization: toOrganization(org, nil)}), nil
}

func (s *OrganizationServiceServer) DeleteOrganization(
	ctx context.Context,
	req *connect.Request[rpc.DeleteOrganizationRequest],
) (*connect.Response[rpc.DeleteOrganizationResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.DeleteOrganization(ctx, caller, orgID); err != nil {
		return nil, connectError(rpc.DeleteOrganizationProcedure, err)
	}

	log.Debug().Str("org_id", orgID.String()).Str("caller_id", caller).Msg("DeleteOrganization success")

	return connect.NewResponse(&rpc.DeleteOrganizationResponse{}), nil
}

func (s *OrganizationServiceServer) ListMembers(
	ctx context.Context,
	req *connect.Request[rpc.ListMembersRequest],
) (*connect.Response[rpc.ListMembersResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	members, err := s.engine.ListMembers(ctx, caller, orgID)
	if err != nil {
		return nil, connectError(rpc.ListMembersProcedure, err)
	}

	out := make([]*rpc.Member, 0, len(members))
	for _, m := range members {
		out = append(out, toMember(m))
	}

	return connect.NewResponse(&rpc.ListMembersResponse{Members: out}), nil
}

func (s *OrganizationServiceServer) AddMember(
	ctx context.Context,
	req *connect.Request[rpc.AddMemberRequest],
) (*connect.Response[rpc.AddMemberResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	role, err := parseRole(req.Msg.Role)
	if err != nil {
		return nil, err
	}

	member, err := s.engine.AddMember(ctx, caller, orgID, engine.MemberRef{UserID: req.Msg.UserID, Email: req.Msg.Email}, role)
	if err != nil {
		return nil, connectError(rpc.AddMemberProcedure, err)
	}

	return connect.NewResponse(&rpc.AddMemberResponse{Member: toMember(member)}), nil
}

func (s *OrganizationServiceServer) UpdateMemberRole(
	ctx context.Context,
	req *connect.Request[rpc.UpdateMemberRoleRequest],
) (*connect.Response[rpc.UpdateMemberRoleResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}
	if req.Msg.UserID == "" {
		return nil, invalidArgument("user_id is required")
	}

	role, err := parseRole(req.Msg.Role)
	if err != nil {
		return nil, err
	}

	membership, err := s.engine.UpdateMemberRole(ctx, caller, orgID, req.Msg.UserID, role)
	if err != nil {
		return nil, connectError(rpc.UpdateMemberRoleProcedure, err)
	}

	return connect.NewResponse(&rpc.UpdateMemberRoleResponse{Member: toMembership(membership)}), nil
}

func (s *OrganizationServiceServer) RemoveMember(
	ctx context.Context,
	req *connect.Request[rpc.RemoveMemberRequest],
) (*connect.Response[rpc.RemoveMemberResponse], error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	orgID, err := parseID("org_id", req.Msg.OrgID)
	if err != nil {
		return nil, err
	}
	if req.Msg.UserID == "" {
		return nil, invalidArgument("user_id is required")
	}

	if err := s.engine.RemoveMember(ctx, caller, orgID, req.Msg.UserID); err != nil {
		return nil, connectError(rpc.RemoveMemberProcedure, err)
	}

	return connect.NewResponse(&rpc.RemoveMemberResponse{}), nil
}
