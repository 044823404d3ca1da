package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// OrganizationServiceClient is a client for the tenancy.v1.OrganizationService service.
type OrganizationServiceClient interface {
	ListOrganizations(context.Context, *connect.Request[ListOrganizationsRequest]) (*connect.Response[ListOrganizationsResponse], error)
	GetOrganization(context.Context, *connect.Request[GetOrganizationRequest]) (*connect.Response[GetOrganizationResponse], error)
	CreateOrganization(context.Context, *connect.Request[CreateOrganizationRequest]) (*connect.Response[CreateOrganizationResponse], error)
	UpdateOrganization(context.Context, *connect.Request[UpdateOrganizationRequest]) (*connect.Response[UpdateOrganizationResponse], error)
	DeleteOrganization(context.Context, *connect.Request[DeleteOrganizationRequest]) (*connect.Response[DeleteOrganizationResponse], error)
	ListMembers(context.Context, *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	UpdateMemberRole(context.Context, *connect.Request[UpdateMemberRoleRequest]) (*connect.Response[UpdateMemberRoleResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
}

// NewOrganizationServiceClient constructs a client for the tenancy.v1.OrganizationService service. The JSON
// codec and zstd decompression are always configured.
func NewOrganizationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) OrganizationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = ClientOptions(opts...)
	return &organizationServiceClient{
		listOrganizations:  connect.NewClient[ListOrganizationsRequest, ListOrganizationsResponse](httpClient, baseURL+ListOrganizationsProcedure, opts...),
		getOrganization:    connect.NewClient[GetOrganizationRequest, GetOrganizationResponse](httpClient, baseURL+GetOrganizationProcedure, opts...),
		createOrganization: connect.NewClient[CreateOrganizationRequest, CreateOrganizationResponse](httpClient, baseURL+CreateOrganizationProcedure, opts...),
		updateOrganization: connect.NewClient[UpdateOrganizationRequest, UpdateOrganizationResponse](httpClient, baseURL+UpdateOrganizationProcedure, opts...),
		deleteOrganization: connect.NewClient[DeleteOrganizationRequest, DeleteOrganizationResponse](httpClient, baseURL+DeleteOrganizationProcedure, opts...),
		listMembers:        connect.NewClient[ListMembersRequest, ListMembersResponse](httpClient, baseURL+ListMembersProcedure, opts...),
		addMember:          connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+AddMemberProcedure, opts...),
		updateMemberRole:   connect.NewClient[UpdateMemberRoleRequest, UpdateMemberRoleResponse](httpClient, baseURL+UpdateMemberRoleProcedure, opts...),
		removeMember:       connect.NewClient[RemoveMemberRequest, RemoveMemberResponse](httpClient, baseURL+RemoveMemberProcedure, opts...),
	}
}

type organizationServiceClient struct {
	listOrganizations  *connect.Client[ListOrganizationsRequest, ListOrganizationsResponse]
	getOrganization    *connect.Client[GetOrganizationRequest, GetOrganizationResponse]
	createOrganization *connect.Client[CreateOrganizationRequest, CreateOrganizationResponse]
	updateOrganization *connect.Client[UpdateOrganizationRequest, UpdateOrganizationResponse]
	deleteOrganization *connect.Client[DeleteOrganizationRequest, DeleteOrganizationResponse]
	listMembers        *connect.Client[ListMembersRequest, ListMembersResponse]
	addMember          *connect.Client[AddMemberRequest, AddMemberResponse]
	updateMemberRole   *connect.Client[UpdateMemberRoleRequest, UpdateMemberRoleResponse]
	removeMember       *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
}

func (c *organizationServiceClient) ListOrganizations(ctx context.Context, req *connect.Request[ListOrganizationsRequest]) (*connect.Response[ListOrganizationsResponse], error) {
	return c.listOrganizations.CallUnary(ctx, req)
}

func (c *organizationServiceClient) GetOrganization(ctx context.Context, req *connect.Request[GetOrganizationRequest]) (*connect.Response[GetOrganizationResponse], error) {
	return c.getOrganization.CallUnary(ctx, req)
}

func (c *organizationServiceClient) CreateOrganization(ctx context.Context, req *connect.Request[CreateOrganizationRequest]) (*connect.Response[CreateOrganizationResponse], error) {
	return c.createOrganization.CallUnary(ctx, req)
}

func (c *organizationServiceClient) UpdateOrganization(ctx context.Context, req *connect.Request[UpdateOrganizationRequest]) (*connect.Response[UpdateOrganizationResponse], error) {
	return c.updateOrganization.CallUnary(ctx, req)
}

func (c *organizationServiceClient) DeleteOrganization(ctx context.Context, req *connect.Request[DeleteOrganizationRequest]) (*connect.Response[DeleteOrganizationResponse], error) {
	return c.deleteOrganization.CallUnary(ctx, req)
}

func (c *organizationServiceClient) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *organizationServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *organizationServiceClient) UpdateMemberRole(ctx context.Context, req *connect.Request[UpdateMemberRoleRequest]) (*connect.Response[UpdateMemberRoleResponse], error) {
	return c.updateMemberRole.CallUnary(ctx, req)
}

func (c *organizationServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

// OrganizationServiceHandler is implemented by the server side of tenancy.v1.OrganizationService.
type OrganizationServiceHandler interface {
	ListOrganizations(context.Context, *connect.Request[ListOrganizationsRequest]) (*connect.Response[ListOrganizationsResponse], error)
	GetOrganization(context.Context, *connect.Request[GetOrganizationRequest]) (*connect.Response[GetOrganizationResponse], error)
	CreateOrganization(context.Context, *connect.Request[CreateOrganizationRequest]) (*connect.Response[CreateOrganizationResponse], error)
	UpdateOrganization(context.Context, *connect.Request[UpdateOrganizationRequest]) (*connect.Response[UpdateOrganizationResponse], error)
	DeleteOrganization(context.Context, *connect.Request[DeleteOrganizationRequest]) (*connect.Response[DeleteOrganizationResponse], error)
	ListMembers(context.Context, *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	UpdateMemberRole(context.Context, *connect.Request[UpdateMemberRoleRequest]) (*connect.Response[UpdateMemberRoleResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
}

// NewOrganizationServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewOrganizationServiceHandler(svc OrganizationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(ListOrganizationsProcedure, connect.NewUnaryHandler(ListOrganizationsProcedure, svc.ListOrganizations, opts...))
	mux.Handle(GetOrganizationProcedure, connect.NewUnaryHandler(GetOrganizationProcedure, svc.GetOrganization, opts...))
	mux.Handle(CreateOrganizationProcedure, connect.NewUnaryHandler(CreateOrganizationProcedure, svc.CreateOrganization, opts...))
	mux.Handle(UpdateOrganizationProcedure, connect.NewUnaryHandler(UpdateOrganizationProcedure, svc.UpdateOrganization, opts...))
	mux.Handle(DeleteOrganizationProcedure, connect.NewUnaryHandler(DeleteOrganizationProcedure, svc.DeleteOrganization, opts...))
	mux.Handle(ListMembersProcedure, connect.NewUnaryHandler(ListMembersProcedure, svc.ListMembers, opts...))
	mux.Handle(AddMemberProcedure, connect.NewUnaryHandler(AddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(UpdateMemberRoleProcedure, connect.NewUnaryHandler(UpdateMemberRoleProcedure, svc.UpdateMemberRole, opts...))
	mux.Handle(RemoveMemberProcedure, connect.NewUnaryHandler(RemoveMemberProcedure, svc.RemoveMember, opts...))
	return OrganizationServicePath, mux
}
