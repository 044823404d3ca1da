package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ProjectServiceClient is a client for the tenancy.v1.ProjectService service.
type ProjectServiceClient interface {
	ListProjects(context.Context, *connect.Request[ListProjectsRequest]) (*connect.Response[ListProjectsResponse], error)
	GetProject(context.Context, *connect.Request[GetProjectRequest]) (*connect.Response[GetProjectResponse], error)
	CreateProject(context.Context, *connect.Request[CreateProjectRequest]) (*connect.Response[CreateProjectResponse], error)
	UpdateProject(context.Context, *connect.Request[UpdateProjectRequest]) (*connect.Response[UpdateProjectResponse], error)
	DeleteProject(context.Context, *connect.Request[DeleteProjectRequest]) (*connect.Response[DeleteProjectResponse], error)
}

// NewProjectServiceClient constructs a client for the tenancy.v1.ProjectService service. The JSON
// codec and zstd decompression are always configured.
func NewProjectServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ProjectServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = ClientOptions(opts...)
	return &projectServiceClient{
		listProjects:  connect.NewClient[ListProjectsRequest, ListProjectsResponse](httpClient, baseURL+ListProjectsProcedure, opts...),
		getProject:    connect.NewClient[GetProjectRequest, GetProjectResponse](httpClient, baseURL+GetProjectProcedure, opts...),
		createProject: connect.NewClient[CreateProjectRequest, CreateProjectResponse](httpClient, baseURL+CreateProjectProcedure, opts...),
		updateProject: connect.NewClient[UpdateProjectRequest, UpdateProjectResponse](httpClient, baseURL+UpdateProjectProcedure, opts...),
		deleteProject: connect.NewClient[DeleteProjectRequest, DeleteProjectResponse](httpClient, baseURL+DeleteProjectProcedure, opts...),
	}
}

type projectServiceClient struct {
	listProjects  *connect.Client[ListProjectsRequest, ListProjectsResponse]
	getProject    *connect.Client[GetProjectRequest, GetProjectResponse]
	createProject *connect.Client[CreateProjectRequest, CreateProjectResponse]
	updateProject *connect.Client[UpdateProjectRequest, UpdateProjectResponse]
	deleteProject *connect.Client[DeleteProjectRequest, DeleteProjectResponse]
}

func (c *projectServiceClient) ListProjects(ctx context.Context, req *connect.Request[ListProjectsRequest]) (*connect.Response[ListProjectsResponse], error) {
	return c.listProjects.CallUnary(ctx, req)
}

func (c *projectServiceClient) GetProject(ctx context.Context, req *connect.Request[GetProjectRequest]) (*connect.Response[GetProjectResponse], error) {
	return c.getProject.CallUnary(ctx, req)
}

func (c *projectServiceClient) CreateProject(ctx context.Context, req *connect.Request[CreateProjectRequest]) (*connect.Response[CreateProjectResponse], error) {
	return c.createProject.CallUnary(ctx, req)
}

func (c *projectServiceClient) UpdateProject(ctx context.Context, req *connect.Request[UpdateProjectRequest]) (*connect.Response[UpdateProjectResponse], error) {
	return c.updateProject.CallUnary(ctx, req)
}

func (c *projectServiceClient) DeleteProject(ctx context.Context, req *connect.Request[DeleteProjectRequest]) (*connect.Response[DeleteProjectResponse], error) {
	return c.deleteProject.CallUnary(ctx, req)
}

// ProjectServiceHandler is implemented by the server side of tenancy.v1.ProjectService.
type ProjectServiceHandler interface {
	ListProjects(context.Context, *connect.Request[ListProjectsRequest]) (*connect.Response[ListProjectsResponse], error)
	GetProject(context.Context, *connect.Request[GetProjectRequest]) (*connect.Response[GetProjectResponse], error)
	CreateProject(context.Context, *connect.Request[CreateProjectRequest]) (*connect.Response[CreateProjectResponse], error)
	UpdateProject(context.Context, *connect.Request[UpdateProjectRequest]) (*connect.Response[UpdateProjectResponse], error)
	DeleteProject(context.Context, *connect.Request[DeleteProjectRequest]) (*connect.Response[DeleteProjectResponse], error)
}

// NewProjectServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewProjectServiceHandler(svc ProjectServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = HandlerOptions(opts...)
	mux := http.NewServeMux()
	mux.Handle(ListProjectsProcedure, connect.NewUnaryHandler(ListProjectsProcedure, svc.ListProjects, opts...))
	mux.Handle(GetProjectProcedure, connect.NewUnaryHandler(GetProjectProcedure, svc.GetProject, opts...))
	mux.Handle(CreateProjectProcedure, connect.NewUnaryHandler(CreateProjectProcedure, svc.CreateProject, opts...))
	mux.Handle(UpdateProjectProcedure, connect.NewUnaryHandler(UpdateProjectProcedure, svc.UpdateProject, opts...))
	mux.Handle(DeleteProjectProcedure, connect.NewUnaryHandler(DeleteProjectProcedure, svc.DeleteProject, opts...))
	return ProjectServicePath, mux
}
