package server

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/wolfeidau/tenancy/internal/engine"
	"github.com/wolfeidau/tenancy/internal/models"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

var _ rpc.ProjectServiceHandler = &ProjectServiceServer{}

// ProjectServiceServer implements tenancy.v1.ProjectService on top of the engine.
type ProjectServiceServer struct {
	engine *engine.Engine
}

// NewProjectServiceServer creates a new ProjectService server.
func NewProjectServiceServer(eng *engine.Engine) *ProjectServiceServer {
	return &ProjectServiceServer{engine: eng}
}

func (s *ProjectServiceServer) ListProjects(
	ctx context.Context,
	req *connect.Request[rpc.ListProjectsRequest],
) (*connect.Response[rpc.ListProjectsResponse], error) {
	caller, orgID, err := s.scope(ctx, req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	projects, err := s.engine.ListProjectsForOrg(ctx, caller, orgID)
	if err != nil {
		return nil, connectError(rpc.ListProjectsProcedure, err)
	}

	out := make([]*rpc.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProject(p))
	}

	return connect.NewResponse(&rpc.ListProjectsResponse{Projects: out}), nil
}

func (s *ProjectServiceServer) GetProject(
	ctx context.Context,
	req *connect.Request[rpc.GetProjectRequest],
) (*connect.Response[rpc.GetProjectResponse], error) {
	caller, orgID, err := s.scope(ctx, req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	var project *models.Project
	switch {
	case req.Msg.ProjectID != "":
		projectID, perr := parseID("project_id", req.Msg.ProjectID)
		if perr != nil {
			return nil, perr
		}
		project, err = s.engine.GetProject(ctx, caller, orgID, projectID)
	case req.Msg.Slug != "":
		project, err = s.engine.GetProjectBySlug(ctx, caller, orgID, req.Msg.Slug)
	default:
		return nil, invalidArgument("project_id or slug is required")
	}
	if err != nil {
		return nil, connectError(rpc.GetProjectProcedure, err)
	}

	return connect.NewResponse(&rpc.GetProjectResponse{Project: toProject(project)}), nil
}

func (s *ProjectServiceServer) CreateProject(
	ctx context.Context,
	req *connect.Request[rpc.CreateProjectRequest],
) (*connect.Response[rpc.CreateProjectResponse], error) {
	caller, orgID, err := s.scope(ctx, req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	project, err := s.engine.CreateProject(ctx, caller, orgID, engine.CreateProjectInput{
		Name:        req.Msg.Name,
		Slug:        req.Msg.Slug,
		Description: req.Msg.Description,
	})
	if err != nil {
		return nil, connectError(rpc.CreateProjectProcedure, err)
	}

	return connect.NewResponse(&rpc.CreateProjectResponse{Project: toProject(project)}), nil
}

func (s *ProjectServiceServer) UpdateProject(
	ctx context.Context,
	req *connect.Request[rpc.UpdateProjectRequest],
) (*connect.Response[rpc.UpdateProjectResponse], error) {
	caller, orgID, err := s.scope(ctx, req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	projectID, err := parseID("project_id", req.Msg.ProjectID)
	if err != nil {
		return nil, err
	}

	in := engine.UpdateProjectInput{Name: req.Msg.Name}
	switch {
	case req.Msg.ClearDescription:
		in.SetDescription = true
	case req.Msg.Description != nil:
		in.Description = req.Msg.Description
		in.SetDescription = true
	}
	if in.Name == nil && !in.SetDescription {
		return nil, invalidArgument("nothing to update")
	}

	project, err := s.engine.UpdateProject(ctx, caller, orgID, projectID, in)
	if err != nil {
		return nil, connectError(rpc.UpdateProjectProcedure, err)
	}

	return connect.NewResponse(&rpc.UpdateProjectResponse{Project: toProject(project)}), nil
}

func (s *ProjectServiceServer) DeleteProject(
	ctx context.Context,
	req *connect.Request[rpc.DeleteProjectRequest],
) (*connect.Response[rpc.DeleteProjectResponse], error) {
	caller, orgID, err := s.scope(ctx, req.Msg.OrgID)
	if err != nil {
		return nil, err
	}

	projectID, err := parseID("project_id", req.Msg.ProjectID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.DeleteProject(ctx, caller, orgID, projectID); err != nil {
		return nil, connectError(rpc.DeleteProjectProcedure, err)
	}

	return connect.NewResponse(&rpc.DeleteProjectResponse{}), nil
}

// scope resolves the caller and the organization every project call is addressed to.
func (s *ProjectServiceServer) scope(ctx context.Context, rawOrgID string) (string, uuid.UUID, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", uuid.Nil, err
	}
	orgID, err := parseID("org_id", rawOrgID)
	if err != nil {
		return "", uuid.Nil, err
	}
	return caller, orgID, nil
}
