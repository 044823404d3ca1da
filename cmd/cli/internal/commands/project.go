package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

// ProjectCmd manages projects inside an organization.
type ProjectCmd struct {
	List   ProjectListCmd   `cmd:"" help:"List projects in an organization"`
	Get    ProjectGetCmd    `cmd:"" help:"Show a project by ID or slug"`
	Create ProjectCreateCmd `cmd:"" help:"Create a project"`
	Update ProjectUpdateCmd `cmd:"" help:"Rename a project or change its description"`
	Delete ProjectDeleteCmd `cmd:"" help:"Delete a project"`
}

type ProjectListCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
}

func (c *ProjectListCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	resp, err := clients.Projects.ListProjects(ctx, connect.NewRequest(&rpc.ListProjectsRequest{OrgID: orgID}))
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Projects, func(w io.Writer) {
		if len(resp.Msg.Projects) == 0 {
			fmt.Fprintln(w, "No projects found.")
			return
		}
		printProjects(w, resp.Msg.Projects...)
	})
}

type ProjectGetCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	Project  string `arg:"" help:"Project ID or slug"`
}

func (c *ProjectGetCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	req := &rpc.GetProjectRequest{OrgID: orgID}
	if isUUID(c.Project) {
		req.ProjectID = c.Project
	} else {
		req.Slug = c.Project
	}

	resp, err := clients.Projects.GetProject(ctx, connect.NewRequest(req))
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Project, func(w io.Writer) {
		printProjects(w, resp.Msg.Project)
	})
}

type ProjectCreateCmd struct {
	APIFlags    `embed:""`
	Org         string  `arg:"" help:"Organization ID or slug"`
	Name        string  `arg:"" help:"Project name"`
	Slug        *string `help:"Project slug, derived from the name when omitted"`
	Description *string `help:"Project description"`
}

func (c *ProjectCreateCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	resp, err := clients.Projects.CreateProject(ctx, connect.NewRequest(&rpc.CreateProjectRequest{
		OrgID:       orgID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
	}))
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Project, func(w io.Writer) {
		printProjects(w, resp.Msg.Project)
	})
}

type ProjectUpdateCmd struct {
	APIFlags         `embed:""`
	Org              string  `arg:"" help:"Organization ID or slug"`
	Project          string  `arg:"" help:"Project ID or slug"`
	Name             *string `help:"New name, the slug does not change"`
	Description      *string `help:"New description" xor:"description"`
	ClearDescription bool    `help:"Remove the description" xor:"description"`
}

func (c *ProjectUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	if c.Name == nil && c.Description == nil && !c.ClearDescription {
		return errors.New("nothing to update: pass --name, --description or --clear-description")
	}

	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, projectID, err := resolveProject(ctx, clients.Organizations, clients.Projects, c.Org, c.Project)
	if err != nil {
		return err
	}

	resp, err := clients.Projects.UpdateProject(ctx, connect.NewRequest(&rpc.UpdateProjectRequest{
		OrgID:            orgID,
		ProjectID:        projectID,
		Name:             c.Name,
		Description:      c.Description,
		ClearDescription: c.ClearDescription,
	}))
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Project, func(w io.Writer) {
		printProjects(w, resp.Msg.Project)
	})
}

type ProjectDeleteCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	Project  string `arg:"" help:"Project ID or slug"`
	Force    bool   `help:"Skip confirmation" default:"false"`
}

func (c *ProjectDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, projectID, err := resolveProject(ctx, clients.Organizations, clients.Projects, c.Org, c.Project)
	if err != nil {
		return err
	}

	if !c.Force && !confirm(globals, fmt.Sprintf("Delete project %s?", c.Project)) {
		fmt.Fprintln(globals.out(), "Aborted.")
		return nil
	}

	if _, err := clients.Projects.DeleteProject(ctx, connect.NewRequest(&rpc.DeleteProjectRequest{OrgID: orgID, ProjectID: projectID})); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Fprintf(globals.out(), "Project %s deleted.\n", c.Project)
	return nil
}

func printProjects(w io.Writer, projects ...*rpc.Project) {
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tDESCRIPTION\tUPDATED")
	for _, p := range projects {
		description := ""
		if p.Description != nil {
			description = truncate(*p.Description, 40)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Slug, p.Name, description, formatTime(p.UpdatedAt))
	}
}

// resolveProject turns organization and project references into IDs.
func resolveProject(ctx context.Context, orgs rpc.OrganizationServiceClient, projects rpc.ProjectServiceClient, orgRef, projectRef string) (string, string, error) {
	orgID, err := resolveOrgID(ctx, orgs, orgRef)
	if err != nil {
		return "", "", err
	}
	if isUUID(projectRef) {
		return orgID, projectRef, nil
	}

	resp, err := projects.GetProject(ctx, connect.NewRequest(&rpc.GetProjectRequest{OrgID: orgID, Slug: projectRef}))
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve project %q: %w", projectRef, err)
	}
	return orgID, resp.Msg.Project.ID, nil
}
