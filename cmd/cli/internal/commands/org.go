package commands

import (
	"context"
	"fmt"
	"io"

	"connectrpc.com/connect"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

// OrgCmd manages organizations.
type OrgCmd struct {
	List   OrgListCmd   `cmd:"" help:"List organizations you belong to"`
	Get    OrgGetCmd    `cmd:"" help:"Show an organization by ID or slug"`
	Create OrgCreateCmd `cmd:"" help:"Create an organization"`
	Rename OrgRenameCmd `cmd:"" help:"Rename an organization"`
	Delete OrgDeleteCmd `cmd:"" help:"Delete an organization and everything in it"`
}

type OrgListCmd struct {
	APIFlags `embed:""`
}

func (c *OrgListCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.ListOrganizations(ctx, connect.NewRequest(&rpc.ListOrganizationsRequest{}))
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Organizations, func(w io.Writer) {
		if len(resp.Msg.Organizations) == 0 {
			fmt.Fprintln(w, "No organizations found.")
			return
		}
		printOrganizations(w, resp.Msg.Organizations...)
	})
}

type OrgGetCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
}

func (c *OrgGetCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.GetOrganization(ctx, connect.NewRequest(orgRef(c.Org)))
	if err != nil {
		return fmt.Errorf("failed to get organization: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Organization, func(w io.Writer) {
		printOrganizations(w, resp.Msg.Organization)
	})
}

type OrgCreateCmd struct {
	APIFlags `embed:""`
	Name     string `arg:"" help:"Organization name"`
}

func (c *OrgCreateCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.CreateOrganization(ctx, connect.NewRequest(&rpc.CreateOrganizationRequest{Name: c.Name}))
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Organization, func(w io.Writer) {
		printOrganizations(w, resp.Msg.Organization)
	})
}

type OrgRenameCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	Name     string `arg:"" help:"New name"`
}

func (c *OrgRenameCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.UpdateOrganization(ctx, connect.NewRequest(&rpc.UpdateOrganizationRequest{OrgID: orgID, Name: c.Name}))
	if err != nil {
		return fmt.Errorf("failed to rename organization: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Organization, func(w io.Writer) {
		printOrganizations(w, resp.Msg.Organization)
	})
}

type OrgDeleteCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	Force    bool   `help:"Skip confirmation" default:"false"`
}

func (c *OrgDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	if !c.Force && !confirm(globals, fmt.Sprintf("Delete organization %s with all its projects and members?", c.Org)) {
		fmt.Fprintln(globals.out(), "Aborted.")
		return nil
	}

	if _, err := clients.Organizations.DeleteOrganization(ctx, connect.NewRequest(&rpc.DeleteOrganizationRequest{OrgID: orgID})); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	fmt.Fprintf(globals.out(), "Organization %s deleted.\n", c.Org)
	return nil
}

func printOrganizations(w io.Writer, orgs ...*rpc.Organization) {
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tROLE\tCREATED")
	for _, org := range orgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", org.ID, org.Slug, org.Name, org.Role, formatTime(org.CreatedAt))
	}
}

// orgRef addresses an organization by ID when ref parses as a UUID, by slug otherwise.
func orgRef(ref string) *rpc.GetOrganizationRequest {
	if isUUID(ref) {
		return &rpc.GetOrganizationRequest{OrgID: ref}
	}
	return &rpc.GetOrganizationRequest{Slug: ref}
}

// resolveOrgID turns an organization ID or slug into an ID.
func resolveOrgID(ctx context.Context, orgs rpc.OrganizationServiceClient, ref string) (string, error) {
	if isUUID(ref) {
		return ref, nil
	}
	resp, err := orgs.GetOrganization(ctx, connect.NewRequest(orgRef(ref)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve organization %q: %w", ref, err)
	}
	return resp.Msg.Organization.ID, nil
}
