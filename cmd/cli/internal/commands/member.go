package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"connectrpc.com/connect"
	"github.com/wolfeidau/tenancy/internal/rpc"
)

// MemberCmd manages organization memberships.
type MemberCmd struct {
	List    MemberListCmd    `cmd:"" help:"List members of an organization"`
	Add     MemberAddCmd     `cmd:"" help:"Add an existing user to an organization"`
	SetRole MemberSetRoleCmd `cmd:"" name:"set-role" help:"Change a member's role"`
	Remove  MemberRemoveCmd  `cmd:"" help:"Remove a member, or leave an organization"`
}

type MemberListCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
}

func (c *MemberListCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.ListMembers(ctx, connect.NewRequest(&rpc.ListMembersRequest{OrgID: orgID}))
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Members, func(w io.Writer) {
		printMembers(w, resp.Msg.Members...)
	})
}

type MemberAddCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	User     string `arg:"" help:"User ID or email address"`
	Role     string `help:"Role to grant" default:"developer" enum:"owner,admin,developer"`
}

func (c *MemberAddCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	req := &rpc.AddMemberRequest{OrgID: orgID, Role: c.Role}
	if strings.Contains(c.User, "@") {
		req.Email = c.User
	} else {
		req.UserID = c.User
	}

	resp, err := clients.Organizations.AddMember(ctx, connect.NewRequest(req))
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Member, func(w io.Writer) {
		printMembers(w, resp.Msg.Member)
	})
}

type MemberSetRoleCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	UserID   string `arg:"" help:"User ID of the member"`
	Role     string `arg:"" help:"New role" enum:"owner,admin,developer"`
}

func (c *MemberSetRoleCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	resp, err := clients.Organizations.UpdateMemberRole(ctx, connect.NewRequest(&rpc.UpdateMemberRoleRequest{
		OrgID:  orgID,
		UserID: c.UserID,
		Role:   c.Role,
	}))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	return render(globals, c.JSON, resp.Msg.Member, func(w io.Writer) {
		printMembers(w, resp.Msg.Member)
	})
}

type MemberRemoveCmd struct {
	APIFlags `embed:""`
	Org      string `arg:"" help:"Organization ID or slug"`
	UserID   string `arg:"" help:"User ID of the member"`
}

func (c *MemberRemoveCmd) Run(ctx context.Context, globals *Globals) error {
	clients, err := c.clients(globals)
	if err != nil {
		return err
	}

	orgID, err := resolveOrgID(ctx, clients.Organizations, c.Org)
	if err != nil {
		return err
	}

	if _, err := clients.Organizations.RemoveMember(ctx, connect.NewRequest(&rpc.RemoveMemberRequest{OrgID: orgID, UserID: c.UserID})); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	fmt.Fprintf(globals.out(), "Member %s removed from %s.\n", c.UserID, c.Org)
	return nil
}

func printMembers(w io.Writer, members ...*rpc.Member) {
	fmt.Fprintln(w, "USER ID\tNAME\tEMAIL\tROLE\tJOINED")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.UserID, m.Name, m.Email, m.Role, formatTime(m.JoinedAt))
	}
}
