package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login       commands.LoginCmd       `cmd:"" help:"Sign in and store a bearer token"`
		Signup      commands.SignUpCmd      `cmd:"" help:"Create an account and store a bearer token"`
		Logout      commands.LogoutCmd      `cmd:"" help:"Forget a stored credential"`
		Org         commands.OrgCmd         `cmd:"" help:"Manage organizations"`
		Member      commands.MemberCmd      `cmd:"" help:"Manage organization members"`
		Project     commands.ProjectCmd     `cmd:"" help:"Manage projects"`
		Credentials commands.CredentialsCmd `cmd:"" help:"Manage stored credentials"`
		Debug       bool                    `help:"Enable debug mode."`
		Version     kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tenancy"),
		kong.Description("Manage organizations, members and projects."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	level := zerolog.WarnLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
