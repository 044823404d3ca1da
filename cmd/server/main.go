package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/tenancy/cmd/server/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Dev      bool   `help:"Enable development mode (debug logging, console output)." env:"TENANCY_DEV"`
		LogLevel string `help:"Log level (trace, debug, info, warn, error)." env:"TENANCY_LOG_LEVEL"`
		Version  kong.VersionFlag
		Serve    commands.ServeCmd   `cmd:"" default:"1" help:"Start the API server"`
		Migrate  commands.MigrateCmd `cmd:"" help:"Apply PostgreSQL migrations and exit"`
		Seed     commands.SeedCmd    `cmd:"" help:"Load development fixtures from a YAML file"`
	}
)

func main() {
	// values already in the environment win over .env
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env")
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tenancy-server"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Dev: cli.Dev, LogLevel: cli.LogLevel, Version: version})
	cmd.FatalIfErrorf(err)
}
