package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/opsline/sentry-mcp/internal/config"
)

var validateCmd = &cli.Command{
	Name:    "validate",
	Aliases: []string{"lint"},
	Usage:   "Resolve and validate the configuration, then exit",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to TOML configuration file (environment variables take precedence)",
			Aliases: []string{"c"},
		},
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Path to a dotenv file loaded before resolving the configuration",
			Aliases: []string{"e"},
		},
	},
	Action: validateAction,
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Resolve(cmd.String("env-file"), cmd.String("config"))
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Configuration is valid\n%s\n", cfg)
	return nil
}
