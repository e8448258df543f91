package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/opsline/sentry-mcp/internal/config"
	"github.com/opsline/sentry-mcp/internal/server"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Start the MCP server on stdin/stdout",
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
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (trace, debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log format (text or json)",
			Value: "text",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		SetupLogger(cmd.String("log-level"), cmd.String("log-format"))
		logger := slog.Default()

		cfg, err := config.Resolve(cmd.String("env-file"), cmd.String("config"))
		if err != nil {
			return cli.Exit(fmt.Errorf("failed to load config: %w", err), 1)
		}
		logger.Info("configuration resolved", "config", cfg)

		srv := server.New(cfg, cmd.Root().Version, logger)
		if err := srv.Run(ctx); err != nil {
			return cli.Exit(fmt.Errorf("failed to run server: %w", err), 1)
		}

		logger.Info("server shutdown complete")
		return nil
	},
}
