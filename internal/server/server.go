// Package server assembles the MCP server: it wires the Sentry API
// client and the tool registry together and runs the stdio transport.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opsline/sentry-mcp/internal/config"
	"github.com/opsline/sentry-mcp/internal/sentry"
	"github.com/opsline/sentry-mcp/internal/tools"
)

const serverName = "sentry-mcp"

// Server is a configured MCP server ready to run over stdio.
type Server struct {
	mcpServer *mcp.Server
	logger    *slog.Logger
}

// New builds the server from a validated configuration. The returned
// server holds no open resources until Run is called.
func New(cfg *config.Config, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	client := sentry.NewClient(cfg, sentry.WithLogger(logger.WithGroup("sentry")))

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)
	tools.NewRegistry(client, logger).Register(mcpServer)

	logger.Debug("server assembled",
		"org", cfg.Org,
		"project", cfg.ProjectRef(),
		"base_url", cfg.BaseURL.String(),
	)

	return &Server{mcpServer: mcpServer, logger: logger}
}

// Run serves MCP over stdin/stdout until the context is cancelled or
// the client disconnects. All logging goes to stderr; stdout carries
// only protocol frames.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
