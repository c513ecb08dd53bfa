// Package mcp provides an MCP (Model Context Protocol) server for growthsim.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/growthsim/internal/config"
	"github.com/nvandessel/growthsim/internal/logging"
	"github.com/nvandessel/growthsim/internal/ratelimit"
	"github.com/nvandessel/growthsim/internal/runner"
)

// Server wraps the MCP SDK server and provides growthsim tools.
type Server struct {
	server  *sdk.Server
	root    string
	cfg     *config.GrowthsimConfig
	runner  *runner.Runner
	logger  *slog.Logger
	journal *logging.RunJournal

	limiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "growthsim")
	Version string // Server version
	Root    string // Project root directory

	// Settings is the loaded growthsim configuration; nil means defaults.
	Settings *config.GrowthsimConfig

	Logger  *slog.Logger
	Journal *logging.RunJournal

	// Limiters throttles tool calls; nil means ratelimit.DefaultToolLimiters.
	Limiters ratelimit.ToolLimiters
}

// NewServer creates a new MCP server with growthsim tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("project root is required")
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	limiters := cfg.Limiters
	if limiters == nil {
		limiters = ratelimit.DefaultToolLimiters()
	}

	s := &Server{
		server:  mcpServer,
		root:    cfg.Root,
		cfg:     settings,
		runner:  runner.New(logger, cfg.Journal),
		logger:  logger,
		journal: cfg.Journal,

		limiters: limiters,
	}
	s.registerTools()

	return s, nil
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.serve(ctx, &sdk.StdioTransport{})
}

func (s *Server) serve(ctx context.Context, t sdk.Transport) error {
	err := s.server.Run(ctx, t)
	if ctx.Err() != nil {
		// Cancellation is a normal shutdown.
		return nil
	}
	return err
}
