package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/growthsim/internal/config"
	"github.com/nvandessel/growthsim/internal/logging"
	"github.com/nvandessel/growthsim/internal/store"
	"github.com/nvandessel/growthsim/internal/tracing"
)

// cliEnv bundles what every command that touches the project needs.
type cliEnv struct {
	root     string
	cfg      *config.GrowthsimConfig
	logger   *slog.Logger
	journal  *logging.RunJournal
	shutdown func(context.Context) error
}

// loadSettings loads config from --config or the default locations, then
// applies --log-level and validates.
func loadSettings(cmd *cobra.Command) (*config.GrowthsimConfig, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.GrowthsimConfig
		err error
	)
	if path != "" {
		cfg, err = config.LoadPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// projectRoot returns the absolute --root.
func projectRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("root")
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	return abs, nil
}

// openEnv loads settings and starts logging, the run journal, and tracing.
// Callers must Close the result.
func openEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	root, err := projectRoot(cmd)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	shutdown, err := tracing.Setup(cmd.Context(), "growthsim", version, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, err
	}

	return &cliEnv{
		root:     root,
		cfg:      cfg,
		logger:   logger,
		journal:  logging.NewRunJournal(store.LocalPath(root), cfg.Logging.Level),
		shutdown: shutdown,
	}, nil
}

// Close flushes pending spans and closes the journal.
func (e *cliEnv) Close() {
	if err := e.shutdown(context.Background()); err != nil {
		e.logger.Warn("tracing shutdown failed", "error", err)
	}
	e.journal.Close()
}

// openStore opens the run archive for the environment's project.
func (e *cliEnv) openStore() (*store.RunStore, error) {
	rs, err := store.Open(e.cfg.StoreDir(e.root))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return rs, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
