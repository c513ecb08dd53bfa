package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/growthsim/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve growthsim tools over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing:

  growth_generate  simulate and write a dataset under --root
  growth_auc       area under each curve of a dataset or archived run
  growth_runs      list archived runs

Logs go to stderr so they never mix with protocol traffic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "growthsim",
				Version:  version,
				Root:     env.root,
				Settings: env.cfg,
				Logger:   env.logger,
				Journal:  env.journal,
			})
			if err != nil {
				return err
			}

			env.logger.Info("mcp server starting", "root", env.root)
			return server.Run(cmd.Context())
		},
	}
}
