package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/pathutil"
	"github.com/nvandessel/growthsim/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage archived generation runs",
		Long: `Inspect and maintain the local run archive (.growthsim/growthsim.db).

Runs are added by "growthsim generate --archive" or with store.archive
set in the config.`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsExportCmd(),
		newRunsDeleteCmd(),
		newRunsPruneCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			rs, err := env.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			runs, err := rs.ListRuns(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				type jsonEntry struct {
					ID        string `json:"id"`
					CreatedAt string `json:"created_at"`
					Seed      uint64 `json:"seed"`
					RowCount  int    `json:"row_count"`
				}
				entries := make([]jsonEntry, 0, len(runs))
				for _, r := range runs {
					entries = append(entries, jsonEntry{
						ID:        r.ID,
						CreatedAt: r.CreatedAt.Format(time.RFC3339),
						Seed:      r.Seed,
						RowCount:  r.RowCount,
					})
				}
				return writeJSON(w, map[string]any{
					"runs":        entries,
					"total_count": len(entries),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(w, "No archived runs.")
				return nil
			}
			fmt.Fprintf(w, "%-36s  %-20s  %20s  %5s\n", "ID", "CREATED", "SEED", "ROWS")
			for _, r := range runs {
				fmt.Fprintf(w, "%-36s  %-20s  %20d  %5d\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Seed, r.RowCount)
			}
			fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run's metadata and design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			rs, err := env.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			run, err := rs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(w, run)
			}

			fmt.Fprintf(w, "Run:     %s\n", run.ID)
			fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(w, "Seed:    %d\n", run.Seed)
			fmt.Fprintf(w, "Rows:    %d\n", run.RowCount)
			fmt.Fprintln(w, "\nDesign:")
			data, err := yaml.Marshal(run.Design)
			if err != nil {
				return fmt.Errorf("marshal design: %w", err)
			}
			_, err = w.Write(data)
			return err
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id> <path>",
		Short: "Write an archived run's dataset to a file",
		Long: `Write the observations of an archived run to a CSV or Arrow file.

Examples:
  growthsim runs export 3f2c... data/growth/replay.csv
  growthsim runs export 3f2c... replay.arrow`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			formatName, _ := cmd.Flags().GetString("format")
			headerName, _ := cmd.Flags().GetString("header")

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			path := args[1]
			if !filepath.IsAbs(path) {
				path = filepath.Join(env.root, path)
			}
			if formatName == "" {
				formatName = string(dataset.FormatFromPath(path))
			}
			format, err := dataset.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if headerName == "" {
				headerName = env.cfg.Output.Header
			}
			header, err := dataset.ParseHeader(headerName)
			if err != nil {
				return err
			}

			rs, err := env.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			ds, err := rs.LoadDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := dataset.WriteFile(path, ds, format, header); err != nil {
				return fmt.Errorf("write %s: %w", pathutil.RedactPath(path), err)
			}
			env.logger.Info("run exported", "run_id", args[0], "path", path, "rows", ds.Len())

			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(w, map[string]any{
					"run_id": args[0],
					"path":   path,
					"format": format,
					"rows":   ds.Len(),
				})
			}
			fmt.Fprintf(w, "Exported %d rows from run %s to %s\n", ds.Len(), args[0], pathutil.RedactPath(path))
			return nil
		},
	}

	cmd.Flags().String("format", "", "Output format: csv or arrow (default from extension)")
	cmd.Flags().String("header", "", "CSV header style: display or snake")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			rs, err := env.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			if err := rs.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			env.logger.Info("run deleted", "run_id", args[0])

			w := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(w, map[string]any{"deleted": args[0]})
			}
			fmt.Fprintf(w, "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newRunsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs outside the retention policy",
		Long: `Delete archived runs that no retention rule keeps. A run survives if it
is among the --keep newest OR younger than --max-age.

Examples:
  growthsim runs prune --keep 10
  growthsim runs prune --max-age 30d
  growthsim runs prune --keep 5 --max-age 2w`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			keepSet := cmd.Flags().Changed("keep")
			maxAgeStr, _ := cmd.Flags().GetString("max-age")

			var policies []store.RetentionPolicy
			if keepSet {
				keep, _ := cmd.Flags().GetInt("keep")
				if keep < 0 {
					return fmt.Errorf("--keep must be non-negative, got %d", keep)
				}
				policies = append(policies, &store.CountPolicy{MaxCount: keep})
			}
			if maxAgeStr != "" {
				maxAge, err := store.ParseDuration(maxAgeStr)
				if err != nil {
					return fmt.Errorf("invalid --max-age: %w", err)
				}
				policies = append(policies, &store.AgePolicy{MaxAge: maxAge})
			}
			if len(policies) == 0 {
				return fmt.Errorf("prune needs --keep or --max-age")
			}

			var policy store.RetentionPolicy = &store.CompositePolicy{Policies: policies}
			if len(policies) == 1 {
				policy = policies[0]
			}

			env, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			rs, err := env.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			deleted, err := rs.ApplyRetention(cmd.Context(), policy)
			if err != nil {
				return err
			}
			env.logger.Info("archive pruned", "deleted", len(deleted))

			w := cmd.OutOrStdout()
			if jsonOut {
				if deleted == nil {
					deleted = []string{}
				}
				return writeJSON(w, map[string]any{"deleted": deleted, "count": len(deleted)})
			}
			if len(deleted) == 0 {
				fmt.Fprintln(w, "Nothing to prune.")
				return nil
			}
			for _, id := range deleted {
				fmt.Fprintf(w, "Deleted %s\n", id)
			}
			fmt.Fprintf(w, "\nPruned %d runs\n", len(deleted))
			return nil
		},
	}

	cmd.Flags().Int("keep", 0, "Keep the N newest runs")
	cmd.Flags().String("max-age", "", "Keep runs younger than this (e.g. 30d, 2w, 72h)")
	return cmd
}
