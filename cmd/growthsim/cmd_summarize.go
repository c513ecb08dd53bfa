package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/pathutil"
)

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a growth-curve dataset",
		Long: `Read a CSV or Arrow dataset (chosen by extension) and print one of:

  auc         area under each growth curve (trapezoidal rule)
  aggregate   min, mean, max, and std of replicates per time point
  stationary  readings within --tolerance of their curve's maximum

Examples:
  growthsim summarize data/growth/fake_growth_data.csv
  growthsim summarize run.arrow --kind aggregate --condition Aerobic
  growthsim summarize run.csv --kind stationary --tolerance 0.05 --json`,
		Args: cobra.ExactArgs(1),
		RunE: runSummarize,
	}

	cmd.Flags().String("kind", "auc", "Summary kind: auc, aggregate, or stationary")
	cmd.Flags().String("condition", "", "Only include this condition")
	cmd.Flags().Float64("tolerance", dataset.DefaultStationaryTolerance, "Stationary-phase tolerance below the curve maximum")

	return cmd
}

func runSummarize(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	kind, _ := cmd.Flags().GetString("kind")
	condition, _ := cmd.Flags().GetString("condition")
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")

	switch kind {
	case "auc", "aggregate", "stationary":
	default:
		return fmt.Errorf("unknown summary kind %q (valid: auc, aggregate, stationary)", kind)
	}
	if tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative, got %v", tolerance)
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	root, err := projectRoot(cmd)
	if err != nil {
		return err
	}

	path := args[0]
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	ds, err := dataset.ReadFile(path, dataset.NewOrdered(cfg.Design.Concentrations))
	if err != nil {
		return fmt.Errorf("read %s: %w", pathutil.RedactPath(path), err)
	}
	if condition != "" {
		ds = ds.Filter(dataset.Filter{Condition: condition})
	}

	w := cmd.OutOrStdout()
	switch kind {
	case "auc":
		curves := dataset.AUC(ds)
		if jsonOut {
			return writeJSON(w, map[string]any{"kind": kind, "curves": curves, "count": len(curves)})
		}
		printAUC(w, curves)
	case "aggregate":
		rows := dataset.Summarize(ds)
		if jsonOut {
			return writeJSON(w, map[string]any{"kind": kind, "rows": rows, "count": len(rows)})
		}
		printAggregate(w, rows)
	case "stationary":
		flags := dataset.StationaryFlags(ds, tolerance)
		rows := make([]dataset.Observation, 0, len(flags))
		for i, ok := range flags {
			if ok {
				rows = append(rows, ds.Observations[i])
			}
		}
		if jsonOut {
			return writeJSON(w, map[string]any{"kind": kind, "tolerance": tolerance, "rows": rows, "count": len(rows)})
		}
		printStationary(w, rows, ds.Len(), tolerance)
	}
	return nil
}

func printAUC(w io.Writer, curves []dataset.AUCResult) {
	if len(curves) == 0 {
		fmt.Fprintln(w, "No curves found.")
		return
	}
	fmt.Fprintf(w, "%-10s %-6s %4s %10s\n", "CONDITION", "SFN", "REP", "AUC")
	for _, c := range curves {
		fmt.Fprintf(w, "%-10s %-6s %4d %10.4f\n", c.Condition, c.Concentration, c.Replicate, c.AUC)
	}
	fmt.Fprintf(w, "\n%d curves\n", len(curves))
}

func printAggregate(w io.Writer, rows []dataset.Summary) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No observations found.")
		return
	}
	fmt.Fprintf(w, "%6s %-10s %-6s %3s %8s %8s %8s %8s\n", "TIME", "CONDITION", "SFN", "N", "MIN", "MEAN", "MAX", "STD")
	for _, r := range rows {
		fmt.Fprintf(w, "%6s %-10s %-6s %3d %8.4f %8.4f %8.4f %8.4f\n",
			dataset.FormatFloat(r.Time), r.Condition, r.Concentration, r.Count, r.Min, r.Mean, r.Max, r.Std)
	}
}

func printStationary(w io.Writer, rows []dataset.Observation, total int, tolerance float64) {
	fmt.Fprintf(w, "%d of %d readings within %v of their curve maximum\n", len(rows), total, tolerance)
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%-10s %-6s %4s %6s %8s\n", "CONDITION", "SFN", "REP", "TIME", "OD600")
	for _, o := range rows {
		fmt.Fprintf(w, "%-10s %-6s %4d %6s %8.4f\n", o.Condition, o.Concentration, o.Replicate, dataset.FormatFloat(o.Time), o.OD)
	}
}
