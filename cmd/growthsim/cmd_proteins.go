package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nvandessel/growthsim/internal/pathutil"
	"github.com/nvandessel/growthsim/internal/proteomics"
)

func newProteinsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proteins <msstats.csv>",
		Short: "Aggregate MSstats peptide intensities into a protein matrix",
		Long: `Read peptide intensities in MSstats format, log2 transform them, take the
median per protein and run, drop contaminant (CON_) proteins, and write:

  proteins.csv              one row per sample, one column per UniProt accession
  proteins_identifiers.csv  source, accession, and gene name per protein
  proteins_samples.csv      run metadata and treatment label per sample

Examples:
  growthsim proteins peptides/PXD040621_peptides.csv
  growthsim proteins msstats_in.csv --out-dir results/proteins --json`,
		Args: cobra.ExactArgs(1),
		RunE: runProteins,
	}

	cmd.Flags().String("out-dir", "proteins", "Output directory (relative to --root)")

	return cmd
}

func runProteins(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	outDir, _ := cmd.Flags().GetString("out-dir")

	root, err := projectRoot(cmd)
	if err != nil {
		return err
	}
	inPath := args[0]
	if !filepath.IsAbs(inPath) {
		inPath = filepath.Join(root, inPath)
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	peptides, err := proteomics.ReadPeptidesFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", pathutil.RedactPath(inPath), err)
	}
	m, err := proteomics.Aggregate(peptides)
	if err != nil {
		return err
	}
	paths, err := proteomics.WriteDir(outDir, m)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(w, map[string]any{
			"peptides":     len(peptides),
			"samples":      m.Samples,
			"proteins":     len(m.Proteins),
			"contaminants": len(m.Contaminants),
			"completeness": m.CompletenessHistogram(),
			"files":        paths,
		})
	}
	printProteins(w, m, len(peptides), paths)
	return nil
}

func printProteins(w io.Writer, m *proteomics.Matrix, peptides int, paths []string) {
	fmt.Fprintf(w, "%d peptides -> %d proteins x %d samples (%d contaminants dropped)\n",
		peptides, len(m.Proteins), len(m.Samples), len(m.Contaminants))

	if len(m.Samples) > 0 {
		fmt.Fprintf(w, "\n%-20s %-12s %s\n", "SAMPLE", "CONDITION", "LABEL")
		for _, s := range m.Samples {
			fmt.Fprintf(w, "%-20s %-12s %s\n", s.Name, s.Condition, s.Label)
		}
	}

	hist := m.CompletenessHistogram()
	if len(hist) > 0 {
		counts := make([]int, 0, len(hist))
		for n := range hist {
			counts = append(counts, n)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(counts)))
		fmt.Fprintf(w, "\n%8s %8s\n", "OBSERVED", "PROTEINS")
		for _, n := range counts {
			fmt.Fprintf(w, "%8d %8d\n", n, hist[n])
		}
	}

	fmt.Fprintln(w)
	for _, p := range paths {
		fmt.Fprintf(w, "Wrote %s\n", p)
	}
}
