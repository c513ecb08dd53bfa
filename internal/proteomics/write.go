package proteomics

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Output file names inside the output directory.
const (
	MatrixFile      = "proteins.csv"
	IdentifiersFile = "proteins_identifiers.csv"
	SamplesFile     = "proteins_samples.csv"
)

// WriteMatrix writes one row per sample with a column per UniProt accession.
// Missing values are empty cells.
func WriteMatrix(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(m.Proteins)+1)
	header = append(header, ColReference)
	for _, p := range m.Proteins {
		header = append(header, p.UniprotID)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, s := range m.Samples {
		record[0] = s.Name
		for j, v := range m.Values[i] {
			record[j+1] = formatIntensity(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIdentifiers writes the identifier breakdown, one row per protein.
func WriteIdentifiers(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"identifier", "Source", "ProteinName", "GeneName"}); err != nil {
		return err
	}
	for _, p := range m.Proteins {
		if err := cw.Write([]string{p.Identifier, p.Source, p.UniprotID, p.GeneName}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamples writes the per-sample run metadata and label.
func WriteSamples(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Sample", ColReference, ColCondition, ColBioReplicate, ColRun, "Label"}); err != nil {
		return err
	}
	for _, s := range m.Samples {
		if err := cw.Write([]string{s.Name, s.Reference, s.Condition, s.BioReplicate, s.Run, s.Label}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDir writes the matrix, identifier, and sample tables into dir and
// returns their paths in that order.
func WriteDir(dir string, m *Matrix) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer, *Matrix) error
	}{
		{MatrixFile, WriteMatrix},
		{IdentifiersFile, WriteIdentifiers},
		{SamplesFile, WriteSamples},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeAtomic(path, func(w io.Writer) error { return f.write(w, m) }); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatIntensity(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
