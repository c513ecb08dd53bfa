// Package proteomics turns MSstats peptide intensities into a protein by
// sample matrix for the sulforaphane proteomics companion dataset.
//
// The pipeline is: log2 the peptide intensities, take the median per
// (protein, run reference), pivot to one row per sample, drop contaminant
// proteins, and split the FASTA identifiers into source, UniProt accession,
// and gene name.
package proteomics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MSstats columns read from the input. Any other columns are ignored.
const (
	ColProtein      = "ProteinName"
	ColCondition    = "Condition"
	ColBioReplicate = "BioReplicate"
	ColRun          = "Run"
	ColIntensity    = "Intensity"
	ColReference    = "Reference"
)

// ContaminantMarker appears in the identifier of every contaminant protein
// added to the search database.
const ContaminantMarker = "CON_"

// Sample labels.
const (
	SulforaphaneMarker = "Suf_"
	LabelControl       = "control"
	LabelSulforaphane  = "10 µm sulforaphane"
)

// ErrMissingColumn is wrapped when the input lacks a required column.
var ErrMissingColumn = errors.New("missing column")

var requiredColumns = []string{ColProtein, ColCondition, ColBioReplicate, ColRun, ColIntensity, ColReference}

// Peptide is one quantified peptide row. Intensity is the raw value from
// the input, not yet log transformed.
type Peptide struct {
	Protein      string
	Reference    string
	Condition    string
	BioReplicate string
	Run          string
	Intensity    float64
}

// ReadPeptides loads an MSstats CSV. Unparseable or "NA" intensities load
// as NaN and are skipped during aggregation.
func ReadPeptides(r io.Reader) ([]Peptide, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.WithTypes(map[string]series.Type{ColIntensity: series.Float}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse peptides: %w", df.Err)
	}

	have := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		have[name] = true
	}
	for _, name := range requiredColumns {
		if !have[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	proteins := df.Col(ColProtein).Records()
	refs := df.Col(ColReference).Records()
	conds := df.Col(ColCondition).Records()
	reps := df.Col(ColBioReplicate).Records()
	runs := df.Col(ColRun).Records()
	intensities := df.Col(ColIntensity).Float()

	out := make([]Peptide, df.Nrow())
	for i := range out {
		out[i] = Peptide{
			Protein:      proteins[i],
			Reference:    refs[i],
			Condition:    conds[i],
			BioReplicate: reps[i],
			Run:          runs[i],
			Intensity:    intensities[i],
		}
	}
	return out, nil
}

// ReadPeptidesFile opens path and calls ReadPeptides.
func ReadPeptidesFile(path string) ([]Peptide, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPeptides(f)
}

// Log2 returns log2(v) for positive finite v and NaN otherwise, so zero
// intensities count as missing rather than -Inf.
func Log2(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return math.NaN()
	}
	return math.Log2(v)
}

// SampleName shortens a run reference to its fifth and sixth "_" fields,
// e.g. "2023_01_PXD_Ecoli_Suf_2.mzML" -> "Suf_2.mzML". References with fewer
// fields are kept whole.
func SampleName(reference string) string {
	parts := strings.Split(reference, "_")
	if len(parts) < 5 {
		return reference
	}
	return strings.Join(parts[4:min(6, len(parts))], "_")
}

// Label classifies a sample by its shortened name.
func Label(sample string) string {
	if strings.Contains(sample, SulforaphaneMarker) {
		return LabelSulforaphane
	}
	return LabelControl
}

// IsContaminant reports whether a protein identifier is a contaminant entry.
func IsContaminant(identifier string) bool {
	return strings.Contains(identifier, ContaminantMarker)
}

// Protein describes one protein column.
type Protein struct {
	Identifier string `json:"identifier"`
	Source     string `json:"source"`
	UniprotID  string `json:"uniprot_id"`
	GeneName   string `json:"gene_name"`
}

// ParseIdentifier splits a FASTA identifier "sp|P0A7V0|RS2_ECOLI" into its
// source, accession, and gene name. Identifiers without three "|" fields
// keep the whole string as the accession.
func ParseIdentifier(identifier string) Protein {
	parts := strings.Split(identifier, "|")
	if len(parts) < 3 {
		return Protein{Identifier: identifier, UniprotID: identifier}
	}
	gene, _, _ := strings.Cut(parts[2], "_")
	return Protein{
		Identifier: identifier,
		Source:     parts[0],
		UniprotID:  parts[1],
		GeneName:   gene,
	}
}
