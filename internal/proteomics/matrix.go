package proteomics

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/series"
)

// Sample is one row of the matrix with its run metadata.
type Sample struct {
	Name         string `json:"name"`
	Reference    string `json:"reference"`
	Condition    string `json:"condition"`
	BioReplicate string `json:"bio_replicate"`
	Run          string `json:"run"`
	Label        string `json:"label"`
}

// Matrix holds median log2 protein intensities. Values[i][j] is sample i,
// protein j; NaN marks a protein not observed in that sample.
type Matrix struct {
	Samples  []Sample
	Proteins []Protein
	Values   [][]float64

	// Contaminants are the identifiers that were dropped.
	Contaminants []string
}

// Aggregate builds the protein matrix from raw peptide rows. Samples are
// ordered by run reference and proteins by identifier.
func Aggregate(peptides []Peptide) (*Matrix, error) {
	type cell struct{ protein, reference string }

	intensities := make(map[cell][]float64)
	meta := make(map[string]Sample)
	proteinSet := make(map[string]bool)
	for _, p := range peptides {
		if _, ok := meta[p.Reference]; !ok {
			meta[p.Reference] = Sample{
				Reference:    p.Reference,
				Condition:    p.Condition,
				BioReplicate: p.BioReplicate,
				Run:          p.Run,
			}
		}
		proteinSet[p.Protein] = true

		v := Log2(p.Intensity)
		if math.IsNaN(v) {
			continue
		}
		k := cell{p.Protein, p.Reference}
		intensities[k] = append(intensities[k], v)
	}

	refs := sortedKeys(meta)
	m := &Matrix{Samples: make([]Sample, 0, len(refs))}
	names := make(map[string]string, len(refs))
	for _, ref := range refs {
		s := meta[ref]
		s.Name = SampleName(ref)
		if prev, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("references %q and %q both shorten to sample %q", prev, ref, s.Name)
		}
		names[s.Name] = ref
		s.Label = Label(s.Name)
		m.Samples = append(m.Samples, s)
	}

	for _, id := range sortedKeys(proteinSet) {
		if IsContaminant(id) {
			m.Contaminants = append(m.Contaminants, id)
			continue
		}
		m.Proteins = append(m.Proteins, ParseIdentifier(id))
	}

	m.Values = make([][]float64, len(m.Samples))
	for i, s := range m.Samples {
		row := make([]float64, len(m.Proteins))
		for j, p := range m.Proteins {
			vs := intensities[cell{p.Identifier, s.Reference}]
			if len(vs) == 0 {
				row[j] = math.NaN()
				continue
			}
			row[j] = series.Floats(vs).Median()
		}
		m.Values[i] = row
	}
	return m, nil
}

// Completeness returns, per protein, the number of samples it was observed in.
func (m *Matrix) Completeness() []int {
	counts := make([]int, len(m.Proteins))
	for _, row := range m.Values {
		for j, v := range row {
			if !math.IsNaN(v) {
				counts[j]++
			}
		}
	}
	return counts
}

// CompletenessHistogram maps "observed in n samples" to the number of
// proteins with that count.
func (m *Matrix) CompletenessHistogram() map[int]int {
	hist := make(map[int]int)
	for _, c := range m.Completeness() {
		hist[c]++
	}
	return hist
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
