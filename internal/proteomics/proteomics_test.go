package proteomics

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peptidesCSV = `ProteinName,PeptideSequence,PrecursorCharge,FragmentIon,ProductCharge,IsotopeLabelType,Condition,BioReplicate,Run,Intensity,Reference
sp|P0A7V0|RS2_ECOLI,AAAK,2,NA,0,L,control,1,1,1024,2023_01_PXD_Ecoli_Ctrl_1
sp|P0A7V0|RS2_ECOLI,CCCK,2,NA,0,L,control,1,1,4096,2023_01_PXD_Ecoli_Ctrl_1
sp|P0A7V0|RS2_ECOLI,AAAK,2,NA,0,L,SFN,2,2,256,2023_01_PXD_Ecoli_Suf_1
sp|P0A9K9|SLYD_ECOLI,DDDR,3,NA,0,L,control,1,1,2,2023_01_PXD_Ecoli_Ctrl_1
sp|P0A9K9|SLYD_ECOLI,EEER,2,NA,0,L,control,1,1,8,2023_01_PXD_Ecoli_Ctrl_1
sp|P0A9K9|SLYD_ECOLI,FFFR,2,NA,0,L,control,1,1,32,2023_01_PXD_Ecoli_Ctrl_1
sp|P0A9K9|SLYD_ECOLI,DDDR,3,NA,0,L,SFN,2,2,0,2023_01_PXD_Ecoli_Suf_1
sp|P0A9K9|SLYD_ECOLI,EEER,2,NA,0,L,SFN,2,2,NA,2023_01_PXD_Ecoli_Suf_1
CON__P02768,GGGK,2,NA,0,L,control,1,1,1024,2023_01_PXD_Ecoli_Ctrl_1
`

func fixtureMatrix(t *testing.T) *Matrix {
	t.Helper()
	peptides, err := ReadPeptides(strings.NewReader(peptidesCSV))
	require.NoError(t, err)
	m, err := Aggregate(peptides)
	require.NoError(t, err)
	return m
}

func TestReadPeptides(t *testing.T) {
	peptides, err := ReadPeptides(strings.NewReader(peptidesCSV))
	require.NoError(t, err)
	require.Len(t, peptides, 9)

	assert.Equal(t, Peptide{
		Protein:      "sp|P0A7V0|RS2_ECOLI",
		Reference:    "2023_01_PXD_Ecoli_Ctrl_1",
		Condition:    "control",
		BioReplicate: "1",
		Run:          "1",
		Intensity:    1024,
	}, peptides[0])
	assert.True(t, math.IsNaN(peptides[7].Intensity), "NA intensity should load as NaN")
}

func TestReadPeptides_MissingColumn(t *testing.T) {
	_, err := ReadPeptides(strings.NewReader("ProteinName,Intensity\nsp|A|B_C,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestAggregate(t *testing.T) {
	m := fixtureMatrix(t)

	require.Len(t, m.Samples, 2)
	assert.Equal(t, Sample{
		Name:         "Ctrl_1",
		Reference:    "2023_01_PXD_Ecoli_Ctrl_1",
		Condition:    "control",
		BioReplicate: "1",
		Run:          "1",
		Label:        LabelControl,
	}, m.Samples[0])
	assert.Equal(t, "Suf_1", m.Samples[1].Name)
	assert.Equal(t, LabelSulforaphane, m.Samples[1].Label)

	assert.Equal(t, []string{"CON__P02768"}, m.Contaminants)
	require.Len(t, m.Proteins, 2)
	assert.Equal(t, "P0A7V0", m.Proteins[0].UniprotID)
	assert.Equal(t, "P0A9K9", m.Proteins[1].UniprotID)

	// Medians of log2 intensities: even counts average the middle pair.
	assert.InDelta(t, 11.0, m.Values[0][0], 1e-12)
	assert.InDelta(t, 3.0, m.Values[0][1], 1e-12)
	assert.InDelta(t, 8.0, m.Values[1][0], 1e-12)
	assert.True(t, math.IsNaN(m.Values[1][1]), "zero and NA intensities leave the cell missing")

	assert.Equal(t, []int{2, 1}, m.Completeness())
	assert.Equal(t, map[int]int{2: 1, 1: 1}, m.CompletenessHistogram())
}

func TestAggregate_SampleNameCollision(t *testing.T) {
	peptides := []Peptide{
		{Protein: "sp|A|B_C", Reference: "x_x_x_x_Suf_1", Intensity: 2},
		{Protein: "sp|A|B_C", Reference: "y_y_y_y_Suf_1", Intensity: 2},
	}
	_, err := Aggregate(peptides)
	assert.ErrorContains(t, err, "both shorten")
}

func TestSampleName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"2023_01_PXD_Ecoli_Suf_2", "Suf_2"},
		{"a_b_c_d_e_f_g", "e_f"},
		{"a_b_c_d_e", "e"},
		{"short_ref", "short_ref"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, SampleName(tt.ref))
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	assert.Equal(t, Protein{
		Identifier: "sp|P0A7V0|RS2_ECOLI",
		Source:     "sp",
		UniprotID:  "P0A7V0",
		GeneName:   "RS2",
	}, ParseIdentifier("sp|P0A7V0|RS2_ECOLI"))

	assert.Equal(t, Protein{Identifier: "P12345", UniprotID: "P12345"}, ParseIdentifier("P12345"))
}

func TestLog2(t *testing.T) {
	assert.Equal(t, 10.0, Log2(1024))
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.True(t, math.IsNaN(Log2(v)), "Log2(%v)", v)
	}
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, fixtureMatrix(t)))
	assert.Equal(t, "Reference,P0A7V0,P0A9K9\nCtrl_1,11,3\nSuf_1,8,\n", buf.String())
}

func TestWriteIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIdentifiers(&buf, fixtureMatrix(t)))
	assert.Equal(t, "identifier,Source,ProteinName,GeneName\n"+
		"sp|P0A7V0|RS2_ECOLI,sp,P0A7V0,RS2\n"+
		"sp|P0A9K9|SLYD_ECOLI,sp,P0A9K9,SLYD\n", buf.String())
}

func TestWriteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "proteins")
	paths, err := WriteDir(dir, fixtureMatrix(t))
	require.NoError(t, err)
	require.Len(t, paths, 3)

	samples, err := os.ReadFile(filepath.Join(dir, SamplesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(samples)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Suf_1,2023_01_PXD_Ecoli_Suf_1,SFN,2,2,10 µm sulforaphane", lines[2])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestReadPeptidesFile_Missing(t *testing.T) {
	_, err := ReadPeptidesFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
