package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header selects the column names written to a CSV file.
type Header int

const (
	// HeaderDisplay uses the human-readable column names.
	HeaderDisplay Header = iota
	// HeaderSnake uses programming-friendly snake_case names.
	HeaderSnake
)

// Column indices, shared by both header styles.
const (
	colCondition = iota
	colConcentration
	colReplicate
	colTime
	colOD
	numColumns
)

// DisplayColumns are the column names consumers of the flat file rely on.
var DisplayColumns = []string{
	"condition",
	"SFN concentration (µM)",
	"replicate",
	"time (h)",
	"Bacterial growth (OD600)",
}

// SnakeColumns are the renamed columns used for analysis.
var SnakeColumns = []string{
	"condition",
	"sfn_conc_mumolar",
	"replicate",
	"time_h",
	"bact_growth_od600",
}

// columnAliases maps every accepted header spelling to a column index.
// "SFN concentration (ÂµM)" is the UTF-8 µ read back as Latin-1.
var columnAliases = map[string]int{
	"condition":                colCondition,
	"SFN concentration (µM)":   colConcentration,
	"SFN concentration (ÂµM)":  colConcentration,
	"sfn_conc_mumolar":         colConcentration,
	"replicate":                colReplicate,
	"time (h)":                 colTime,
	"time_h":                   colTime,
	"Bacterial growth (OD600)": colOD,
	"bact_growth_od600":        colOD,
}

// ParseHeader maps "display" or "snake" to a Header.
func ParseHeader(s string) (Header, error) {
	switch strings.ToLower(s) {
	case "", "display":
		return HeaderDisplay, nil
	case "snake":
		return HeaderSnake, nil
	default:
		return 0, fmt.Errorf("unknown header style %q (valid: display, snake)", s)
	}
}

// Columns returns the column names for the header style.
func (h Header) Columns() []string {
	if h == HeaderSnake {
		return SnakeColumns
	}
	return DisplayColumns
}

// String implements fmt.Stringer.
func (h Header) String() string {
	if h == HeaderSnake {
		return "snake"
	}
	return "display"
}

// WriteCSV writes ds as comma-separated values with one header row.
// Category order is not encoded.
func WriteCSV(w io.Writer, ds *Dataset, header Header) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header.Columns()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, numColumns)
	for i, o := range ds.Observations {
		record[colCondition] = o.Condition
		record[colConcentration] = o.Concentration
		record[colReplicate] = strconv.Itoa(o.Replicate)
		record[colTime] = FormatFloat(o.Time)
		record[colOD] = FormatFloat(o.OD)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ReadCSV parses a file written by WriteCSV, or by anything using the same
// column names in any order. If categories has no labels, the concentration
// categories are taken from the data in order of first appearance.
func ReadCSV(r io.Reader, categories Categorical) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("reading csv header: empty input")
		}
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	positions := [numColumns]int{-1, -1, -1, -1, -1}
	for i, name := range head {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		if col, ok := columnAliases[name]; ok {
			positions[col] = i
		}
	}
	for col, pos := range positions {
		if pos < 0 {
			return nil, fmt.Errorf("reading csv header: missing column %q", DisplayColumns[col])
		}
	}

	ds := &Dataset{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}

		o := Observation{
			Condition:     rec[positions[colCondition]],
			Concentration: rec[positions[colConcentration]],
		}
		if o.Replicate, err = strconv.Atoi(strings.TrimSpace(rec[positions[colReplicate]])); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing replicate: %w", line, err)
		}
		if o.Time, err = strconv.ParseFloat(strings.TrimSpace(rec[positions[colTime]]), 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing time: %w", line, err)
		}
		if o.OD, err = strconv.ParseFloat(strings.TrimSpace(rec[positions[colOD]]), 64); err != nil {
			return nil, fmt.Errorf("csv line %d: parsing od600: %w", line, err)
		}
		ds.Observations = append(ds.Observations, o)
	}

	if len(categories.Categories) > 0 {
		ds.Concentrations = NewOrdered(categories.Categories)
		ds.Concentrations.Ordered = categories.Ordered
	} else {
		ds.Concentrations = categoricalFromData(ds.Observations)
	}
	return ds, nil
}

// FormatFloat renders v in shortest round-trip form, keeping a ".0" suffix
// on integral values so time columns read back as floats.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
