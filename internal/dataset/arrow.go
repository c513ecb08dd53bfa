package dataset

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// concentrationType stores the concentration column as an ordered
// dictionary so the category order survives the file.
func concentrationType(ordered bool) *arrow.DictionaryType {
	return &arrow.DictionaryType{
		IndexType: arrow.PrimitiveTypes.Int32,
		ValueType: arrow.BinaryTypes.String,
		Ordered:   ordered,
	}
}

func arrowSchema(ordered bool) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: DisplayColumns[colCondition], Type: arrow.BinaryTypes.String},
		{Name: DisplayColumns[colConcentration], Type: concentrationType(ordered)},
		{Name: DisplayColumns[colReplicate], Type: arrow.PrimitiveTypes.Int64},
		{Name: DisplayColumns[colTime], Type: arrow.PrimitiveTypes.Float64},
		{Name: DisplayColumns[colOD], Type: arrow.PrimitiveTypes.Float64},
	}, nil)
}

// WriteArrow writes ds as a single record batch in the Arrow IPC stream
// format. Every concentration must be one of ds.Concentrations.
func WriteArrow(w io.Writer, ds *Dataset) error {
	mem := memory.NewGoAllocator()
	cats := ds.Concentrations
	if len(cats.Categories) > math.MaxInt32 {
		return fmt.Errorf("too many concentration categories: %d", len(cats.Categories))
	}

	condB := array.NewStringBuilder(mem)
	defer condB.Release()
	idxB := array.NewInt32Builder(mem)
	defer idxB.Release()
	repB := array.NewInt64Builder(mem)
	defer repB.Release()
	timeB := array.NewFloat64Builder(mem)
	defer timeB.Release()
	odB := array.NewFloat64Builder(mem)
	defer odB.Release()

	for i, o := range ds.Observations {
		idx := cats.Index(o.Concentration)
		if idx < 0 {
			return fmt.Errorf("row %d: concentration %q is not a declared category", i, o.Concentration)
		}
		condB.Append(o.Condition)
		idxB.Append(int32(idx))
		repB.Append(int64(o.Replicate))
		timeB.Append(o.Time)
		odB.Append(o.OD)
	}

	dictB := array.NewStringBuilder(mem)
	defer dictB.Release()
	dictB.AppendValues(cats.Categories, nil)
	dict := dictB.NewArray()
	defer dict.Release()
	indices := idxB.NewArray()
	defer indices.Release()

	schema := arrowSchema(cats.Ordered)
	concentrations := array.NewDictionaryArray(concentrationType(cats.Ordered), indices, dict)
	defer concentrations.Release()

	conditions := condB.NewArray()
	defer conditions.Release()
	replicates := repB.NewArray()
	defer replicates.Release()
	times := timeB.NewArray()
	defer times.Release()
	ods := odB.NewArray()
	defer ods.Release()

	rec := array.NewRecord(schema, []arrow.Array{conditions, concentrations, replicates, times, ods}, int64(len(ds.Observations)))
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := iw.Write(rec); err != nil {
		iw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

// ReadArrow reads a stream written by WriteArrow. The concentration
// categories and their ordered flag come from the dictionary column.
func ReadArrow(r io.Reader) (*Dataset, error) {
	mem := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer rdr.Release()

	schema := rdr.Schema()
	if len(schema.Fields()) != numColumns {
		return nil, fmt.Errorf("arrow schema has %d fields, want %d", len(schema.Fields()), numColumns)
	}
	for i, f := range schema.Fields() {
		if f.Name != DisplayColumns[i] {
			return nil, fmt.Errorf("arrow field %d is %q, want %q", i, f.Name, DisplayColumns[i])
		}
	}
	dictType, ok := schema.Field(colConcentration).Type.(*arrow.DictionaryType)
	if !ok {
		return nil, fmt.Errorf("arrow concentration column is %s, want dictionary", schema.Field(colConcentration).Type)
	}

	ds := &Dataset{Concentrations: Categorical{Ordered: dictType.Ordered}}
	for rdr.Next() {
		rec := rdr.Record()

		conditions, ok1 := rec.Column(colCondition).(*array.String)
		concentrations, ok2 := rec.Column(colConcentration).(*array.Dictionary)
		replicates, ok3 := rec.Column(colReplicate).(*array.Int64)
		times, ok4 := rec.Column(colTime).(*array.Float64)
		ods, ok5 := rec.Column(colOD).(*array.Float64)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return nil, fmt.Errorf("arrow record has unexpected column types")
		}
		labels, ok := concentrations.Dictionary().(*array.String)
		if !ok {
			return nil, fmt.Errorf("arrow concentration dictionary is not utf8")
		}
		if ds.Concentrations.Categories == nil {
			cats := make([]string, labels.Len())
			for i := range cats {
				cats[i] = strings.Clone(labels.Value(i))
			}
			ds.Concentrations.Categories = cats
		}

		for i := 0; i < int(rec.NumRows()); i++ {
			ds.Observations = append(ds.Observations, Observation{
				Condition:     strings.Clone(conditions.Value(i)),
				Concentration: strings.Clone(labels.Value(concentrations.GetValueIndex(i))),
				Replicate:     int(replicates.Value(i)),
				Time:          times.Value(i),
				OD:            ods.Value(i),
			})
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return ds, nil
}
