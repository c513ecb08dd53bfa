package dataset

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// DefaultStationaryTolerance is how far below its group maximum a reading
// may be and still count as stationary phase.
const DefaultStationaryTolerance = 0.1

// GroupKey identifies one growth curve.
type GroupKey struct {
	Condition     string
	Concentration string
	Replicate     int
}

// AUCResult is the area under one growth curve.
type AUCResult struct {
	Condition     string  `json:"condition"`
	Concentration string  `json:"concentration"`
	Replicate     int     `json:"replicate"`
	AUC           float64 `json:"auc"`
}

// Summary aggregates replicates at one time point.
type Summary struct {
	Time          float64 `json:"time_h"`
	Condition     string  `json:"condition"`
	Concentration string  `json:"concentration"`
	Count         int     `json:"count"`
	Min           float64 `json:"min"`
	Mean          float64 `json:"mean"`
	Max           float64 `json:"max"`
	Std           float64 `json:"std"`
}

// Filter selects observations. Zero-valued fields match everything.
type Filter struct {
	Condition     string
	Concentration string
	// BelowOD keeps only readings strictly below this value when positive.
	BelowOD float64
}

// Match reports whether o passes the filter.
func (f Filter) Match(o Observation) bool {
	if f.Condition != "" && o.Condition != f.Condition {
		return false
	}
	if f.Concentration != "" && o.Concentration != f.Concentration {
		return false
	}
	if f.BelowOD > 0 && o.OD >= f.BelowOD {
		return false
	}
	return true
}

// Filter returns a new dataset holding the matching observations in their
// original order. The categorical encoding is kept whole.
func (ds *Dataset) Filter(f Filter) *Dataset {
	out := &Dataset{Concentrations: ds.Concentrations}
	for _, o := range ds.Observations {
		if f.Match(o) {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}

// Groups splits ds into growth curves. Keys are ordered by condition (first
// appearance), concentration (category order), then replicate; each curve
// is sorted by time.
func (ds *Dataset) Groups() ([]GroupKey, map[GroupKey][]Observation) {
	groups := make(map[GroupKey][]Observation)
	var keys []GroupKey
	for _, o := range ds.Observations {
		k := GroupKey{Condition: o.Condition, Concentration: o.Concentration, Replicate: o.Replicate}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o)
	}

	condOrder := indexOf(ds.Conditions())
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Condition != b.Condition {
			return condOrder[a.Condition] < condOrder[b.Condition]
		}
		if a.Concentration != b.Concentration {
			return ds.Concentrations.Less(a.Concentration, b.Concentration)
		}
		return a.Replicate < b.Replicate
	})
	for _, k := range keys {
		curve := groups[k]
		sort.SliceStable(curve, func(i, j int) bool { return curve[i].Time < curve[j].Time })
	}
	return keys, groups
}

// AUC integrates each growth curve over time with the trapezoidal rule.
func AUC(ds *Dataset) []AUCResult {
	keys, groups := ds.Groups()
	out := make([]AUCResult, 0, len(keys))
	for _, k := range keys {
		curve := groups[k]
		x := make([]float64, len(curve))
		y := make([]float64, len(curve))
		for i, o := range curve {
			x[i], y[i] = o.Time, o.OD
		}
		out = append(out, AUCResult{
			Condition:     k.Condition,
			Concentration: k.Concentration,
			Replicate:     k.Replicate,
			AUC:           Trapezoid(x, y),
		})
	}
	return out
}

// Trapezoid returns the trapezoidal integral of y over x. x must be sorted.
// Extra points in the longer slice are ignored; fewer than two points
// integrate to zero.
func Trapezoid(x, y []float64) float64 {
	n := min(len(x), len(y))
	if n < 2 {
		return 0
	}
	return integrate.Trapezoidal(x[:n], y[:n])
}

// Summarize aggregates replicates per (time, condition, concentration).
// Std is the sample standard deviation and is zero for a single replicate.
func Summarize(ds *Dataset) []Summary {
	type key struct {
		time          float64
		condition     string
		concentration string
	}
	values := make(map[key][]float64)
	var keys []key
	for _, o := range ds.Observations {
		k := key{o.Time, o.Condition, o.Concentration}
		if _, ok := values[k]; !ok {
			keys = append(keys, k)
		}
		values[k] = append(values[k], o.OD)
	}

	condOrder := indexOf(ds.Conditions())
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.time != b.time {
			return a.time < b.time
		}
		if a.condition != b.condition {
			return condOrder[a.condition] < condOrder[b.condition]
		}
		return ds.Concentrations.Less(a.concentration, b.concentration)
	})

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		vs := values[k]
		s := Summary{
			Time:          k.time,
			Condition:     k.condition,
			Concentration: k.concentration,
			Count:         len(vs),
			Min:           floats.Min(vs),
			Max:           floats.Max(vs),
		}
		s.Mean, s.Std = stat.MeanStdDev(vs, nil)
		if len(vs) < 2 {
			s.Std = 0
		}
		out = append(out, s)
	}
	return out
}

// StationaryFlags marks each observation, in dataset order, that lies within
// tolerance of its curve's maximum.
func StationaryFlags(ds *Dataset, tolerance float64) []bool {
	maxima := make(map[GroupKey]float64)
	for _, o := range ds.Observations {
		k := GroupKey{Condition: o.Condition, Concentration: o.Concentration, Replicate: o.Replicate}
		if m, ok := maxima[k]; !ok || o.OD > m {
			maxima[k] = o.OD
		}
	}

	flags := make([]bool, len(ds.Observations))
	for i, o := range ds.Observations {
		k := GroupKey{Condition: o.Condition, Concentration: o.Concentration, Replicate: o.Replicate}
		flags[i] = o.OD >= maxima[k]-tolerance
	}
	return flags
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}
