package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
)

// AssertRowCount asserts that ds has one row per design combination.
func AssertRowCount(t *testing.T, ds *dataset.Dataset, d design.Design) {
	t.Helper()
	if got, want := ds.Len(), d.Rows(); got != want {
		t.Errorf("AssertRowCount: got %d rows, want %d", got, want)
	}
}

// AssertFloor asserts that no reading is below floor or NaN.
func AssertFloor(t *testing.T, ds *dataset.Dataset, floor float64) {
	t.Helper()
	for i, o := range ds.Observations {
		if math.IsNaN(o.OD) || o.OD < floor {
			t.Errorf("AssertFloor: row %d (%s/%s/rep %d, t=%v): od %v below floor %v",
				i, o.Condition, o.Concentration, o.Replicate, o.Time, o.OD, floor)
		}
	}
}

// AssertInitialOD asserts that every t == 0 reading equals want exactly.
// Only meaningful for noise-free runs.
func AssertInitialOD(t *testing.T, ds *dataset.Dataset, want float64) {
	t.Helper()
	seen := 0
	for i, o := range ds.Observations {
		if o.Time != 0 {
			continue
		}
		seen++
		if o.OD != want {
			t.Errorf("AssertInitialOD: row %d (%s/%s/rep %d): od %v, want %v",
				i, o.Condition, o.Concentration, o.Replicate, o.OD, want)
		}
	}
	if seen == 0 {
		t.Error("AssertInitialOD: no t == 0 rows")
	}
}

// AssertNonDecreasingAfterStart asserts that each curve is non-decreasing
// over its t > 0 readings. The t == 0 reading is excluded because it does
// not come from the curve. Only meaningful for noise-free runs.
func AssertNonDecreasingAfterStart(t *testing.T, ds *dataset.Dataset) {
	t.Helper()
	keys, groups := ds.Groups()
	for _, k := range keys {
		prev := math.Inf(-1)
		for _, o := range groups[k] {
			if o.Time == 0 {
				continue
			}
			if o.OD < prev {
				t.Errorf("AssertNonDecreasingAfterStart: %s/%s/rep %d: od %v at t=%v below previous %v",
					k.Condition, k.Concentration, k.Replicate, o.OD, o.Time, prev)
			}
			prev = o.OD
		}
	}
}
