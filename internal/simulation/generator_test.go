package simulation

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource returns the same uniform and normal draw every time.
type fixedSource struct {
	uniform float64
	normal  float64
}

func (s fixedSource) Float64() float64     { return s.uniform }
func (s fixedSource) NormFloat64() float64 { return s.normal }

func noiseless() design.Design {
	d := design.Default()
	d.Baseline.NoiseLevel = 0
	return d
}

func TestGenerateDefault_Shape(t *testing.T) {
	ds, err := GenerateDefault(NewSource(1))
	require.NoError(t, err)

	d := design.Default()
	AssertRowCount(t, ds, d)
	assert.Equal(t, 468, ds.Len())
	AssertFloor(t, ds, 0.01)

	// Nesting: condition, concentration, replicate, time.
	first, last := ds.Observations[0], ds.Observations[ds.Len()-1]
	assert.Equal(t, "Anaerobic", first.Condition)
	assert.Equal(t, "20", first.Concentration)
	assert.Equal(t, 1, first.Replicate)
	assert.Equal(t, 0.0, first.Time)
	assert.Equal(t, "Aerobic", last.Condition)
	assert.Equal(t, "DMSO", last.Concentration)
	assert.Equal(t, 3, last.Replicate)
	assert.Equal(t, 24.0, last.Time)
	assert.Equal(t, 2.0, ds.Observations[1].Time)
	assert.Equal(t, 2, ds.Observations[13].Replicate)
}

func TestGenerate_FloorUnderHeavyNoise(t *testing.T) {
	d := design.Default()
	d.Baseline.NoiseLevel = 1.0
	ds, err := Generate(d, NewSource(7))
	require.NoError(t, err)
	AssertFloor(t, ds, d.Baseline.FloorOD)

	floored := 0
	for _, o := range ds.Observations {
		if o.OD == d.Baseline.FloorOD {
			floored++
		}
	}
	assert.Greater(t, floored, 0, "noise of 1.0 should push some readings to the floor")
}

func TestGenerate_InitialODWithoutNoise(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		ds, err := Generate(noiseless(), NewSource(seed))
		require.NoError(t, err)
		AssertInitialOD(t, ds, 0.05)
	}
}

func TestGenerate_NonDecreasingWithoutNoise(t *testing.T) {
	var curves []CurveParams
	ds, err := GenerateWith(noiseless(), NewSource(11), Options{
		OnCurve: func(p CurveParams) { curves = append(curves, p) },
	})
	require.NoError(t, err)
	AssertNonDecreasingAfterStart(t, ds)

	times := noiseless().TimePoints()
	for _, p := range curves {
		for i := 1; i < len(times); i++ {
			assert.GreaterOrEqual(t, p.Value(times[i]), p.Value(times[i-1]))
		}
	}
}

func TestGenerate_ConcentrationOrder(t *testing.T) {
	ds, err := GenerateDefault(NewSource(3))
	require.NoError(t, err)

	assert.True(t, ds.Concentrations.Ordered)
	labels := []string{"DMSO", "2.5", "5", "10", "15", "20"}
	ds.Concentrations.Sort(labels)
	assert.Equal(t, []string{"20", "15", "10", "5", "2.5", "DMSO"}, labels)
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, d := range []design.Design{noiseless(), design.Default()} {
		var outputs [2]bytes.Buffer
		for i := range outputs {
			ds, err := Generate(d, NewSource(42))
			require.NoError(t, err)
			require.NoError(t, dataset.WriteCSV(&outputs[i], ds, dataset.HeaderDisplay))
		}
		assert.Equal(t, outputs[0].Bytes(), outputs[1].Bytes())
	}
}

func TestGenerate_SeedsDiffer(t *testing.T) {
	a, err := GenerateDefault(NewSource(1))
	require.NoError(t, err)
	b, err := GenerateDefault(NewSource(2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Observations, b.Observations)
}

func TestGenerate_LagAtLastTimePoint(t *testing.T) {
	d := noiseless()
	times := d.TimePoints()
	last := times[len(times)-1]
	d.Baseline.LagPhase = last

	params := make(map[dataset.GroupKey]CurveParams)
	ds, err := GenerateWith(d, NewSource(5), Options{
		OnCurve: func(p CurveParams) {
			params[dataset.GroupKey{Condition: p.Condition, Concentration: p.Concentration, Replicate: p.Replicate}] = p
		},
	})
	require.NoError(t, err)

	for _, o := range ds.Observations {
		p := params[dataset.GroupKey{Condition: o.Condition, Concentration: o.Concentration, Replicate: o.Replicate}]
		half := p.MaxOD / 2
		if o.Time == last {
			// The curve reaches its midpoint exactly at t0 and not beyond.
			assert.InDelta(t, half, o.OD, 1e-12)
			continue
		}
		if o.Time > 0 {
			assert.Less(t, o.OD, half, "t=%v", o.Time)
		}
	}
}

func TestGenerate_FormulaWithFixedDraws(t *testing.T) {
	// Uniform 0.5 puts both jitters at 1.0; every noise draw is +1 sd.
	rng := fixedSource{uniform: 0.5, normal: 1}
	d := design.Default()

	ds, err := Generate(d, rng)
	require.NoError(t, err)

	find := func(cond, conc string, rep int, tm float64) float64 {
		for _, o := range ds.Observations {
			if o.Condition == cond && o.Concentration == conc && o.Replicate == rep && o.Time == tm {
				return o.OD
			}
		}
		t.Fatalf("no row for %s/%s/%d/%v", cond, conc, rep, tm)
		return 0
	}

	assert.InDelta(t, 0.05+0.02, find("Aerobic", "20", 1, 0), 1e-12)

	// At t = t0 the curve is L/2.
	assert.InDelta(t, 0.9*0.85/2+0.02, find("Aerobic", "20", 1, 6), 1e-9)
	assert.InDelta(t, 0.65*0.94/2+0.02, find("Anaerobic", "15", 2, 6), 1e-9)
	assert.InDelta(t, 0.9/2+0.02, find("Aerobic", "DMSO", 3, 6), 1e-9)

	want := Sigmoid(12, 0.65, 0.7, 6) + 0.02
	assert.InDelta(t, want, find("Anaerobic", "DMSO", 1, 12), 1e-9)
}

func TestGenerate_JitterWithinRange(t *testing.T) {
	d := design.Default()
	var curves []CurveParams
	_, err := GenerateWith(d, NewSource(99), Options{
		OnCurve: func(p CurveParams) { curves = append(curves, p) },
	})
	require.NoError(t, err)
	require.Len(t, curves, 2*6*3)

	for _, p := range curves {
		inhibition, err := d.Inhibition(p.Condition, p.Concentration)
		require.NoError(t, err)
		var cond design.Condition
		for _, c := range d.Conditions {
			if c.Name == p.Condition {
				cond = c
			}
		}
		base := cond.MaxODFor(d.Baseline) * inhibition
		rate := cond.GrowthRateFor(d.Baseline)

		assert.GreaterOrEqual(t, p.MaxOD, base*0.95-1e-12)
		assert.Less(t, p.MaxOD, base*1.05+1e-12)
		assert.GreaterOrEqual(t, p.GrowthRate, rate*0.9-1e-12)
		assert.Less(t, p.GrowthRate, rate*1.1+1e-12)
		assert.Equal(t, 6.0, p.LagPhase)
	}
}

func TestGenerate_ExtremeGrowthRate(t *testing.T) {
	d := noiseless()
	d.Baseline.GrowthRate = 1e6
	for i := range d.Conditions {
		d.Conditions[i].GrowthRate = 0
		d.Conditions[i].GrowthRateFactor = 1
	}
	ds, err := Generate(d, NewSource(1))
	require.NoError(t, err)

	AssertFloor(t, ds, d.Baseline.FloorOD)
	for _, o := range ds.Observations {
		switch {
		case o.Time == 0:
			assert.Equal(t, 0.05, o.OD)
		case o.Time < d.Baseline.LagPhase:
			assert.Equal(t, d.Baseline.FloorOD, o.OD, "exp overflow should collapse to the floor")
		}
	}
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(design.Default(), nil)
	assert.ErrorIs(t, err, ErrNilSource)

	d := design.Default()
	d.Replicates = 0
	_, err = Generate(d, NewSource(1))
	assert.True(t, errors.Is(err, design.ErrInvalidDesign))
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(6, 1, 0.8, 6))
	assert.InDelta(t, 1.0, Sigmoid(1000, 1, 0.8, 6), 1e-12)
	assert.Equal(t, 0.0, Sigmoid(-1e6, 1, 1e3, 6))
	assert.False(t, math.IsNaN(Sigmoid(-1e300, 1, 1e300, 0)))
}

func TestRandomSeed(t *testing.T) {
	assert.NotZero(t, RandomSeed())
}
