// Package simulation generates synthetic bacterial growth-curve datasets.
//
// Each (condition, concentration, replicate) combination gets a logistic
// curve L / (1 + exp(-k (t - t0))) whose carrying capacity L is the design
// baseline scaled by the condition factor, the concentration's inhibition
// multiplier, and a per-replicate uniform jitter. The growth rate k is
// scaled by the condition factor and its own jitter. Every time point adds
// one Gaussian noise draw and is floored; the t == 0 reading uses the
// design's initial OD instead of the curve.
//
// Randomness comes from an injected Source so runs are reproducible:
//
//	rng := simulation.NewSource(42)
//	ds, err := simulation.Generate(design.Default(), rng)
//	if err != nil {
//	    return err
//	}
//	err = dataset.WriteFile("data/growth/fake_growth_data.csv", ds, dataset.FormatCSV, dataset.HeaderDisplay)
//
// The Assert* helpers check the dataset invariants from tests.
package simulation
