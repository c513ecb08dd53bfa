package simulation

import (
	"errors"
	"math"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
)

// ErrNilSource is returned when Generate is called without a random source.
var ErrNilSource = errors.New("simulation: nil random source")

// CurveParams are the parameters of one replicate's growth curve.
type CurveParams struct {
	Condition     string  `json:"condition"`
	Concentration string  `json:"concentration"`
	Replicate     int     `json:"replicate"`
	MaxOD         float64 `json:"max_od"`
	GrowthRate    float64 `json:"growth_rate"`
	LagPhase      float64 `json:"lag_phase"`
	NoiseLevel    float64 `json:"noise_level"`
}

// Value is the noiseless curve at time t.
func (p CurveParams) Value(t float64) float64 {
	return Sigmoid(t, p.MaxOD, p.GrowthRate, p.LagPhase)
}

// Options tune a run without changing its output.
type Options struct {
	// OnCurve, when non-nil, is called with each replicate's parameters
	// before its time course is generated.
	OnCurve func(CurveParams)
}

// Sigmoid is the logistic function L / (1 + exp(-k (t - t0))).
// For very negative exponents exp overflows to +Inf and the result is 0.
func Sigmoid(t, l, k, t0 float64) float64 {
	return l / (1 + math.Exp(-k*(t-t0)))
}

// GenerateDefault runs the default sulforaphane design.
func GenerateDefault(rng Source) (*dataset.Dataset, error) {
	return Generate(design.Default(), rng)
}

// Generate sweeps the design and returns one observation per
// (condition, concentration, replicate, time point), in that nesting order.
func Generate(d design.Design, rng Source) (*dataset.Dataset, error) {
	return GenerateWith(d, rng, Options{})
}

// GenerateWith is Generate with an observer hook.
//
// Draw order per replicate is fixed: max_od jitter, growth_rate jitter, then
// one normal draw per time point. Any change to it changes every seeded run.
func GenerateWith(d design.Design, rng Source, opts Options) (*dataset.Dataset, error) {
	if rng == nil {
		return nil, ErrNilSource
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	times := d.TimePoints()
	replicates := d.ReplicateIDs()
	b := d.Baseline

	ds := &dataset.Dataset{
		Observations:   make([]dataset.Observation, 0, d.Rows()),
		Concentrations: dataset.NewOrdered(d.Concentrations),
	}

	for _, cond := range d.Conditions {
		growthRate := cond.GrowthRateFor(b)
		for _, conc := range d.Concentrations {
			inhibition, err := d.Inhibition(cond.Name, conc)
			if err != nil {
				return nil, err
			}
			maxOD := cond.MaxODFor(b) * inhibition

			for _, rep := range replicates {
				p := CurveParams{
					Condition:     cond.Name,
					Concentration: conc,
					Replicate:     rep,
					MaxOD:         maxOD * Uniform(rng, d.Jitter.MaxOD),
					GrowthRate:    growthRate * Uniform(rng, d.Jitter.GrowthRate),
					LagPhase:      b.LagPhase,
					NoiseLevel:    b.NoiseLevel,
				}
				if opts.OnCurve != nil {
					opts.OnCurve(p)
				}

				for _, t := range times {
					value := p.Value(t)
					noise := rng.NormFloat64() * p.NoiseLevel
					if t == 0 {
						value = b.InitialOD
					}
					ds.Observations = append(ds.Observations, dataset.Observation{
						Condition:     cond.Name,
						Concentration: conc,
						Replicate:     rep,
						Time:          t,
						OD:            math.Max(b.FloorOD, value+noise),
					})
				}
			}
		}
	}

	return ds, nil
}
