// Package design describes the experiment a growth simulation sweeps over:
// conditions, ordered concentration levels, the inhibition lookup table,
// replicates, the time grid, and the baseline curve parameters.
package design

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDesign is wrapped by every validation failure.
var ErrInvalidDesign = errors.New("invalid design")

// Design is the full set of inputs to a simulation run.
type Design struct {
	// Conditions are swept in the listed order.
	Conditions []Condition `json:"conditions" yaml:"conditions"`

	// Concentrations are the ordered categorical levels, highest dose first.
	// The order is both the sweep order and the category order of the output.
	Concentrations []string `json:"concentrations" yaml:"concentrations"`

	// Control is the concentration label that applies no inhibition.
	Control string `json:"control" yaml:"control"`

	// Replicates is the number of replicates; ids run 1..Replicates.
	Replicates int `json:"replicates" yaml:"replicates"`

	Time     TimeGrid `json:"time" yaml:"time"`
	Baseline Baseline `json:"baseline" yaml:"baseline"`
	Jitter   Jitter   `json:"jitter" yaml:"jitter"`
}

// Condition is one environmental condition with its parameter adjustments.
type Condition struct {
	Name string `json:"name" yaml:"name"`

	// MaxODFactor scales the baseline carrying capacity.
	MaxODFactor float64 `json:"max_od_factor,omitempty" yaml:"max_od_factor,omitempty"`

	// GrowthRateFactor scales the baseline growth rate.
	GrowthRateFactor float64 `json:"growth_rate_factor,omitempty" yaml:"growth_rate_factor,omitempty"`

	// MaxOD and GrowthRate, when positive, replace the scaled baseline
	// outright and the matching factor is ignored.
	MaxOD      float64 `json:"max_od,omitempty" yaml:"max_od,omitempty"`
	GrowthRate float64 `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty"`

	// Inhibition maps a concentration label to its max_od multiplier.
	// The control may be omitted and is treated as 1.0.
	Inhibition map[string]float64 `json:"inhibition" yaml:"inhibition"`
}

// TimeGrid is an evenly spaced, inclusive time sequence in hours.
type TimeGrid struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
	Step  float64 `json:"step" yaml:"step"`
}

// Baseline holds the un-adjusted curve parameters and measurement constants.
type Baseline struct {
	MaxOD      float64 `json:"max_od" yaml:"max_od"`
	GrowthRate float64 `json:"growth_rate" yaml:"growth_rate"`
	LagPhase   float64 `json:"lag_phase" yaml:"lag_phase"`
	NoiseLevel float64 `json:"noise_level" yaml:"noise_level"`

	// InitialOD replaces the sigmoid value at t == 0.
	InitialOD float64 `json:"initial_od" yaml:"initial_od"`

	// FloorOD is the lowest value any observation may take.
	FloorOD float64 `json:"floor_od" yaml:"floor_od"`
}

// Range is a closed interval for a uniform draw.
type Range struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Jitter holds the per-replicate multiplicative perturbation ranges.
type Jitter struct {
	MaxOD      Range `json:"max_od" yaml:"max_od"`
	GrowthRate Range `json:"growth_rate" yaml:"growth_rate"`
}

// MaxODFor is the condition's carrying capacity before inhibition.
func (c Condition) MaxODFor(b Baseline) float64 {
	if c.MaxOD > 0 {
		return c.MaxOD
	}
	return b.MaxOD * c.MaxODFactor
}

// GrowthRateFor is the condition's growth rate before jitter.
func (c Condition) GrowthRateFor(b Baseline) float64 {
	if c.GrowthRate > 0 {
		return c.GrowthRate
	}
	return b.GrowthRate * c.GrowthRateFactor
}

// Default returns the sulforaphane growth experiment: two oxygen conditions,
// five SFN doses plus a DMSO control, three replicates, 0..24 h every 2 h.
func Default() Design {
	return Design{
		Conditions: []Condition{
			{
				Name:       "Anaerobic",
				MaxOD:      0.65,
				GrowthRate: 0.7,
				Inhibition: map[string]float64{
					"20":   0.94,
					"15":   0.94,
					"10":   0.95,
					"5":    0.97,
					"2.5":  0.99,
					"DMSO": 1.0,
				},
			},
			{
				Name:             "Aerobic",
				MaxODFactor:      1.0,
				GrowthRateFactor: 1.0,
				Inhibition: map[string]float64{
					"20":   0.85,
					"15":   0.90,
					"10":   0.94,
					"5":    0.97,
					"2.5":  0.99,
					"DMSO": 1.0,
				},
			},
		},
		Concentrations: []string{"20", "15", "10", "5", "2.5", "DMSO"},
		Control:        "DMSO",
		Replicates:     3,
		Time:           TimeGrid{Start: 0, End: 24, Step: 2},
		Baseline: Baseline{
			MaxOD:      0.9,
			GrowthRate: 0.8,
			LagPhase:   6,
			NoiseLevel: 0.02,
			InitialOD:  0.05,
			FloorOD:    0.01,
		},
		Jitter: Jitter{
			MaxOD:      Range{Low: 0.95, High: 1.05},
			GrowthRate: Range{Low: 0.9, High: 1.1},
		},
	}
}

// LoadFromFile reads a YAML design. Fields absent from the file keep their
// Default values.
func LoadFromFile(path string) (Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Design{}, fmt.Errorf("reading design file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return Design{}, err
	}
	return d, nil
}

// Parse decodes a YAML design over the defaults and validates it.
func Parse(data []byte) (Design, error) {
	d := Default()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Design{}, fmt.Errorf("parsing design: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Design{}, err
	}
	return d, nil
}

// Marshal encodes the design as YAML.
func (d Design) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling design: %w", err)
	}
	return data, nil
}

// TimePoints returns the inclusive time grid. Points are computed as
// Start + i*Step so no rounding error accumulates across the sequence.
func (d Design) TimePoints() []float64 {
	g := d.Time
	if g.Step <= 0 || g.End < g.Start {
		return nil
	}
	n := int(math.Floor((g.End-g.Start)/g.Step+1e-9)) + 1
	points := make([]float64, n)
	for i := range points {
		points[i] = g.Start + float64(i)*g.Step
	}
	return points
}

// ReplicateIDs returns 1..Replicates.
func (d Design) ReplicateIDs() []int {
	ids := make([]int, 0, d.Replicates)
	for i := 1; i <= d.Replicates; i++ {
		ids = append(ids, i)
	}
	return ids
}

// Rows is the number of observations a run over this design emits.
func (d Design) Rows() int {
	return len(d.Conditions) * len(d.Concentrations) * d.Replicates * len(d.TimePoints())
}

// Inhibition returns the max_od multiplier for a condition and concentration.
// The control always yields 1.0. Unknown labels are an error rather than a
// silent "no adjustment".
func (d Design) Inhibition(condition, concentration string) (float64, error) {
	c, ok := d.condition(condition)
	if !ok {
		return 0, fmt.Errorf("%w: unknown condition %q", ErrInvalidDesign, condition)
	}
	if concentration == d.Control {
		return 1.0, nil
	}
	m, ok := c.Inhibition[concentration]
	if !ok {
		return 0, fmt.Errorf("%w: no inhibition multiplier for condition %q at concentration %q",
			ErrInvalidDesign, condition, concentration)
	}
	return m, nil
}

func (d Design) condition(name string) (Condition, bool) {
	for _, c := range d.Conditions {
		if c.Name == name {
			return c, true
		}
	}
	return Condition{}, false
}
