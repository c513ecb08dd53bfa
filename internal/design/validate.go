package design

import (
	"fmt"
	"math"
)

// Validate checks that the design can drive a simulation without producing
// NaN values or silently skipping an inhibition adjustment.
func (d Design) Validate() error {
	if len(d.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidDesign)
	}
	if len(d.Concentrations) == 0 {
		return fmt.Errorf("%w: at least one concentration is required", ErrInvalidDesign)
	}

	concentrations := make(map[string]bool, len(d.Concentrations))
	for _, c := range d.Concentrations {
		if c == "" {
			return fmt.Errorf("%w: empty concentration label", ErrInvalidDesign)
		}
		if concentrations[c] {
			return fmt.Errorf("%w: duplicate concentration %q", ErrInvalidDesign, c)
		}
		concentrations[c] = true
	}
	if !concentrations[d.Control] {
		return fmt.Errorf("%w: control %q is not a declared concentration", ErrInvalidDesign, d.Control)
	}

	names := make(map[string]bool, len(d.Conditions))
	for _, c := range d.Conditions {
		if c.Name == "" {
			return fmt.Errorf("%w: empty condition name", ErrInvalidDesign)
		}
		if names[c.Name] {
			return fmt.Errorf("%w: duplicate condition %q", ErrInvalidDesign, c.Name)
		}
		names[c.Name] = true

		if err := checkOverride(c.Name, "max_od", c.MaxOD, c.MaxODFactor); err != nil {
			return err
		}
		if err := checkOverride(c.Name, "growth_rate", c.GrowthRate, c.GrowthRateFactor); err != nil {
			return err
		}
		for label, m := range c.Inhibition {
			if !concentrations[label] {
				return fmt.Errorf("%w: condition %q: inhibition for undeclared concentration %q", ErrInvalidDesign, c.Name, label)
			}
			if !positive(m) {
				return fmt.Errorf("%w: condition %q: inhibition for %q must be positive, got %v", ErrInvalidDesign, c.Name, label, m)
			}
		}
		for _, label := range d.Concentrations {
			if label == d.Control {
				continue
			}
			if _, ok := c.Inhibition[label]; !ok {
				return fmt.Errorf("%w: condition %q: missing inhibition for concentration %q", ErrInvalidDesign, c.Name, label)
			}
		}
	}

	if d.Replicates < 1 {
		return fmt.Errorf("%w: replicates must be at least 1, got %d", ErrInvalidDesign, d.Replicates)
	}

	t := d.Time
	if !finite(t.Start) || !finite(t.End) || !finite(t.Step) {
		return fmt.Errorf("%w: time grid must be finite", ErrInvalidDesign)
	}
	if t.Step <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %v", ErrInvalidDesign, t.Step)
	}
	if t.End < t.Start {
		return fmt.Errorf("%w: time end %v is before start %v", ErrInvalidDesign, t.End, t.Start)
	}

	b := d.Baseline
	if !positive(b.MaxOD) {
		return fmt.Errorf("%w: baseline max_od must be positive, got %v", ErrInvalidDesign, b.MaxOD)
	}
	if !positive(b.GrowthRate) {
		return fmt.Errorf("%w: baseline growth_rate must be positive, got %v", ErrInvalidDesign, b.GrowthRate)
	}
	if !finite(b.LagPhase) {
		return fmt.Errorf("%w: lag_phase must be finite", ErrInvalidDesign)
	}
	if !finite(b.NoiseLevel) || b.NoiseLevel < 0 {
		return fmt.Errorf("%w: noise_level must be non-negative, got %v", ErrInvalidDesign, b.NoiseLevel)
	}
	if !finite(b.InitialOD) {
		return fmt.Errorf("%w: initial_od must be finite", ErrInvalidDesign)
	}
	if !finite(b.FloorOD) || b.FloorOD < 0 {
		return fmt.Errorf("%w: floor_od must be non-negative, got %v", ErrInvalidDesign, b.FloorOD)
	}

	if err := validateRange("jitter.max_od", d.Jitter.MaxOD); err != nil {
		return err
	}
	if err := validateRange("jitter.growth_rate", d.Jitter.GrowthRate); err != nil {
		return err
	}

	return nil
}

func validateRange(name string, r Range) error {
	if !positive(r.Low) || !finite(r.High) {
		return fmt.Errorf("%w: %s low must be positive, got %v", ErrInvalidDesign, name, r.Low)
	}
	if r.High < r.Low {
		return fmt.Errorf("%w: %s high %v is below low %v", ErrInvalidDesign, name, r.High, r.Low)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return finite(v) && v > 0
}

// checkOverride requires either a positive absolute value or, failing that,
// a positive factor on the baseline.
func checkOverride(cond, name string, abs, factor float64) error {
	if abs < 0 || !finite(abs) {
		return fmt.Errorf("%w: condition %q: %s must be positive, got %v", ErrInvalidDesign, cond, name, abs)
	}
	if abs == 0 && !positive(factor) {
		return fmt.Errorf("%w: condition %q: %s_factor must be positive, got %v", ErrInvalidDesign, cond, name, factor)
	}
	return nil
}
