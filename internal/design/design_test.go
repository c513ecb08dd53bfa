package design

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	d := Default()
	if err := d.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if got := d.Rows(); got != 468 {
		t.Errorf("Rows() = %d, want 468", got)
	}
}

func TestTimePoints(t *testing.T) {
	tests := []struct {
		name string
		grid TimeGrid
		want []float64
	}{
		{"default", TimeGrid{Start: 0, End: 24, Step: 2}, []float64{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24}},
		{"single point", TimeGrid{Start: 5, End: 5, Step: 1}, []float64{5}},
		{"end not on grid", TimeGrid{Start: 0, End: 5, Step: 2}, []float64{0, 2, 4}},
		{"fractional step", TimeGrid{Start: 0, End: 0.5, Step: 0.125}, []float64{0, 0.125, 0.25, 0.375, 0.5}},
		{"bad step", TimeGrid{Start: 0, End: 1, Step: 0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			d.Time = tt.grid
			got := d.TimePoints()
			if len(got) != len(tt.want) {
				t.Fatalf("TimePoints() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("TimePoints()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReplicateIDs(t *testing.T) {
	d := Default()
	ids := d.ReplicateIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("ReplicateIDs() = %v, want [1 2 3]", ids)
	}
}

func TestInhibition(t *testing.T) {
	d := Default()
	tests := []struct {
		condition     string
		concentration string
		want          float64
		wantErr       bool
	}{
		{"Aerobic", "20", 0.85, false},
		{"Aerobic", "2.5", 0.99, false},
		{"Anaerobic", "15", 0.94, false},
		{"Anaerobic", "DMSO", 1.0, false},
		{"Aerobic", "DMSO", 1.0, false},
		{"Aerobic", "25", 0, true},
		{"Microaerobic", "20", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.condition+"/"+tt.concentration, func(t *testing.T) {
			got, err := d.Inhibition(tt.condition, tt.concentration)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDesign) {
					t.Fatalf("Inhibition() error = %v, want ErrInvalidDesign", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Inhibition() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Inhibition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInhibition_ControlOmitted(t *testing.T) {
	d := Default()
	delete(d.Conditions[0].Inhibition, "DMSO")
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, control may be omitted", err)
	}
	got, err := d.Inhibition("Anaerobic", "DMSO")
	if err != nil || got != 1.0 {
		t.Errorf("Inhibition(control) = %v, %v; want 1.0, nil", got, err)
	}
}

func TestCondition_Parameters(t *testing.T) {
	d := Default()

	anaerobic, aerobic := d.Conditions[0], d.Conditions[1]
	if got := anaerobic.MaxODFor(d.Baseline); got != 0.65 {
		t.Errorf("Anaerobic MaxODFor() = %v, want exactly 0.65", got)
	}
	if got := anaerobic.GrowthRateFor(d.Baseline); got != 0.7 {
		t.Errorf("Anaerobic GrowthRateFor() = %v, want exactly 0.7", got)
	}
	if got := aerobic.MaxODFor(d.Baseline); got != 0.9 {
		t.Errorf("Aerobic MaxODFor() = %v, want 0.9", got)
	}
	if got := aerobic.GrowthRateFor(d.Baseline); got != 0.8 {
		t.Errorf("Aerobic GrowthRateFor() = %v, want 0.8", got)
	}

	scaled := Condition{MaxODFactor: 0.5, GrowthRateFactor: 2}
	if got := scaled.MaxODFor(d.Baseline); got != 0.45 {
		t.Errorf("factor MaxODFor() = %v, want 0.45", got)
	}
	if got := scaled.GrowthRateFor(d.Baseline); got != 1.6 {
		t.Errorf("factor GrowthRateFor() = %v, want 1.6", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Design)
		wantMsg string
	}{
		{"no conditions", func(d *Design) { d.Conditions = nil }, "at least one condition"},
		{"no concentrations", func(d *Design) { d.Concentrations = nil }, "at least one concentration"},
		{"duplicate concentration", func(d *Design) { d.Concentrations = append(d.Concentrations, "20") }, "duplicate concentration"},
		{"control not declared", func(d *Design) { d.Control = "vehicle" }, "control"},
		{"duplicate condition", func(d *Design) { d.Conditions = append(d.Conditions, d.Conditions[0]) }, "duplicate condition"},
		{"missing multiplier", func(d *Design) { delete(d.Conditions[1].Inhibition, "10") }, "missing inhibition"},
		{"typo in multiplier key", func(d *Design) { d.Conditions[1].Inhibition["2,5"] = 0.99 }, "undeclared concentration"},
		{"zero multiplier", func(d *Design) { d.Conditions[1].Inhibition["10"] = 0 }, "must be positive"},
		{"zero replicates", func(d *Design) { d.Replicates = 0 }, "replicates"},
		{"zero step", func(d *Design) { d.Time.Step = 0 }, "time step"},
		{"end before start", func(d *Design) { d.Time.End = -1 }, "before start"},
		{"negative noise", func(d *Design) { d.Baseline.NoiseLevel = -0.1 }, "noise_level"},
		{"zero max od", func(d *Design) { d.Baseline.MaxOD = 0 }, "max_od"},
		{"negative absolute max od", func(d *Design) { d.Conditions[0].MaxOD = -0.1 }, "max_od must be positive"},
		{"no absolute rate and no factor", func(d *Design) { d.Conditions[0].GrowthRate = 0 }, "growth_rate_factor"},
		{"zero factor", func(d *Design) { d.Conditions[1].MaxODFactor = 0 }, "max_od_factor"},
		{"inverted jitter", func(d *Design) { d.Jitter.GrowthRate = Range{Low: 1.1, High: 0.9} }, "jitter.growth_rate"},
		{"zero jitter low", func(d *Design) { d.Jitter.MaxOD = Range{Low: 0, High: 1} }, "jitter.max_od"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			tt.mutate(&d)
			err := d.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidDesign) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidDesign", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantMsg)
			}
		})
	}
}

func TestParse_OverridesDefaults(t *testing.T) {
	data := []byte(`
replicates: 4
baseline:
  noise_level: 0
time:
  start: 0
  end: 12
  step: 3
`)
	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Replicates != 4 {
		t.Errorf("Replicates = %d, want 4", d.Replicates)
	}
	if d.Baseline.NoiseLevel != 0 {
		t.Errorf("NoiseLevel = %v, want 0", d.Baseline.NoiseLevel)
	}
	if d.Baseline.MaxOD != 0.9 {
		t.Errorf("MaxOD = %v, want default 0.9", d.Baseline.MaxOD)
	}
	if got := len(d.TimePoints()); got != 5 {
		t.Errorf("len(TimePoints()) = %d, want 5", got)
	}
	if len(d.Conditions) != 2 {
		t.Errorf("len(Conditions) = %d, want default 2", len(d.Conditions))
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("replicates: 0\n"))
	if !errors.Is(err, ErrInvalidDesign) {
		t.Errorf("Parse() error = %v, want ErrInvalidDesign", err)
	}

	_, err = Parse([]byte("replicates: [\n"))
	if err == nil {
		t.Error("Parse() of malformed YAML = nil, want error")
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	d := Default()
	data, err := d.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "design.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if got.Rows() != d.Rows() {
		t.Errorf("Rows() = %d, want %d", got.Rows(), d.Rows())
	}
	m, err := got.Inhibition("Aerobic", "20")
	if err != nil || m != 0.85 {
		t.Errorf("Inhibition(Aerobic, 20) = %v, %v; want 0.85", m, err)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("LoadFromFile() = nil error for missing file")
	}
}
