package mcp

import (
	"time"

	"github.com/nvandessel/growthsim/internal/dataset"
)

// GrowthGenerateInput defines the input for the growth_generate tool.
type GrowthGenerateInput struct {
	Seed    uint64   `json:"seed,omitempty" jsonschema:"Random seed; 0 or omitted draws a fresh one"`
	Noise   *float64 `json:"noise,omitempty" jsonschema:"Override the Gaussian noise standard deviation (OD units)"`
	Path    string   `json:"path,omitempty" jsonschema:"Output path relative to the project root (default: data/growth/fake_growth_data.csv)"`
	Format  string   `json:"format,omitempty" jsonschema:"Output format: csv or arrow (default: from extension, then config)"`
	Archive bool     `json:"archive,omitempty" jsonschema:"Also save the run to the local archive"`
}

// GrowthGenerateOutput defines the output for the growth_generate tool.
type GrowthGenerateOutput struct {
	Path    string `json:"path" jsonschema:"Path the dataset was written to"`
	Format  string `json:"format" jsonschema:"Encoding of the written file"`
	Seed    uint64 `json:"seed" jsonschema:"Seed used, so the run can be reproduced"`
	Rows    int    `json:"rows" jsonschema:"Number of observations written"`
	RunID   string `json:"run_id,omitempty" jsonschema:"Archive run id, when archived"`
	Message string `json:"message" jsonschema:"Human-readable result message"`
}

// GrowthAUCInput defines the input for the growth_auc tool.
type GrowthAUCInput struct {
	Path      string `json:"path,omitempty" jsonschema:"Dataset path relative to the project root (default: the configured output)"`
	RunID     string `json:"run_id,omitempty" jsonschema:"Read an archived run instead of a file"`
	Condition string `json:"condition,omitempty" jsonschema:"Only curves for this condition"`
}

// GrowthAUCOutput defines the output for the growth_auc tool.
type GrowthAUCOutput struct {
	Curves []dataset.AUCResult `json:"curves" jsonschema:"Area under each growth curve"`
	Count  int                 `json:"count" jsonschema:"Number of curves"`
}

// GrowthRunsInput defines the input for the growth_runs tool.
type GrowthRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return, newest first (default: all)"`
}

// GrowthRunsOutput defines the output for the growth_runs tool.
type GrowthRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Archived runs, newest first"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// RunListItem provides a list view of an archived run.
type RunListItem struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Seed      uint64    `json:"seed"`
	Rows      int       `json:"rows"`
}
