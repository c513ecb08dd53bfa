// Package runner executes one generation run end to end: seed resolution,
// simulation, the atomic dataset write, and the optional archive save.
// The CLI and the MCP server both go through it.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
	"github.com/nvandessel/growthsim/internal/logging"
	"github.com/nvandessel/growthsim/internal/pathutil"
	"github.com/nvandessel/growthsim/internal/simulation"
	"github.com/nvandessel/growthsim/internal/store"
	"github.com/nvandessel/growthsim/internal/tracing"
)

// Request describes one run.
type Request struct {
	Design design.Design

	// Seed 0 draws a fresh seed, which is logged and returned.
	Seed uint64

	// Path is the destination file; it must already be resolved.
	Path   string
	Format dataset.Format
	Header dataset.Header

	// StoreDir, when non-empty, archives the run there.
	StoreDir string
}

// Result reports what a run produced.
type Result struct {
	Path   string         `json:"path"`
	Format dataset.Format `json:"format"`
	Seed   uint64         `json:"seed"`
	Rows   int            `json:"rows"`
	RunID  string         `json:"run_id,omitempty"`
}

// Runner carries the logging sinks shared across runs. A zero Runner logs
// nowhere.
type Runner struct {
	Logger  *slog.Logger
	Journal *logging.RunJournal
}

// New returns a Runner. A nil logger discards output.
func New(logger *slog.Logger, journal *logging.RunJournal) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{Logger: logger, Journal: journal}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Generate runs the simulation and writes the dataset, then archives it
// when req.StoreDir is set. A failed write leaves no file at req.Path.
// An archive failure is returned after the dataset file is in place.
func (r *Runner) Generate(ctx context.Context, req Request) (res Result, err error) {
	log := r.logger()

	seed := req.Seed
	if seed == 0 {
		seed = simulation.RandomSeed()
		log.Info("no seed given, drew one", "seed", seed)
	}

	ctx, span := tracing.Start(ctx, "growthsim.run",
		attribute.String("growthsim.seed", fmt.Sprint(seed)),
		attribute.String("growthsim.format", string(req.Format)),
	)
	defer func() { tracing.End(span, err) }()

	ds, err := r.simulate(ctx, req.Design, seed)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := r.write(ctx, req, ds); err != nil {
		return Result{}, err
	}
	log.Info("dataset written", "path", req.Path, "rows", ds.Len(), "format", req.Format)

	res = Result{Path: req.Path, Format: req.Format, Seed: seed, Rows: ds.Len()}

	if req.StoreDir != "" {
		run, err := r.archive(ctx, req.StoreDir, seed, req.Design, ds)
		if err != nil {
			return Result{}, err
		}
		res.RunID = run.ID
		log.Info("run archived", "run_id", run.ID)
	}

	r.Journal.Log(map[string]any{
		"event":  "run_written",
		"path":   req.Path,
		"format": string(req.Format),
		"seed":   seed,
		"rows":   res.Rows,
		"run_id": res.RunID,
	})
	return res, nil
}

func (r *Runner) simulate(ctx context.Context, d design.Design, seed uint64) (_ *dataset.Dataset, err error) {
	ctx, span := tracing.Start(ctx, "growthsim.simulate")
	defer func() { tracing.End(span, err) }()

	log := r.logger()
	opts := simulation.Options{
		OnCurve: func(p simulation.CurveParams) {
			log.Log(ctx, logging.LevelTrace, "curve drawn",
				"condition", p.Condition,
				"concentration", p.Concentration,
				"replicate", p.Replicate,
				"max_od", p.MaxOD,
				"growth_rate", p.GrowthRate,
			)
			if r.Journal.Tracing() {
				r.Journal.Log(map[string]any{
					"event":         "curve_params",
					"seed":          seed,
					"condition":     p.Condition,
					"concentration": p.Concentration,
					"replicate":     p.Replicate,
					"max_od":        p.MaxOD,
					"growth_rate":   p.GrowthRate,
					"lag_phase":     p.LagPhase,
					"noise_level":   p.NoiseLevel,
				})
			}
		},
	}

	ds, err := simulation.GenerateWith(d, simulation.NewSource(seed), opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	span.SetAttributes(attribute.Int("growthsim.rows", ds.Len()))
	return ds, nil
}

func (r *Runner) write(ctx context.Context, req Request, ds *dataset.Dataset) (err error) {
	_, span := tracing.Start(ctx, "growthsim.write", attribute.String("growthsim.path", pathutil.RedactPath(req.Path)))
	defer func() { tracing.End(span, err) }()

	if err := dataset.WriteFile(req.Path, ds, req.Format, req.Header); err != nil {
		return fmt.Errorf("write %s: %w", pathutil.RedactPath(req.Path), err)
	}
	return nil
}

func (r *Runner) archive(ctx context.Context, dir string, seed uint64, d design.Design, ds *dataset.Dataset) (_ store.Run, err error) {
	ctx, span := tracing.Start(ctx, "growthsim.archive")
	defer func() { tracing.End(span, err) }()

	rs, err := store.Open(dir)
	if err != nil {
		return store.Run{}, fmt.Errorf("open archive: %w", err)
	}
	defer rs.Close()

	run, err := rs.SaveRun(ctx, seed, d, ds)
	if err != nil {
		return store.Run{}, fmt.Errorf("archive run: %w", err)
	}
	return run, nil
}
