package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/pathutil"
	"github.com/nvandessel/growthsim/internal/runner"
	"github.com/nvandessel/growthsim/internal/store"
)

// registerTools registers all growthsim MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "growth_generate",
		Description: "Simulate a bacterial growth-curve dataset for the sulforaphane experiment and write it under the project root",
	}, s.handleGrowthGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "growth_auc",
		Description: "Compute the area under each growth curve of a dataset file or archived run",
	}, s.handleGrowthAUC)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "growth_runs",
		Description: "List archived generation runs, newest first",
	}, s.handleGrowthRuns)
}

// handleGrowthGenerate implements the growth_generate tool.
func (s *Server) handleGrowthGenerate(ctx context.Context, req *sdk.CallToolRequest, args GrowthGenerateInput) (_ *sdk.CallToolResult, _ GrowthGenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("growth_generate", start, retErr, map[string]any{
			"seed": args.Seed, "format": args.Format, "archive": args.Archive, "path_set": args.Path != "",
		})
	}()

	if err := s.limiters.Check("growth_generate"); err != nil {
		return nil, GrowthGenerateOutput{}, err
	}

	path := args.Path
	if path == "" {
		path = s.cfg.Output.Path
	}
	outPath, err := pathutil.ResolveInRoot(s.root, path)
	if err != nil {
		return nil, GrowthGenerateOutput{}, fmt.Errorf("output path rejected: %w", err)
	}

	formatName := args.Format
	if formatName == "" {
		if args.Path != "" {
			formatName = string(dataset.FormatFromPath(outPath))
		} else {
			formatName = s.cfg.Output.Format
		}
	}
	format, err := dataset.ParseFormat(formatName)
	if err != nil {
		return nil, GrowthGenerateOutput{}, err
	}
	header, err := dataset.ParseHeader(s.cfg.Output.Header)
	if err != nil {
		return nil, GrowthGenerateOutput{}, err
	}

	d := s.cfg.Design
	if args.Noise != nil {
		d.Baseline.NoiseLevel = *args.Noise
	}

	seed := args.Seed
	if seed == 0 {
		seed = s.cfg.Seed
	}

	runReq := runner.Request{
		Design: d,
		Seed:   seed,
		Path:   outPath,
		Format: format,
		Header: header,
	}
	if args.Archive || s.cfg.Store.Archive {
		runReq.StoreDir = s.cfg.StoreDir(s.root)
	}

	res, err := s.runner.Generate(ctx, runReq)
	if err != nil {
		return nil, GrowthGenerateOutput{}, err
	}

	msg := fmt.Sprintf("Wrote %d rows (seed %d) to %s", res.Rows, res.Seed, pathutil.RedactPath(res.Path))
	if res.RunID != "" {
		msg += fmt.Sprintf(", archived as %s", res.RunID)
	}
	return nil, GrowthGenerateOutput{
		Path:    res.Path,
		Format:  string(res.Format),
		Seed:    res.Seed,
		Rows:    res.Rows,
		RunID:   res.RunID,
		Message: msg,
	}, nil
}

// handleGrowthAUC implements the growth_auc tool.
func (s *Server) handleGrowthAUC(ctx context.Context, req *sdk.CallToolRequest, args GrowthAUCInput) (_ *sdk.CallToolResult, _ GrowthAUCOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("growth_auc", start, retErr, map[string]any{
			"run_id": args.RunID, "condition": args.Condition, "path_set": args.Path != "",
		})
	}()

	if err := s.limiters.Check("growth_auc"); err != nil {
		return nil, GrowthAUCOutput{}, err
	}

	var (
		ds  *dataset.Dataset
		err error
	)
	if args.RunID != "" {
		ds, err = s.loadRun(ctx, args.RunID)
	} else {
		ds, err = s.loadFile(args.Path)
	}
	if err != nil {
		return nil, GrowthAUCOutput{}, err
	}

	if args.Condition != "" {
		ds = ds.Filter(dataset.Filter{Condition: args.Condition})
	}
	curves := dataset.AUC(ds)
	if curves == nil {
		curves = []dataset.AUCResult{}
	}
	return nil, GrowthAUCOutput{Curves: curves, Count: len(curves)}, nil
}

// handleGrowthRuns implements the growth_runs tool.
func (s *Server) handleGrowthRuns(ctx context.Context, req *sdk.CallToolRequest, args GrowthRunsInput) (_ *sdk.CallToolResult, _ GrowthRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("growth_runs", start, retErr, map[string]any{"limit": args.Limit})
	}()

	if err := s.limiters.Check("growth_runs"); err != nil {
		return nil, GrowthRunsOutput{}, err
	}

	if args.Limit < 0 {
		return nil, GrowthRunsOutput{}, fmt.Errorf("limit must be non-negative, got %d", args.Limit)
	}

	rs, err := store.Open(s.cfg.StoreDir(s.root))
	if err != nil {
		return nil, GrowthRunsOutput{}, fmt.Errorf("open archive: %w", err)
	}
	defer rs.Close()

	runs, err := rs.ListRuns(ctx)
	if err != nil {
		return nil, GrowthRunsOutput{}, err
	}
	if args.Limit > 0 && len(runs) > args.Limit {
		runs = runs[:args.Limit]
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{ID: r.ID, CreatedAt: r.CreatedAt, Seed: r.Seed, Rows: r.RowCount})
	}
	return nil, GrowthRunsOutput{Runs: items, Count: len(items)}, nil
}

func (s *Server) loadRun(ctx context.Context, id string) (*dataset.Dataset, error) {
	rs, err := store.Open(s.cfg.StoreDir(s.root))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer rs.Close()
	return rs.LoadDataset(ctx, id)
}

func (s *Server) loadFile(path string) (*dataset.Dataset, error) {
	if path == "" {
		path = s.cfg.Output.Path
	}
	inPath, err := pathutil.ResolveInRoot(s.root, path)
	if err != nil {
		return nil, fmt.Errorf("input path rejected: %w", err)
	}
	ds, err := dataset.ReadFile(inPath, dataset.NewOrdered(s.cfg.Design.Concentrations))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pathutil.RedactPath(inPath), err)
	}
	return ds, nil
}

// auditTool records a tool invocation in the run journal and the debug log.
// Only non-sensitive parameter summaries are passed in.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]any) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}
	durationMs := time.Since(start).Milliseconds()

	s.logger.Debug("mcp tool call", "tool", toolName, "status", status, "duration_ms", durationMs)
	s.journal.Log(map[string]any{
		"event":       "tool_call",
		"tool":        toolName,
		"status":      status,
		"error":       errMsg,
		"duration_ms": durationMs,
		"params":      params,
	})
}
