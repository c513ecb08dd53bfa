// Package store archives generated datasets in a local SQLite database so a
// run can be listed, re-exported, or pruned later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
)

// ErrRunNotFound is returned when a run id is not in the archive.
var ErrRunNotFound = errors.New("run not found")

// DBFile is the archive's file name inside its directory.
const DBFile = "growthsim.db"

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is the metadata of one archived generation run.
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	Seed      uint64        `json:"seed" yaml:"seed"`
	RowCount  int           `json:"row_count" yaml:"row_count"`
	Design    design.Design `json:"design" yaml:"design"`
}

// RunStore is a SQLite-backed archive of runs.
type RunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the archive at dir/growthsim.db.
func Open(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *RunStore) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// ValidateIntegrity runs SQLite's integrity and foreign key checks.
func (s *RunStore) ValidateIntegrity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ValidateIntegrity(ctx, s.db)
}

// SaveRun archives ds together with the seed and design that produced it.
func (s *RunStore) SaveRun(ctx context.Context, seed uint64, d design.Design, ds *dataset.Dataset) (Run, error) {
	if ds == nil {
		return Run{}, fmt.Errorf("save run: nil dataset")
	}
	designYAML, err := d.Marshal()
	if err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}

	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Seed:      seed,
		RowCount:  ds.Len(),
		Design:    d,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, seed, design_yaml, row_count) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(timeLayout), strconv.FormatUint(seed, 10), string(designYAML), run.RowCount); err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO observations (run_id, seq, condition, concentration, replicate, time_h, od600) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("failed to prepare observation insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range ds.Observations {
		if _, err := stmt.ExecContext(ctx, run.ID, i, o.Condition, o.Concentration, o.Replicate, o.Time, o.OD); err != nil {
			return Run{}, fmt.Errorf("failed to insert observation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// GetRun returns the metadata of run id.
func (s *RunStore) GetRun(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, seed, design_yaml, row_count FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns every run, newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, seed, design_yaml, row_count FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// LoadDataset returns the observations of run id in their original order,
// with the run's concentration category order restored.
func (s *RunStore) LoadDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT condition, concentration, replicate, time_h, od600 FROM observations WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer rows.Close()

	ds := &dataset.Dataset{
		Observations:   make([]dataset.Observation, 0, run.RowCount),
		Concentrations: dataset.NewOrdered(run.Design.Concentrations),
	}
	for rows.Next() {
		var o dataset.Observation
		if err := rows.Scan(&o.Condition, &o.Concentration, &o.Replicate, &o.Time, &o.OD); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		ds.Observations = append(ds.Observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate observations: %w", err)
	}
	return ds, nil
}

// DeleteRun removes run id and its observations.
func (s *RunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Observations cascade via the foreign key.
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		createdAt  string
		seed       string
		designYAML string
	)
	if err := row.Scan(&run.ID, &createdAt, &seed, &designYAML, &run.RowCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at %q: %w", run.ID, createdAt, err)
	}
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return Run{}, fmt.Errorf("run %s: bad seed %q: %w", run.ID, seed, err)
	}
	if run.Design, err = design.Parse([]byte(designYAML)); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
