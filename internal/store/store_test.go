package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDataset() *dataset.Dataset {
	d := design.Default()
	ds := &dataset.Dataset{Concentrations: dataset.NewOrdered(d.Concentrations)}
	for i, conc := range []string{"DMSO", "20", "2.5"} {
		for _, tm := range []float64{0, 2, 4} {
			ds.Observations = append(ds.Observations, dataset.Observation{
				Condition:     "Aerobic",
				Concentration: conc,
				Replicate:     i + 1,
				Time:          tm,
				OD:            0.05 + tm/10 + float64(i)/100,
			})
		}
	}
	return ds
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if s.Path() != filepath.Join(dir, DBFile) {
		t.Errorf("Path() = %q", s.Path())
	}
	if err := s.ValidateIntegrity(context.Background()); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	run, err := s.SaveRun(ctx, 7, design.Default(), testDataset())
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if _, err := s.GetRun(ctx, run.ID); err != nil {
		t.Errorf("GetRun() after reopen error = %v", err)
	}
}

func TestSaveRun_LoadDataset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ds := testDataset()

	// Seeds above math.MaxInt64 must survive.
	const seed = uint64(1<<63 + 12345)
	run, err := s.SaveRun(ctx, seed, design.Default(), ds)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if run.ID == "" || run.RowCount != ds.Len() {
		t.Fatalf("SaveRun() = %+v", run)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Seed != seed {
		t.Errorf("Seed = %d, want %d", got.Seed, seed)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	if !reflect.DeepEqual(got.Design, design.Default()) {
		t.Errorf("Design did not round-trip")
	}

	loaded, err := s.LoadDataset(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Observations, ds.Observations) {
		t.Errorf("observations differ:\n got %v\nwant %v", loaded.Observations, ds.Observations)
	}
	if !reflect.DeepEqual(loaded.Concentrations, ds.Concentrations) {
		t.Errorf("Concentrations = %+v, want %+v", loaded.Concentrations, ds.Concentrations)
	}
}

func TestSaveRun_NilDataset(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveRun(context.Background(), 1, design.Default(), nil); err == nil {
		t.Error("SaveRun(nil) expected error")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	_, err = s.LoadDataset(ctx, "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadDataset() error = %v, want ErrRunNotFound", err)
	}
	if err := s.DeleteRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for seed := uint64(1); seed <= 3; seed++ {
		run, err := s.SaveRun(ctx, seed, design.Default(), testDataset())
		if err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() returned %d runs, want 3", len(runs))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if runs[i].ID != want {
			t.Errorf("runs[%d].ID = %s, want %s", i, runs[i].ID, want)
		}
	}
}

func TestDeleteRun_CascadesObservations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.SaveRun(ctx, 1, design.Default(), testDataset())
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations WHERE run_id = ?`, run.ID).Scan(&n); err != nil {
		t.Fatalf("count observations: %v", err)
	}
	if n != 0 {
		t.Errorf("%d observations left after delete", n)
	}
	if err := s.ValidateIntegrity(ctx); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}

func TestInitSchema_NewerVersion(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	s.Close()

	_, err = Open(dir)
	if err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("Open() error = %v, want newer-version error", err)
	}
}

func TestLocalPath(t *testing.T) {
	got := LocalPath("/proj")
	if got != filepath.Join("/proj", ".growthsim") {
		t.Errorf("LocalPath() = %q", got)
	}
}

func TestGlobalPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	got, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath() error = %v", err)
	}
	if got != filepath.Join(home, DirName) {
		t.Errorf("GlobalPath() = %q, want under %q", got, home)
	}
}

func TestTimeLayout_SortsLexically(t *testing.T) {
	a := time.Date(2024, 1, 2, 3, 4, 5, 100, time.UTC).Format(timeLayout)
	b := time.Date(2024, 1, 2, 3, 4, 5, 20, time.UTC).Format(timeLayout)
	if !(b < a) {
		t.Errorf("%q should sort before %q", b, a)
	}
}
