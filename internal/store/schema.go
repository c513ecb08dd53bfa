package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the run archive.
const schemaV1 = `
-- One row per archived generation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    seed TEXT NOT NULL,          -- decimal uint64; SQLite integers are signed
    design_yaml TEXT NOT NULL,
    row_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

-- Observations in emission order
CREATE TABLE IF NOT EXISTS observations (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    condition TEXT NOT NULL,
    concentration TEXT NOT NULL,
    replicate INTEGER NOT NULL,
    time_h REAL NOT NULL,
    od600 REAL NOT NULL,
    PRIMARY KEY (run_id, seq)
);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database. An existing database
// must pass ValidateIntegrity and carry a version this build understands.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		// No schema_version table yet. schemaV1 is idempotent.
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	if version > SchemaVersion {
		return fmt.Errorf("archive schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("archive integrity check failed: %w", err)
	}
	return nil
}

// getSchemaVersion fails when schema_version is missing or empty.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity runs SQLite's integrity_check and foreign_key_check
// pragmas and reports the first problem found.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check: %s", result)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("foreign_key_check: %w", err)
	}
	defer rows.Close()

	var orphans int
	var table string
	for rows.Next() {
		var (
			child        string
			rowid, fkIdx sql.NullInt64
			parent       string
		)
		if err := rows.Scan(&child, &rowid, &parent, &fkIdx); err != nil {
			return fmt.Errorf("foreign_key_check: %w", err)
		}
		if orphans == 0 {
			table = child
		}
		orphans++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("foreign_key_check: %w", err)
	}
	if orphans > 0 {
		return fmt.Errorf("foreign_key_check: %d orphaned rows (first in %s)", orphans, table)
	}
	return nil
}
