package state

import (
	"database/sql"
	"fmt"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	file_path       TEXT PRIMARY KEY,
	file_hash       TEXT NOT NULL,
	blocks_inserted INTEGER NOT NULL DEFAULT 0,
	processed_at    TEXT NOT NULL,
	run_id          TEXT NOT NULL
)`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	files_scanned   INTEGER NOT NULL DEFAULT 0,
	files_modified  INTEGER NOT NULL DEFAULT 0,
	blocks_inserted INTEGER NOT NULL DEFAULT 0
)`

const createFilesRunIndex = `CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`

// CreateSchema creates the state tables. Safe to call on an existing database.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	statements := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"runs", createRunsTable},
		{"idx_files_run_id", createFilesRunIndex},
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
