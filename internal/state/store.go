// Package state remembers which files were already annotated so unchanged
// files can be skipped on the next run.
package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/maypok86/otter"
)

// cacheCapacity bounds the in-memory hash cache.
const cacheCapacity = 10_000

// FileRecord is the state kept for one source file after processing.
type FileRecord struct {
	FilePath       string
	FileHash       string // SHA-256 of the content as left on disk
	BlocksInserted int
	ProcessedAt    time.Time
	RunID          string
}

// RunRecord summarises one docfill run.
type RunRecord struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	FilesScanned   int
	FilesModified  int
	BlocksInserted int
}

// Store persists file hashes in SQLite with a read-through memory cache.
// It is safe for concurrent use.
type Store struct {
	db    *sql.DB
	cache otter.Cache[string, string]
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database, creating the schema if needed.
// The store takes ownership of db.
func NewStore(db *sql.DB) (*Store, error) {
	// One connection keeps SQLite writes serialised and :memory: databases shared
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		return nil, err
	}

	cache, err := otter.MustBuilder[string, string](cacheCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state cache: %w", err)
	}

	return &Store{db: db, cache: cache}, nil
}

// Lookup returns the hash recorded for path, if any.
func (s *Store) Lookup(path string) (string, bool, error) {
	if hash, ok := s.cache.Get(path); ok {
		return hash, true, nil
	}

	var hash string
	err := sq.Select("file_hash").
		From("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(s.db).
		QueryRow().
		Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %s: %w", path, err)
	}

	s.cache.Set(path, hash)
	return hash, true, nil
}

// Record writes or replaces the state for one file.
func (s *Store) Record(rec FileRecord) error {
	_, err := sq.Insert("files").
		Columns("file_path", "file_hash", "blocks_inserted", "processed_at", "run_id").
		Values(rec.FilePath, rec.FileHash, rec.BlocksInserted, rec.ProcessedAt.UTC().Format(time.RFC3339), rec.RunID).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record state for %s: %w", rec.FilePath, err)
	}

	s.cache.Set(rec.FilePath, rec.FileHash)
	return nil
}

// Forget removes the state for path.
func (s *Store) Forget(path string) error {
	_, err := sq.Delete("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to forget %s: %w", path, err)
	}
	s.cache.Delete(path)
	return nil
}

// RecordRun stores the summary of a finished run.
func (s *Store) RecordRun(run RunRecord) error {
	_, err := sq.Insert("runs").
		Columns("run_id", "started_at", "finished_at", "files_scanned", "files_modified", "blocks_inserted").
		Values(
			run.RunID,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.UTC().Format(time.RFC3339),
			run.FilesScanned,
			run.FilesModified,
			run.BlocksInserted,
		).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

// LastRun returns the most recently finished run. Runs finishing within the
// same second are ordered by insertion.
func (s *Store) LastRun() (*RunRecord, error) {
	var (
		run               RunRecord
		started, finished string
	)
	err := sq.Select("run_id", "started_at", "finished_at", "files_scanned", "files_modified", "blocks_inserted").
		From("runs").
		OrderBy("finished_at DESC", "rowid DESC").
		Limit(1).
		RunWith(s.db).
		QueryRow().
		Scan(&run.RunID, &started, &finished, &run.FilesScanned, &run.FilesModified, &run.BlocksInserted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at %q: %w", finished, err)
	}
	return &run, nil
}

// Close releases the cache and database.
func (s *Store) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// HashContent returns the hex SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
