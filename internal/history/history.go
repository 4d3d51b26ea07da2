// Package history persists a record of past audit runs in SQLite so
// repeated audits of the same dataset can be compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vidaudit/internal/config"
	"vidaudit/internal/fsutil"
)

// Run is one recorded audit invocation.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Mode            string
	DataPath        string
	Videos          int
	Files           int
	EmptyFiles      int
	Duplicates      int
	MissingFiles    int
	StructureIssues int
	OverlaysSaved   int
	Status          string
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    mode TEXT NOT NULL,
    data_path TEXT NOT NULL,
    videos INTEGER NOT NULL DEFAULT 0,
    files INTEGER NOT NULL DEFAULT 0,
    empty_files INTEGER NOT NULL DEFAULT 0,
    duplicates INTEGER NOT NULL DEFAULT 0,
    missing_files INTEGER NOT NULL DEFAULT 0,
    structure_issues INTEGER NOT NULL DEFAULT 0,
    overlays_saved INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_runs_started ON audit_runs(started_at);
`

// Open initializes or connects to the run history database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.HistoryDBPath()
	if err := fsutil.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.execWithoutResultRetry(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts one run. A missing ID is assigned; a zero finish time is
// set to now.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	const insert = `
INSERT INTO audit_runs (
    id, started_at, finished_at, mode, data_path,
    videos, files, empty_files, duplicates, missing_files,
    structure_issues, overlays_saved, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	return s.execWithoutResultRetry(ensureContext(ctx), insert,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Mode,
		run.DataPath,
		run.Videos,
		run.Files,
		run.EmptyFiles,
		run.Duplicates,
		run.MissingFiles,
		run.StructureIssues,
		run.OverlaysSaved,
		run.Status,
	)
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
SELECT id, started_at, finished_at, mode, data_path,
       videos, files, empty_files, duplicates, missing_files,
       structure_issues, overlays_saved, status
FROM audit_runs
ORDER BY started_at DESC
LIMIT ?`

	ctx = ensureContext(ctx)
	var runs []Run
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		runs = runs[:0]
		for rows.Next() {
			var (
				run      Run
				started  string
				finished string
			)
			if err := rows.Scan(
				&run.ID, &started, &finished, &run.Mode, &run.DataPath,
				&run.Videos, &run.Files, &run.EmptyFiles, &run.Duplicates,
				&run.MissingFiles, &run.StructureIssues, &run.OverlaysSaved,
				&run.Status,
			); err != nil {
				return err
			}
			run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
			run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	return runs, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
