// Package history archives every tagging attempt in SQLite so operators can
// inspect what ran, when, and why it failed. The status log only keeps
// current state; the archive keeps the full trail.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcome classifies a recorded attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt is one archived tagging attempt.
type Attempt struct {
	ID         int64
	RunID      string
	File       string
	Outcome    Outcome
	Duration   time.Duration
	Stderr     string
	RecordedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    file TEXT NOT NULL,
    outcome TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    stderr TEXT NOT NULL DEFAULT '',
    recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_file ON attempts(file);
`

// Store manages the attempt archive backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
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

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one attempt to the archive.
func (s *Store) Record(ctx context.Context, attempt Attempt) error {
	if s == nil || s.db == nil {
		return nil
	}
	recordedAt := attempt.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attempts (run_id, file, outcome, duration_ms, stderr, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.RunID,
		attempt.File,
		string(attempt.Outcome),
		attempt.Duration.Milliseconds(),
		attempt.Stderr,
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ForFile returns archived attempts for one file, newest first.
func (s *Store) ForFile(ctx context.Context, file string) ([]Attempt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, file, outcome, duration_ms, stderr, recorded_at
         FROM attempts WHERE file = ? ORDER BY id DESC`,
		file,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// Recent returns the most recent attempts across all files.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, file, outcome, duration_ms, stderr, recorded_at
         FROM attempts ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var attempt Attempt
		var durationMS int64
		var outcome, recordedAt string
		if err := rows.Scan(&attempt.ID, &attempt.RunID, &attempt.File, &outcome, &durationMS, &attempt.Stderr, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempt.Outcome = Outcome(outcome)
		attempt.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			attempt.RecordedAt = ts
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}
