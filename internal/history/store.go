// Package history records finished conversion jobs in a local SQLite
// database.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"imgbatch/internal/model"
	"imgbatch/internal/runstore"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes; older databases must
// be removed.
const schemaVersion = 1

// timeLayout is fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	OutcomeFinished = "finished"
	OutcomeAborted  = "aborted"
	OutcomeRejected = "rejected"
)

// Record is one finished (or rejected) job.
type Record struct {
	JobID       string          `json:"job_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Config      model.JobConfig `json:"config"`
	Outcome     string          `json:"outcome"`
	Message     string          `json:"message,omitempty"`
	Stats       model.Stats     `json:"stats"`
	ErrorEvents int             `json:"error_events"`
}

type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if err := runstore.MkdirParent(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if exists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d (delete the file to start over)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, r Record) error {
	if strings.TrimSpace(r.JobID) == "" {
		return fmt.Errorf("history record requires a job id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
            job_id, started_at, finished_at, source_dir, dest_dir, target_format,
            delete_originals, outcome, message, candidates, converted, skipped_exists,
            skipped_unrecognized, failed, deleted, delete_failed, error_events
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Config.SourceDir,
		r.Config.DestDir,
		string(r.Config.TargetFormat),
		boolToInt(r.Config.DeleteOriginals),
		r.Outcome,
		nullableString(r.Message),
		r.Stats.Candidates,
		r.Stats.Converted,
		r.Stats.SkippedExists,
		r.Stats.SkippedUnrecognized,
		r.Stats.Failed,
		r.Stats.Deleted,
		r.Stats.DeleteFailed,
		r.ErrorEvents,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, started_at, finished_at, source_dir, dest_dir, target_format,
                delete_originals, outcome, message, candidates, converted, skipped_exists,
                skipped_unrecognized, failed, deleted, delete_failed, error_events
         FROM jobs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                 Record
			started, finished string
			format            string
			deleteOriginals   int
			message           sql.NullString
		)
		if err := rows.Scan(
			&r.JobID, &started, &finished, &r.Config.SourceDir, &r.Config.DestDir, &format,
			&deleteOriginals, &r.Outcome, &message, &r.Stats.Candidates, &r.Stats.Converted,
			&r.Stats.SkippedExists, &r.Stats.SkippedUnrecognized, &r.Stats.Failed,
			&r.Stats.Deleted, &r.Stats.DeleteFailed, &r.ErrorEvents,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		r.Config.TargetFormat = model.Format(format)
		r.Config.DeleteOriginals = deleteOriginals != 0
		r.Message = message.String
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
