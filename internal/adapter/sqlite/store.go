// Package sqlite persists calendar jobs in a single-file SQLite database so
// job history survives a restart of the service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id               TEXT PRIMARY KEY,
	status           TEXT NOT NULL,
	progress_pct     INTEGER NOT NULL DEFAULT 0,
	progress_message TEXT NOT NULL DEFAULT '',
	logs             TEXT NOT NULL DEFAULT '[]',
	outputs          TEXT NOT NULL DEFAULT '{}',
	error            TEXT,
	computed_days    TEXT NOT NULL DEFAULT '[]',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

const selectColumns = `id, status, progress_pct, progress_message, logs, outputs, error, computed_days, created_at, updated_at`

// Store is a SQLite-backed job store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("jobs database path is required")
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := "file:" + clean + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; job updates are small and frequent.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts or replaces the job row.
func (s *Store) Save(ctx context.Context, job domain.Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	logs, err := encodeJSON(job.Logs, "[]")
	if err != nil {
		return fmt.Errorf("encode logs: %w", err)
	}
	outputs, err := json.Marshal(job.Outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	days, err := encodeJSON(job.ComputedDays, "[]")
	if err != nil {
		return fmt.Errorf("encode computed days: %w", err)
	}
	var jobErr sql.NullString
	if job.Error != nil {
		jobErr = sql.NullString{String: *job.Error, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (`+selectColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	progress_pct = excluded.progress_pct,
	progress_message = excluded.progress_message,
	logs = excluded.logs,
	outputs = excluded.outputs,
	error = excluded.error,
	computed_days = excluded.computed_days,
	updated_at = excluded.updated_at
`,
		job.ID,
		job.Status,
		job.ProgressPct,
		job.ProgressMessage,
		logs,
		string(outputs),
		jobErr,
		days,
		toMillis(job.CreatedAt),
		toMillis(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

// Load returns one job, or domain.ErrJobNotFound.
func (s *Store) Load(ctx context.Context, id string) (domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

// LoadAll returns every job ordered by creation time.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.Job, error) {
	var (
		job                  domain.Job
		logs, outputs, days  string
		jobErr               sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.ProgressPct,
		&job.ProgressMessage,
		&logs,
		&outputs,
		&jobErr,
		&days,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Job{}, err
	}
	if err := json.Unmarshal([]byte(logs), &job.Logs); err != nil {
		return domain.Job{}, fmt.Errorf("decode logs: %w", err)
	}
	if err := json.Unmarshal([]byte(outputs), &job.Outputs); err != nil {
		return domain.Job{}, fmt.Errorf("decode outputs: %w", err)
	}
	if err := json.Unmarshal([]byte(days), &job.ComputedDays); err != nil {
		return domain.Job{}, fmt.Errorf("decode computed days: %w", err)
	}
	if job.Logs == nil {
		job.Logs = []string{}
	}
	if job.ComputedDays == nil {
		job.ComputedDays = []string{}
	}
	if jobErr.Valid {
		msg := jobErr.String
		job.Error = &msg
	}
	job.CreatedAt = fromMillis(createdAt)
	job.UpdatedAt = fromMillis(updatedAt)
	return job, nil
}

func encodeJSON(values []string, empty string) (string, error) {
	if len(values) == 0 {
		return empty, nil
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
