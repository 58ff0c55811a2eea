// Package repo provides JobRegistry implementations.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"artengine/internal/domain"
)

// Schema is the table the Postgres registry expects.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id               TEXT PRIMARY KEY,
    request_json     JSONB NOT NULL,
    input_path       TEXT NOT NULL,
    status           TEXT NOT NULL,
    progress         INT NOT NULL DEFAULT 0,
    produced         INT NOT NULL DEFAULT 0,
    message          TEXT NOT NULL DEFAULT '',
    detail           TEXT NOT NULL DEFAULT '',
    output_location  TEXT NOT NULL DEFAULT '',
    error_kind       TEXT NOT NULL DEFAULT '',
    cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_touched     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS jobs_status_created_idx ON jobs (status, created_at);
`

// JobRegistryPG implements domain.JobRegistry on PostgreSQL.
type JobRegistryPG struct {
	pool *pgxpool.Pool
}

// NewJobRegistry creates a new job registry backed by PostgreSQL.
func NewJobRegistry(pool *pgxpool.Pool) *JobRegistryPG {
	return &JobRegistryPG{pool: pool}
}

// EnsureSchema creates the jobs table when it does not exist yet.
func (r *JobRegistryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

const jobColumns = `id, request_json, input_path, status, progress, produced, message, detail, output_location, error_kind, cancel_requested, created_at, last_touched`

// Create inserts a new job record.
func (r *JobRegistryPG) Create(ctx context.Context, job *domain.Job) error {
	reqJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	query := `
INSERT INTO jobs (id, request_json, input_path, status, progress, produced, message, detail, output_location, error_kind, cancel_requested, created_at, last_touched)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		reqJSON,
		job.InputPath,
		job.Status,
		job.ProgressPercent,
		job.ProducedCount,
		job.Message,
		job.Detail,
		job.OutputLocation,
		string(job.ErrorKind),
		job.CancelRequested,
		job.CreatedAt,
		job.LastTouched,
	)
	return err
}

// Get fetches a job by its identifier.
func (r *JobRegistryPG) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	return scanJob(row)
}

// ClaimPending atomically moves the oldest pending job to running.
func (r *JobRegistryPG) ClaimPending(ctx context.Context) (*domain.Job, error) {
	query := `
UPDATE jobs
SET status = $1, last_touched = NOW()
WHERE id = (
    SELECT id FROM jobs
    WHERE status = $2
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns + `;`
	row := r.pool.QueryRow(ctx, query, domain.JobStatusRunning, domain.JobStatusPending)
	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoPendingJob
	}
	return job, err
}

// UpdateStatus updates lifecycle state and host-visible messaging.
func (r *JobRegistryPG) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, message, detail string, errKind domain.Kind) error {
	query := `
UPDATE jobs
SET status = $2, message = $3, detail = $4, error_kind = $5, last_touched = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, status, message, detail, string(errKind))
	return err
}

// UpdateProgress records a progress sample. Percent and produced only move
// forward; stale samples from racing writers are ignored.
func (r *JobRegistryPG) UpdateProgress(ctx context.Context, id string, percent, produced int, message, detail string) error {
	query := `
UPDATE jobs
SET progress = GREATEST(progress, $2),
    produced = GREATEST(produced, $3),
    message = $4,
    detail = $5,
    last_touched = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, id, percent, produced, message, detail)
	return err
}

// SetOutput records where the packaged archive landed.
func (r *JobRegistryPG) SetOutput(ctx context.Context, id, location string) error {
	_, err := r.pool.Exec(ctx, `UPDATE jobs SET output_location = $2, last_touched = NOW() WHERE id = $1;`, id, location)
	return err
}

// RequestCancel flags a non-terminal job for cooperative cancellation.
func (r *JobRegistryPG) RequestCancel(ctx context.Context, id string) error {
	query := `
UPDATE jobs
SET cancel_requested = TRUE, last_touched = NOW()
WHERE id = $1 AND status IN ($2, $3);
`
	tag, err := r.pool.Exec(ctx, query, id, domain.JobStatusPending, domain.JobStatusRunning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrJobTerminal
	}
	return nil
}

// CancelRequested reports the cooperative cancel flag.
func (r *JobRegistryPG) CancelRequested(ctx context.Context, id string) (bool, error) {
	var requested bool
	err := r.pool.QueryRow(ctx, `SELECT cancel_requested FROM jobs WHERE id = $1;`, id).Scan(&requested)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrNotFound
	}
	return requested, err
}

// Stale lists jobs whose last_touched precedes the cutoff.
func (r *JobRegistryPG) Stale(ctx context.Context, before time.Time) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE last_touched < $1;`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Delete removes a job record.
func (r *JobRegistryPG) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1;`, id)
	return err
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		reqJSON []byte
		errKind string
	)
	err := row.Scan(
		&job.ID,
		&reqJSON,
		&job.InputPath,
		&job.Status,
		&job.ProgressPercent,
		&job.ProducedCount,
		&job.Message,
		&job.Detail,
		&job.OutputLocation,
		&errKind,
		&job.CancelRequested,
		&job.CreatedAt,
		&job.LastTouched,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(reqJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	job.ErrorKind = domain.Kind(errKind)
	return &job, nil
}

var _ domain.JobRegistry = (*JobRegistryPG)(nil)
