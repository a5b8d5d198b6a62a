// Package repository persists the append-only audit trail of scheduled job
// executions.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run lifecycle states. A row never moves out of a terminal state.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Run is one recorded execution of a scheduled job.
type Run struct {
	ID         uuid.UUID
	JobName    string
	Status     string
	Result     *string
	Error      *string
	DurationMs *int64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Repository stores cron run records.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new cron runs repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Start inserts a running record and returns its id.
func (r *Repository) Start(ctx context.Context, jobName string, startedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cron_runs (id, job_name, status, started_at)
		VALUES ($1, $2, $3, $4)`,
		id, jobName, RunStatusRunning, startedAt,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// FinishSuccess moves a run to its success terminal state with the job's
// result summary.
func (r *Repository) FinishSuccess(ctx context.Context, id uuid.UUID, result string, durationMs int64, finishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cron_runs
		SET status = $2, result = $3, duration_ms = $4, finished_at = $5
		WHERE id = $1 AND status = $6`,
		id, RunStatusSuccess, result, durationMs, finishedAt, RunStatusRunning,
	)
	return err
}

// FinishError moves a run to its error terminal state.
func (r *Repository) FinishError(ctx context.Context, id uuid.UUID, errMsg string, durationMs int64, finishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cron_runs
		SET status = $2, error = $3, duration_ms = $4, finished_at = $5
		WHERE id = $1 AND status = $6`,
		id, RunStatusError, errMsg, durationMs, finishedAt, RunStatusRunning,
	)
	return err
}

// ListRecent returns the latest runs for a job, newest first.
func (r *Repository) ListRecent(ctx context.Context, jobName string, limit int) ([]Run, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_name, status, result, error, duration_ms, started_at, finished_at
		FROM cron_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`,
		jobName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.JobName, &run.Status, &run.Result, &run.Error,
			&run.DurationMs, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
