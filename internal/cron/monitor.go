package cron

import (
	"context"
	"encoding/json"
	"time"

	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// RunRecorder is the audit trail the monitor writes to. The production
// implementation is the cron runs repository.
type RunRecorder interface {
	Start(ctx context.Context, jobName string, startedAt time.Time) (uuid.UUID, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, result string, durationMs int64, finishedAt time.Time) error
	FinishError(ctx context.Context, id uuid.UUID, errMsg string, durationMs int64, finishedAt time.Time) error
}

// JobFunc is one scheduled job execution. The returned map is the job's
// result summary, serialized into the audit record.
type JobFunc func(ctx context.Context) (map[string]any, error)

// Monitor wraps scheduled jobs with audit recording. Auditing is
// best-effort: a failure to write the trail never blocks the job itself.
type Monitor struct {
	recorder RunRecorder
	log      *logger.Logger
}

// NewMonitor creates a job monitor writing to the given recorder.
func NewMonitor(recorder RunRecorder, log *logger.Logger) *Monitor {
	return &Monitor{recorder: recorder, log: log}
}

// Run executes the job under audit. The run row always reaches a terminal
// state when the job returns, with the wall-clock duration in milliseconds.
func (m *Monitor) Run(ctx context.Context, jobName string, job JobFunc) (map[string]any, error) {
	startedAt := time.Now()

	runID, auditErr := m.recorder.Start(ctx, jobName, startedAt)
	if auditErr != nil {
		m.log.Warn("cron audit unavailable, running job without trail", "job", jobName, "error", auditErr)
	}

	result, err := job(ctx)

	finishedAt := time.Now()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()

	if err != nil {
		m.log.CronJobError(jobName, err, durationMs)
		if auditErr == nil {
			if ferr := m.recorder.FinishError(ctx, runID, err.Error(), durationMs, finishedAt); ferr != nil {
				m.log.DatabaseError("finish cron run", ferr)
			}
		}
		return result, err
	}

	m.log.CronJob(jobName, "success", durationMs)
	if auditErr == nil {
		if ferr := m.recorder.FinishSuccess(ctx, runID, marshalResult(result), durationMs, finishedAt); ferr != nil {
			m.log.DatabaseError("finish cron run", ferr)
		}
	}
	return result, nil
}

func marshalResult(result map[string]any) string {
	if len(result) == 0 {
		return "{}"
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "{}"
	}
	return string(data)
}
