package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

type recordedFinish struct {
	id         uuid.UUID
	result     string
	errMsg     string
	durationMs int64
}

type fakeRecorder struct {
	startErr  error
	finishErr error

	started   []string
	successes []recordedFinish
	errored   []recordedFinish
}

func (f *fakeRecorder) Start(_ context.Context, jobName string, _ time.Time) (uuid.UUID, error) {
	if f.startErr != nil {
		return uuid.Nil, f.startErr
	}
	f.started = append(f.started, jobName)
	return uuid.New(), nil
}

func (f *fakeRecorder) FinishSuccess(_ context.Context, id uuid.UUID, result string, durationMs int64, _ time.Time) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.successes = append(f.successes, recordedFinish{id: id, result: result, durationMs: durationMs})
	return nil
}

func (f *fakeRecorder) FinishError(_ context.Context, id uuid.UUID, errMsg string, durationMs int64, _ time.Time) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.errored = append(f.errored, recordedFinish{id: id, errMsg: errMsg, durationMs: durationMs})
	return nil
}

func testLogger() *logger.Logger {
	return logger.New("development")
}

func TestMonitorRecordsSuccess(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewMonitor(rec, testLogger())

	result, err := m.Run(context.Background(), "retry-notifications", func(context.Context) (map[string]any, error) {
		return map[string]any{"retried": 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["retried"] != 3 {
		t.Fatalf("expected job result to pass through, got %v", result)
	}

	if len(rec.started) != 1 || rec.started[0] != "retry-notifications" {
		t.Fatalf("expected one start record, got %v", rec.started)
	}
	if len(rec.successes) != 1 {
		t.Fatalf("expected one success record, got %d", len(rec.successes))
	}
	if rec.successes[0].result != `{"retried":3}` {
		t.Fatalf("unexpected result payload: %s", rec.successes[0].result)
	}
	if rec.successes[0].durationMs < 0 {
		t.Fatalf("duration must be non-negative, got %d", rec.successes[0].durationMs)
	}
	if len(rec.errored) != 0 {
		t.Fatalf("success run must not write an error record")
	}
}

func TestMonitorRecordsFailure(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewMonitor(rec, testLogger())

	_, err := m.Run(context.Background(), "follow-ups", func(context.Context) (map[string]any, error) {
		return nil, errors.New("workflow unreachable")
	})
	if err == nil {
		t.Fatal("expected job error to propagate")
	}

	if len(rec.errored) != 1 {
		t.Fatalf("expected one error record, got %d", len(rec.errored))
	}
	if rec.errored[0].errMsg != "workflow unreachable" {
		t.Fatalf("unexpected error message: %s", rec.errored[0].errMsg)
	}
	if len(rec.successes) != 0 {
		t.Fatalf("failed run must not write a success record")
	}
}

func TestMonitorRunsJobWhenAuditUnavailable(t *testing.T) {
	rec := &fakeRecorder{startErr: errors.New("db down")}
	m := NewMonitor(rec, testLogger())

	ran := false
	result, err := m.Run(context.Background(), "rescore", func(context.Context) (map[string]any, error) {
		ran = true
		return map[string]any{"scanned": 0}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("audit failure must not block the job")
	}
	if result["scanned"] != 0 {
		t.Fatalf("unexpected result: %v", result)
	}
	if len(rec.successes) != 0 || len(rec.errored) != 0 {
		t.Fatal("no finish record expected when start failed")
	}
}

func TestMonitorEmptyResultSerializesToEmptyObject(t *testing.T) {
	rec := &fakeRecorder{}
	m := NewMonitor(rec, testLogger())

	if _, err := m.Run(context.Background(), "expire-offers", func(context.Context) (map[string]any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.successes[0].result != "{}" {
		t.Fatalf("expected empty object, got %s", rec.successes[0].result)
	}
}
