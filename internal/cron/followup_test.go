package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"artisan_dispatch_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type fakeFollowUpStore struct {
	candidates []repository.Lead
	feedback   map[uuid.UUID]bool

	from, to time.Time
	limit    int
	recorded []uuid.UUID
}

func (f *fakeFollowUpStore) FindFollowUpCandidates(_ context.Context, from, to time.Time, limit int) ([]repository.Lead, error) {
	f.from, f.to, f.limit = from, to, limit
	return f.candidates, nil
}

func (f *fakeFollowUpStore) HasFeedback(_ context.Context, leadID uuid.UUID) (bool, error) {
	return f.feedback[leadID], nil
}

func (f *fakeFollowUpStore) RecordFeedback(_ context.Context, leadID uuid.UUID) error {
	f.recorded = append(f.recorded, leadID)
	return nil
}

type fakeFollowUpTrigger struct {
	failFor   map[string]error
	triggered []string
}

func (f *fakeFollowUpTrigger) TriggerFollowUp(_ context.Context, leadID string) error {
	if err, ok := f.failFor[leadID]; ok {
		return err
	}
	f.triggered = append(f.triggered, leadID)
	return nil
}

func TestFollowUpWindowIsCalendarDayThreeDaysAgo(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	job := NewFollowUpJob(&fakeFollowUpStore{}, &fakeFollowUpTrigger{}, testLogger())
	runAt := time.Date(2026, time.March, 10, 14, 30, 0, 0, paris)

	from, to := job.Window(runAt)
	if !from.Equal(time.Date(2026, time.March, 7, 0, 0, 0, 0, paris)) {
		t.Fatalf("wrong window start: %v", from)
	}
	if !to.Equal(time.Date(2026, time.March, 8, 0, 0, 0, 0, paris)) {
		t.Fatalf("wrong window end: %v", to)
	}

	// The window is a calendar day, not a rolling 72 hours: a lead completed
	// 73 hours before a midday run still falls inside it, while one completed
	// shortly before the previous midnight does not.
	inside := runAt.Add(-73 * time.Hour)
	if inside.Before(from) || !inside.Before(to) {
		t.Fatalf("completion at %v should fall inside [%v, %v)", inside, from, to)
	}
	outside := time.Date(2026, time.March, 8, 1, 0, 0, 0, paris)
	if outside.Before(to) {
		t.Fatalf("completion at %v should fall after the window", outside)
	}
}

func TestFollowUpSkipsLeadsWithFeedback(t *testing.T) {
	fresh := repository.Lead{ID: uuid.New(), Status: repository.StatusCompleted}
	done := repository.Lead{ID: uuid.New(), Status: repository.StatusCompleted}

	store := &fakeFollowUpStore{
		candidates: []repository.Lead{fresh, done},
		feedback:   map[uuid.UUID]bool{done.ID: true},
	}
	trig := &fakeFollowUpTrigger{}

	job := NewFollowUpJob(store, trig, testLogger())
	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result["eligible"] != 2 || result["triggered"] != 1 {
		t.Fatalf("unexpected counts: %v", result)
	}
	if len(trig.triggered) != 1 || trig.triggered[0] != fresh.ID.String() {
		t.Fatalf("expected only %s triggered, got %v", fresh.ID, trig.triggered)
	}
	if len(store.recorded) != 1 || store.recorded[0] != fresh.ID {
		t.Fatalf("expected feedback recorded for %s, got %v", fresh.ID, store.recorded)
	}
}

func TestFollowUpDoesNotRecordOnTriggerFailure(t *testing.T) {
	lead := repository.Lead{ID: uuid.New(), Status: repository.StatusCompleted}
	store := &fakeFollowUpStore{candidates: []repository.Lead{lead}}
	trig := &fakeFollowUpTrigger{failFor: map[string]error{lead.ID.String(): errors.New("engine down")}}

	job := NewFollowUpJob(store, trig, testLogger())
	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result["triggered"] != 0 {
		t.Fatalf("failed trigger must not count, got %v", result)
	}
	if len(store.recorded) != 0 {
		t.Fatal("feedback must not be recorded when the trigger fails")
	}
}

func TestFollowUpRequestsBatchOfTwenty(t *testing.T) {
	store := &fakeFollowUpStore{}
	job := NewFollowUpJob(store, &fakeFollowUpTrigger{}, testLogger())

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.limit != FollowUpBatchSize {
		t.Fatalf("expected limit %d, got %d", FollowUpBatchSize, store.limit)
	}
	if !store.to.Equal(store.from.AddDate(0, 0, 1)) {
		t.Fatalf("expected a one-day window, got [%v, %v)", store.from, store.to)
	}
}
