package cron

import (
	"context"
	"time"

	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// FollowUpStore is the slice of the lead repository the follow-up sweep uses.
type FollowUpStore interface {
	FindFollowUpCandidates(ctx context.Context, from, to time.Time, limit int) ([]repository.Lead, error)
	HasFeedback(ctx context.Context, leadID uuid.UUID) (bool, error)
	RecordFeedback(ctx context.Context, leadID uuid.UUID) error
}

// FollowUpTrigger posts satisfaction follow-up requests to the workflow
// engine.
type FollowUpTrigger interface {
	TriggerFollowUp(ctx context.Context, leadID string) error
}

// FollowUpJob asks clients whose lead completed three days ago how it went.
// The eligibility window is the full calendar day exactly three days before
// the run, in the scheduler's local time; a lead completed 73 hours ago on
// the wrong side of midnight falls outside it and is picked up by the next
// day's run instead.
type FollowUpJob struct {
	store FollowUpStore
	trig  FollowUpTrigger
	now   func() time.Time
	log   *logger.Logger
}

// NewFollowUpJob creates the follow-up sweep.
func NewFollowUpJob(store FollowUpStore, trig FollowUpTrigger, log *logger.Logger) *FollowUpJob {
	return &FollowUpJob{store: store, trig: trig, now: time.Now, log: log}
}

// Window returns the calendar-day bounds for a run at t.
func (j *FollowUpJob) Window(t time.Time) (from, to time.Time) {
	day := t.AddDate(0, 0, -3)
	from = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}

// Run triggers follow-ups for one batch of eligible leads. Leads that
// already have a feedback record are skipped, which keeps the job
// idempotent across repeated runs on the same day.
func (j *FollowUpJob) Run(ctx context.Context) (map[string]any, error) {
	from, to := j.Window(j.now())

	leads, err := j.store.FindFollowUpCandidates(ctx, from, to, FollowUpBatchSize)
	if err != nil {
		return nil, err
	}

	var triggered int
	for _, lead := range leads {
		done, err := j.store.HasFeedback(ctx, lead.ID)
		if err != nil {
			j.log.DatabaseError("check lead feedback", err)
			continue
		}
		if done {
			continue
		}

		if err := j.trig.TriggerFollowUp(ctx, lead.ID.String()); err != nil {
			j.log.DispatchError(lead.ID.String(), "follow-up", 1, err)
			continue
		}

		if err := j.store.RecordFeedback(ctx, lead.ID); err != nil {
			j.log.DatabaseError("record lead feedback", err)
			continue
		}
		triggered++
	}

	return map[string]any{
		"eligible":  len(leads),
		"triggered": triggered,
	}, nil
}
