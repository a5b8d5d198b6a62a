package cron

import (
	"context"
	"time"

	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// Jobs process batches no larger than these per invocation; the schedule
// provides the drain, not the batch.
const (
	RetryBatchSize    = 10
	FollowUpBatchSize = 20
	StaleBatchSize    = 100
	RescoreBatchSize  = 50
)

const leaseTTL = 2 * time.Minute

// RetryStore is the slice of the lead repository the retry sweep uses.
type RetryStore interface {
	ClaimFailedNotifications(ctx context.Context, limit int) ([]repository.Lead, error)
	ReleaseNotificationClaim(ctx context.Context, id uuid.UUID) error
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Trigger posts lead notifications to the workflow engine.
type Trigger interface {
	TriggerLeadNotification(ctx context.Context, event workflow.LeadEvent) error
}

// RetryCoordinator re-dispatches leads whose notification delivery failed.
// Claiming flips rows from failed to retrying inside the store, so two
// overlapping sweeps can never pick up the same lead.
type RetryCoordinator struct {
	store RetryStore
	trig  Trigger
	lease Lease
	log   *logger.Logger
}

// NewRetryCoordinator creates the retry sweep. lease may be nil.
func NewRetryCoordinator(store RetryStore, trig Trigger, lease Lease, log *logger.Logger) *RetryCoordinator {
	return &RetryCoordinator{store: store, trig: trig, lease: lease, log: log}
}

// Run claims one batch of failed leads and re-attempts delivery for each.
// Per-lead failures are recorded and counted, never aborting the batch.
func (c *RetryCoordinator) Run(ctx context.Context) (map[string]any, error) {
	leads, err := c.store.ClaimFailedNotifications(ctx, RetryBatchSize)
	if err != nil {
		return nil, err
	}

	var successCount, failedCount, skipped int
	for _, lead := range leads {
		switch c.retryOne(ctx, lead) {
		case retrySent:
			successCount++
		case retryFailed:
			failedCount++
		case retrySkipped:
			skipped++
		}
	}

	result := map[string]any{
		"retried":      successCount + failedCount,
		"successCount": successCount,
		"failedCount":  failedCount,
	}
	if skipped > 0 {
		result["skipped"] = skipped
	}
	return result, nil
}

type retryOutcome int

const (
	retrySent retryOutcome = iota
	retryFailed
	retrySkipped
)

func (c *RetryCoordinator) retryOne(ctx context.Context, lead repository.Lead) retryOutcome {
	if c.lease != nil {
		acquired, err := c.lease.Acquire(ctx, lead.ID, leaseTTL)
		if err != nil {
			c.log.Warn("dispatch lease unavailable, proceeding on store claim", "lead_id", lead.ID, "error", err)
		} else if !acquired {
			// Another worker holds this lead. Put the claim back so the
			// lead stays eligible for the next sweep; no attempt is spent.
			if rerr := c.store.ReleaseNotificationClaim(ctx, lead.ID); rerr != nil {
				c.log.DatabaseError("release notification claim", rerr)
			}
			return retrySkipped
		} else {
			defer func() {
				if err := c.lease.Release(ctx, lead.ID); err != nil {
					c.log.Warn("failed to release dispatch lease", "lead_id", lead.ID, "error", err)
				}
			}()
		}
	}

	event := workflow.LeadEvent{
		LeadID:      lead.ID.String(),
		Phone:       lead.ClientPhone,
		UrgencyType: urgencyType(lead.Urgent),
		Description: lead.Description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if lead.Address != nil {
		event.Address = *lead.Address
	}

	if err := c.trig.TriggerLeadNotification(ctx, event); err != nil {
		c.log.DispatchError(lead.ID.String(), "workflow", lead.NotificationAttempts+1, err)
		if merr := c.store.MarkNotificationFailed(ctx, lead.ID, err.Error()); merr != nil {
			c.log.DatabaseError("mark notification failed", merr)
		}
		return retryFailed
	}

	if err := c.store.MarkNotificationSent(ctx, lead.ID); err != nil {
		c.log.DatabaseError("mark notification sent", err)
		return retryFailed
	}
	return retrySent
}

func urgencyType(urgent bool) string {
	if urgent {
		return "urgent"
	}
	return "standard"
}
