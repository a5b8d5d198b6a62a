package cron

import (
	"context"

	"artisan_dispatch_backend/platform/logger"
)

// StaleOfferStore expires offers whose acceptance window has lapsed.
type StaleOfferStore interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// StaleOfferJob releases leads stuck behind offers nobody accepted. Each
// expiry reverts the lead to pending and refunds the artisan's credits, so
// the lead can be offered again.
type StaleOfferJob struct {
	store StaleOfferStore
	log   *logger.Logger
}

// NewStaleOfferJob creates the stale-offer sweep.
func NewStaleOfferJob(store StaleOfferStore, log *logger.Logger) *StaleOfferJob {
	return &StaleOfferJob{store: store, log: log}
}

// Run expires one batch of lapsed offers.
func (j *StaleOfferJob) Run(ctx context.Context) (map[string]any, error) {
	expired, err := j.store.ExpireStale(ctx, StaleBatchSize)
	if err != nil {
		return nil, err
	}
	return map[string]any{"expired": expired}, nil
}
