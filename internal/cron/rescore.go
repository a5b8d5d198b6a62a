package cron

import (
	"context"

	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/leads/scoring"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// RescoreStore is the slice of the lead repository the rescore sweep uses.
type RescoreStore interface {
	FindPendingForRescore(ctx context.Context, limit int) ([]repository.Lead, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int, tier string) error
}

// RescoreJob re-evaluates pending leads against the current scoring model,
// so leads created before a model change catch up without manual action.
type RescoreJob struct {
	store RescoreStore
	log   *logger.Logger
}

// NewRescoreJob creates the rescore sweep.
func NewRescoreJob(store RescoreStore, log *logger.Logger) *RescoreJob {
	return &RescoreJob{store: store, log: log}
}

// Run rescores one batch of pending leads, writing only changed scores.
func (j *RescoreJob) Run(ctx context.Context) (map[string]any, error) {
	leads, err := j.store.FindPendingForRescore(ctx, RescoreBatchSize)
	if err != nil {
		return nil, err
	}

	var updated int
	for _, lead := range leads {
		result := scoring.Score(scoring.Input{
			ProblemType: lead.ProblemType,
			Description: lead.Description,
			HasPhoto:    lead.PhotoKey != nil,
			Urgent:      lead.Urgent,
			Geocoded:    lead.Geocoded,
		})
		if result.Score == lead.QualityScore && string(result.Tier) == lead.QualityTier {
			continue
		}
		if err := j.store.UpdateScore(ctx, lead.ID, result.Score, string(result.Tier)); err != nil {
			j.log.DatabaseError("update lead score", err)
			continue
		}
		updated++
	}

	return map[string]any{
		"scanned": len(leads),
		"updated": updated,
	}, nil
}
