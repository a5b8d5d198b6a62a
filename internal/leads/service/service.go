// Package service implements lead intake business logic.
package service

import (
	"context"

	"artisan_dispatch_backend/internal/events"
	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/leads/scoring"
	"artisan_dispatch_backend/internal/leads/transport"
	"artisan_dispatch_backend/platform/logger"
	"artisan_dispatch_backend/platform/phone"

	"github.com/google/uuid"
)

// Service handles lead creation and retrieval. Scoring happens at intake;
// delivery of the creation event to the workflow engine is handed to the
// background scheduler via the event bus, never awaited here.
type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new leads service.
func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Create scores and persists a new lead, then publishes LeadCreated.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	score := scoring.Score(scoring.Input{
		ProblemType: req.ProblemType,
		Description: req.Description,
		HasPhoto:    req.PhotoKey != "",
		Urgent:      req.Urgent,
		Geocoded:    req.Geocoded,
	})

	lead := repository.Lead{
		ID:                 uuid.New(),
		ProblemType:        req.ProblemType,
		Description:        req.Description,
		ClientPhone:        phone.NormalizeE164(req.Phone),
		Urgent:             req.Urgent,
		Geocoded:           req.Geocoded,
		QualityScore:       score.Score,
		QualityTier:        string(score.Tier),
		Status:             repository.StatusPending,
		NotificationStatus: repository.NotificationPending,
	}
	if req.PhotoKey != "" {
		lead.PhotoKey = &req.PhotoKey
	}
	if req.Email != "" {
		lead.ClientEmail = &req.Email
	}
	if req.City != "" {
		lead.City = &req.City
	}
	if req.Address != "" {
		lead.Address = &req.Address
	}

	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.Info("lead created",
		"lead_id", created.ID.String(),
		"problem_type", created.ProblemType,
		"score", created.QualityScore,
		"tier", created.QualityTier,
	)

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      created.ID,
		ProblemType: created.ProblemType,
		Phone:       created.ClientPhone,
		Address:     optional(created.Address),
		Urgent:      created.Urgent,
		Description: created.Description,
	})

	resp := toResponse(created)
	resp.ScoreFactors = score.Factors
	return resp, nil
}

// GetByID loads a single lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                   lead.ID.String(),
		ProblemType:          lead.ProblemType,
		Description:          lead.Description,
		Phone:                lead.ClientPhone,
		Email:                optional(lead.ClientEmail),
		City:                 optional(lead.City),
		QualityScore:         lead.QualityScore,
		QualityTier:          lead.QualityTier,
		Status:               lead.Status,
		NotificationStatus:   lead.NotificationStatus,
		NotificationAttempts: lead.NotificationAttempts,
		CreatedAt:            lead.CreatedAt,
	}
}

func optional(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
