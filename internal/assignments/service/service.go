// Package service implements the assignment state machine business logic.
package service

import (
	"context"
	"time"

	"artisan_dispatch_backend/internal/assignments/preparer"
	"artisan_dispatch_backend/internal/assignments/repository"
	"artisan_dispatch_backend/internal/events"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/apperr"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the narrow repository interface the service depends on.
type Store interface {
	Offer(ctx context.Context, leadID, artisanID uuid.UUID, channel string, creditCost int) (repository.Assignment, error)
	Accept(ctx context.Context, assignmentID, artisanID uuid.UUID) (repository.Assignment, error)
	Cancel(ctx context.Context, assignmentID, artisanID uuid.UUID) (repository.CancelOutcome, error)
	ConfirmNotification(ctx context.Context, assignmentID uuid.UUID, externalID string) error
	FailNotification(ctx context.Context, assignmentID uuid.UUID, reason string) error
	GetOfferDetails(ctx context.Context, assignmentID uuid.UUID) (repository.OfferDetails, error)
}

// Dispatcher posts lead events to the external workflow engine.
type Dispatcher interface {
	TriggerLeadNotification(ctx context.Context, event workflow.LeadEvent) error
}

// EmailSender delivers offer emails directly over SMTP.
type EmailSender interface {
	SendOffer(ctx context.Context, toEmail, subject, htmlBody string, qrPNG []byte) error
}

// Service owns the lifecycle of lead-to-artisan assignments.
type Service struct {
	store   Store
	prep    *preparer.Preparer
	engine  Dispatcher
	email   EmailSender // nil when SMTP is not configured
	bus     events.Bus
	baseURL string
	log     *logger.Logger
}

// New creates a new assignments service.
func New(store Store, prep *preparer.Preparer, engine Dispatcher, email EmailSender, bus events.Bus, cfg config.AppConfig, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		prep:    prep,
		engine:  engine,
		email:   email,
		bus:     bus,
		baseURL: cfg.GetAppBaseURL(),
		log:     log,
	}
}

// Offer assigns a pending lead to an artisan and publishes the offered event;
// the scheduler picks the event up and dispatches the notification.
func (s *Service) Offer(ctx context.Context, leadID, artisanID uuid.UUID, channel string, creditCost int) (repository.Assignment, error) {
	assignment, err := s.store.Offer(ctx, leadID, artisanID, channel, creditCost)
	if err != nil {
		return repository.Assignment{}, err
	}

	s.log.Info("lead offered",
		"assignment_id", assignment.ID.String(),
		"lead_id", leadID.String(),
		"artisan_id", artisanID.String(),
		"channel", channel,
	)

	s.bus.Publish(ctx, events.AssignmentOffered{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: assignment.ID,
		LeadID:       leadID,
		ArtisanID:    artisanID,
		Channel:      channel,
	})

	return assignment, nil
}

// Accept stamps the artisan's acceptance on a live assignment.
func (s *Service) Accept(ctx context.Context, assignmentID, artisanID uuid.UUID) (time.Time, error) {
	assignment, err := s.store.Accept(ctx, assignmentID, artisanID)
	if err != nil {
		return time.Time{}, err
	}
	if assignment.AcceptedAt == nil {
		return time.Time{}, apperr.Internal("acceptance was not stamped")
	}
	return *assignment.AcceptedAt, nil
}

// Cancel runs the atomic cancel-with-refund procedure and maps the structured
// outcome to the error taxonomy. The store decides; this layer only
// classifies the result.
func (s *Service) Cancel(ctx context.Context, assignmentID, artisanID uuid.UUID) (repository.CancelOutcome, error) {
	outcome, err := s.store.Cancel(ctx, assignmentID, artisanID)
	if err != nil {
		return repository.CancelOutcome{}, err
	}

	if !outcome.Cancelled {
		details := map[string]string{"reason": outcome.Reason}
		switch outcome.Reason {
		case repository.ReasonNotFound:
			return outcome, apperr.NotFound("Mission introuvable").WithDetails(details)
		case repository.ReasonNotOwner:
			return outcome, apperr.Conflict("Cette mission ne vous appartient pas").WithDetails(details)
		case repository.ReasonGraceExpired:
			return outcome, apperr.Conflict("Le délai d'annulation est dépassé").WithDetails(details)
		case repository.ReasonAlreadyCancelled:
			return outcome, apperr.Conflict("Cette mission est déjà annulée").WithDetails(details)
		default:
			return outcome, apperr.Internal("unexpected cancel outcome").WithDetails(details)
		}
	}

	s.log.Info("assignment cancelled",
		"assignment_id", assignmentID.String(),
		"artisan_id", artisanID.String(),
		"refunded_credits", outcome.RefundedCredits,
	)

	return outcome, nil
}

// Prepare builds the channel payload for an assignment.
func (s *Service) Prepare(ctx context.Context, channel string, assignmentID uuid.UUID) (preparer.Payload, error) {
	return s.prep.Prepare(ctx, channel, assignmentID, s.baseURL)
}

// RecordNotificationStatus applies the workflow engine's delivery callback.
// On success the offer deadline and external id are stamped; on failure the
// lead's notification failure is recorded for the retry sweep.
func (s *Service) RecordNotificationStatus(ctx context.Context, assignmentID uuid.UUID, success bool, externalID, errMsg string) error {
	if success {
		return s.store.ConfirmNotification(ctx, assignmentID, externalID)
	}
	if errMsg == "" {
		errMsg = "delivery failed"
	}
	return s.store.FailNotification(ctx, assignmentID, errMsg)
}

// DispatchOffer delivers the offer notification for an assignment: email goes
// out directly over SMTP, the other channels are handed to the workflow
// engine. Failures are recorded on the lead so the retry sweep picks them up.
func (s *Service) DispatchOffer(ctx context.Context, assignmentID uuid.UUID) error {
	details, err := s.store.GetOfferDetails(ctx, assignmentID)
	if err != nil {
		return err
	}
	channel := details.Assignment.NotificationChannel

	payload, err := s.prep.Prepare(ctx, channel, assignmentID, s.baseURL)
	if err != nil {
		_ = s.store.FailNotification(ctx, assignmentID, err.Error())
		return err
	}

	switch channel {
	case repository.ChannelEmail:
		if err := s.email.SendOffer(ctx, payload.Recipient, payload.Subject, payload.Message, payload.QRCode); err != nil {
			s.log.DispatchError(details.Assignment.LeadID.String(), channel, 1, err)
			return s.store.FailNotification(ctx, assignmentID, err.Error())
		}
		// SMTP has no asynchronous delivery callback; confirm immediately.
		return s.store.ConfirmNotification(ctx, assignmentID, "smtp")
	default:
		event := workflow.LeadEvent{
			LeadID:      details.Assignment.LeadID.String(),
			Phone:       payload.Recipient,
			Description: payload.Message,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}
		if details.Lead.Address != nil {
			event.Address = *details.Lead.Address
		}
		if details.Lead.Urgent {
			event.UrgencyType = "urgent"
		} else {
			event.UrgencyType = "standard"
		}
		if err := s.engine.TriggerLeadNotification(ctx, event); err != nil {
			s.log.DispatchError(details.Assignment.LeadID.String(), channel, 1, err)
			return s.store.FailNotification(ctx, assignmentID, err.Error())
		}
		// Delivery confirmation (and the offer deadline) arrives via the
		// notification-status webhook.
		return nil
	}
}
