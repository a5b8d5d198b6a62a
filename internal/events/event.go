// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"artisan_dispatch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created. The scheduler module
// subscribes to it and enqueues the workflow-engine dispatch task, so lead
// creation never blocks on the automation engine.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	ProblemType string    `json:"problemType"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Urgent      bool      `json:"urgent"`
	Description string    `json:"description"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// =============================================================================
// Assignment Domain Events
// =============================================================================

// AssignmentOffered is published when a lead is offered to an artisan.
// The scheduler module enqueues the offer-notification dispatch for it.
type AssignmentOffered struct {
	BaseEvent
	AssignmentID uuid.UUID `json:"assignmentId"`
	LeadID       uuid.UUID `json:"leadId"`
	ArtisanID    uuid.UUID `json:"artisanId"`
	Channel      string    `json:"channel"`
}

func (e AssignmentOffered) EventName() string { return "assignments.offered" }
