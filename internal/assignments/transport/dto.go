// Package transport defines request/response DTOs for the assignments module.
package transport

import "artisan_dispatch_backend/internal/assignments/preparer"

// OfferRequest binds a pending lead to an artisan.
type OfferRequest struct {
	LeadID     string `json:"leadId" validate:"required,uuid"`
	ArtisanID  string `json:"artisanId" validate:"required,uuid"`
	Channel    string `json:"channel" validate:"required,oneof=whatsapp sms email"`
	CreditCost int    `json:"creditCost" validate:"required,min=1"`
}

// OfferResponse is the created assignment representation.
type OfferResponse struct {
	Success      bool   `json:"success"`
	AssignmentID string `json:"assignmentId"`
	LeadID       string `json:"leadId"`
	ArtisanID    string `json:"artisanId"`
	Channel      string `json:"channel"`
}

// AcceptRequest accepts an offered assignment.
type AcceptRequest struct {
	AssignmentID string `json:"assignmentId" validate:"required,uuid"`
	ArtisanID    string `json:"artisanId" validate:"required,uuid"`
}

// AcceptResponse reports a successful acceptance.
type AcceptResponse struct {
	Success    bool   `json:"success"`
	AcceptedAt string `json:"acceptedAt"`
}

// CancelRequest cancels an assignment within the grace window.
type CancelRequest struct {
	AssignmentID string `json:"assignmentId" validate:"required"`
	ArtisanID    string `json:"artisanId" validate:"required"`
}

// CancelResponse is the atomic store procedure's structured result.
type CancelResponse struct {
	Success         bool   `json:"success"`
	LeadID          string `json:"leadId"`
	RefundedCredits int    `json:"refundedCredits"`
}

// PrepareRequest asks for a channel payload for an assignment.
type PrepareRequest struct {
	AssignmentID string `json:"assignmentId" validate:"required"`
	Channel      string `json:"channel" validate:"required"`
}

// PrepareResponse wraps the prepared payload.
type PrepareResponse struct {
	Success bool             `json:"success"`
	Payload preparer.Payload `json:"payload"`
}

// NotificationStatusRequest is the delivery callback posted by the external
// workflow engine.
type NotificationStatusRequest struct {
	AssignmentID string `json:"assignmentId" validate:"required,uuid"`
	Channel      string `json:"channel" validate:"required"`
	Success      bool   `json:"success"`
	ExternalID   string `json:"externalId"`
	Error        string `json:"error"`
}

// NotificationStatusResponse acknowledges the callback.
type NotificationStatusResponse struct {
	Success bool `json:"success"`
}
