// Package transport defines request/response DTOs for the leads module.
package transport

import "time"

// CreateLeadRequest is the public lead submission payload. Urgency and
// geocoding success are pre-validated flags supplied by the intake glue
// (form validation and geocoding run outside this core).
type CreateLeadRequest struct {
	ProblemType string `json:"problemType" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=5000"`
	Phone       string `json:"phone" validate:"required,max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	City        string `json:"city" validate:"omitempty,max=100"`
	Address     string `json:"address" validate:"omitempty,max=300"`
	PhotoKey    string `json:"photoKey" validate:"omitempty,max=500"`
	Urgent      bool   `json:"urgent"`
	Geocoded    bool   `json:"geocoded"`
}

// LeadResponse is the lead representation returned to callers.
type LeadResponse struct {
	ID                   string         `json:"id"`
	ProblemType          string         `json:"problemType"`
	Description          string         `json:"description"`
	Phone                string         `json:"phone"`
	Email                string         `json:"email,omitempty"`
	City                 string         `json:"city,omitempty"`
	QualityScore         int            `json:"qualityScore"`
	QualityTier          string         `json:"qualityTier"`
	ScoreFactors         map[string]int `json:"scoreFactors,omitempty"`
	Status               string         `json:"status"`
	NotificationStatus   string         `json:"notificationStatus"`
	NotificationAttempts int            `json:"notificationAttempts"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// CreateLeadResponse wraps the success envelope for lead submission.
type CreateLeadResponse struct {
	Success bool         `json:"success"`
	Lead    LeadResponse `json:"lead"`
}
