package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"artisan_dispatch_backend/internal/assignments/service"
	"artisan_dispatch_backend/internal/assignments/transport"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/httpkit"
	"artisan_dispatch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Client-facing messages are in the deployment's operating language.
const (
	msgInvalidRequest      = "Requête invalide"
	msgValidationFailed    = "Les informations fournies sont incomplètes ou invalides"
	msgInvalidAssignmentID = "Identifiant de mission invalide"
	msgInvalidArtisanID    = "Identifiant d'artisan invalide"
)

// Handler handles HTTP requests for assignments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new assignments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers assignment routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/offer", h.Offer)
	rg.POST("/accept", h.Accept)
	rg.POST("/cancel", h.Cancel)
	rg.POST("/notifications/prepare", h.Prepare)
}

// RegisterWebhookRoutes registers the notification-status callback, guarded
// by the callback shared secret.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup, cfg config.CallbackConfig) {
	rg.POST("/notification-status", CallbackAuth(cfg), h.NotificationStatus)
}

// CallbackAuth rejects callbacks without the configured shared secret.
// An unset secret rejects every request rather than letting them all through.
func CallbackAuth(cfg config.CallbackConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := cfg.GetCallbackSecret()
		provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *Handler) Offer(c *gin.Context) {
	var req transport.OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leadID, _ := uuid.Parse(req.LeadID)
	artisanID, _ := uuid.Parse(req.ArtisanID)

	assignment, err := h.svc.Offer(c.Request.Context(), leadID, artisanID, req.Channel, req.CreditCost)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.OfferResponse{
		Success:      true,
		AssignmentID: assignment.ID.String(),
		LeadID:       assignment.LeadID.String(),
		ArtisanID:    assignment.ArtisanID.String(),
		Channel:      assignment.NotificationChannel,
	})
}

func (h *Handler) Accept(c *gin.Context) {
	var req transport.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	assignmentID, _ := uuid.Parse(req.AssignmentID)
	artisanID, _ := uuid.Parse(req.ArtisanID)

	acceptedAt, err := h.svc.Accept(c.Request.Context(), assignmentID, artisanID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.AcceptResponse{Success: true, AcceptedAt: acceptedAt.UTC().Format(time.RFC3339)})
}

// Cancel validates both identifiers locally before calling the store; the
// store call itself is all-or-nothing.
func (h *Handler) Cancel(c *gin.Context) {
	var req transport.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidAssignmentID, nil)
		return
	}
	artisanID, err := uuid.Parse(req.ArtisanID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidArtisanID, nil)
		return
	}

	outcome, err := h.svc.Cancel(c.Request.Context(), assignmentID, artisanID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.CancelResponse{
		Success:         true,
		LeadID:          outcome.LeadID.String(),
		RefundedCredits: outcome.RefundedCredits,
	})
}

func (h *Handler) Prepare(c *gin.Context) {
	var req transport.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidAssignmentID, nil)
		return
	}

	payload, err := h.svc.Prepare(c.Request.Context(), req.Channel, assignmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PrepareResponse{Success: true, Payload: payload})
}

func (h *Handler) NotificationStatus(c *gin.Context) {
	var req transport.NotificationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidAssignmentID, nil)
		return
	}

	err = h.svc.RecordNotificationStatus(c.Request.Context(), assignmentID, req.Success, req.ExternalID, req.Error)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NotificationStatusResponse{Success: true})
}
