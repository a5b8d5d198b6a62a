package cron

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Audited job names. These are the values written to the cron_runs trail.
const (
	JobRetryNotifications = "retry-notifications"
	JobFollowUps          = "follow-ups"
	JobExpireOffers       = "expire-offers"
	JobRescore            = "rescore"
)

// Handler exposes the scheduled jobs as HTTP endpoints for an external
// scheduler (or an operator) to invoke.
type Handler struct {
	monitor  *Monitor
	retry    *RetryCoordinator
	followUp *FollowUpJob
	stale    *StaleOfferJob
	rescore  *RescoreJob
	log      *logger.Logger
}

// NewHandler creates the cron HTTP handler.
func NewHandler(monitor *Monitor, retry *RetryCoordinator, followUp *FollowUpJob, stale *StaleOfferJob, rescore *RescoreJob, log *logger.Logger) *Handler {
	return &Handler{monitor: monitor, retry: retry, followUp: followUp, stale: stale, rescore: rescore, log: log}
}

// RegisterRoutes mounts the job endpoints behind the scheduler secret.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, cfg config.CronConfig) {
	rg.Use(CronAuth(cfg))
	rg.POST("/retry-notifications", h.run(JobRetryNotifications, h.retry.Run))
	rg.POST("/follow-ups", h.run(JobFollowUps, h.followUp.Run))
	rg.POST("/expire-offers", h.run(JobExpireOffers, h.stale.Run))
	rg.POST("/rescore", h.run(JobRescore, h.rescore.Run))
}

// CronAuth rejects requests without the scheduler's bearer secret. An unset
// secret rejects every request.
func CronAuth(cfg config.CronConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := cfg.GetCronSecret()
		provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *Handler) run(jobName string, job JobFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		result, err := h.monitor.Run(ctx, jobName, job)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}

		body := gin.H{"success": true}
		for k, v := range result {
			body[k] = v
		}
		c.JSON(http.StatusOK, body)
	}
}
