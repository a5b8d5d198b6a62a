// Package workflow provides the HTTP client for the external automation
// engine that performs actual outbound message delivery.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"
)

// LeadEvent is the flat payload posted to the workflow engine when a lead
// needs an outbound notification.
type LeadEvent struct {
	LeadID      string `json:"leadId"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	UrgencyType string `json:"urgencyType"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

type followUpEvent struct {
	LeadID    string `json:"leadId"`
	Timestamp string `json:"timestamp"`
}

// Client posts events to the external workflow engine. All calls are bounded
// by the configured timeout; a timeout counts as failure, never as success.
type Client struct {
	triggerURL  string
	followUpURL string
	http        *http.Client
	log         *logger.Logger
}

// NewClient creates a workflow client from configuration.
func NewClient(cfg config.WorkflowConfig, log *logger.Logger) *Client {
	return &Client{
		triggerURL:  strings.TrimSpace(cfg.GetWorkflowWebhookURL()),
		followUpURL: strings.TrimSpace(cfg.GetFollowUpWebhookURL()),
		http:        &http.Client{Timeout: cfg.GetWorkflowTimeout()},
		log:         log,
	}
}

// TriggerLeadNotification posts the lead event to the automation engine.
// An unconfigured endpoint is a success no-op so lead creation is never
// blocked in environments without the engine.
func (c *Client) TriggerLeadNotification(ctx context.Context, event LeadEvent) error {
	if c.triggerURL == "" {
		if c.log != nil {
			c.log.Debug("workflow webhook not configured, skipping dispatch", "lead_id", event.LeadID)
		}
		return nil
	}

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	return c.post(ctx, c.triggerURL, event)
}

// TriggerFollowUp posts a satisfaction follow-up event for the lead.
// Unlike lead notifications, an unconfigured endpoint is an error here: the
// follow-up sweep must not count unreachable calls as triggered.
func (c *Client) TriggerFollowUp(ctx context.Context, leadID string) error {
	if c.followUpURL == "" {
		return fmt.Errorf("follow-up webhook not configured")
	}

	return c.post(ctx, c.followUpURL, followUpEvent{
		LeadID:    leadID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal workflow payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("workflow request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workflow engine returned status %d", resp.StatusCode)
	}

	return nil
}
