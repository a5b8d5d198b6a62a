package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artisan_dispatch_backend/platform/logger"
)

type testWorkflowConfig struct {
	triggerURL  string
	followUpURL string
}

func (c testWorkflowConfig) GetWorkflowWebhookURL() string     { return c.triggerURL }
func (c testWorkflowConfig) GetFollowUpWebhookURL() string     { return c.followUpURL }
func (c testWorkflowConfig) GetWorkflowTimeout() time.Duration { return 2 * time.Second }

func TestTriggerLeadNotification_UnconfiguredURLIsNoOpSuccess(t *testing.T) {
	client := NewClient(testWorkflowConfig{}, logger.New("development"))

	err := client.TriggerLeadNotification(context.Background(), LeadEvent{LeadID: "abc"})
	if err != nil {
		t.Fatalf("expected no-op success without configured URL, got %v", err)
	}
}

func TestTriggerLeadNotification_PostsFlatPayload(t *testing.T) {
	var received map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testWorkflowConfig{triggerURL: srv.URL}, logger.New("development"))

	err := client.TriggerLeadNotification(context.Background(), LeadEvent{
		LeadID:      "lead-1",
		Phone:       "+33612345678",
		Address:     "12 rue des Artisans",
		UrgencyType: "urgent",
		Description: "fuite d'eau",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received["leadId"] != "lead-1" || received["phone"] != "+33612345678" {
		t.Fatalf("unexpected payload: %v", received)
	}
	if received["timestamp"] == "" {
		t.Fatalf("expected timestamp to be stamped, got %v", received["timestamp"])
	}
}

func TestTriggerLeadNotification_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(testWorkflowConfig{triggerURL: srv.URL}, logger.New("development"))

	if err := client.TriggerLeadNotification(context.Background(), LeadEvent{LeadID: "lead-1"}); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestTriggerFollowUp_UnconfiguredURLIsError(t *testing.T) {
	client := NewClient(testWorkflowConfig{}, logger.New("development"))

	if err := client.TriggerFollowUp(context.Background(), "lead-1"); err == nil {
		t.Fatal("expected error when follow-up webhook is not configured")
	}
}

func TestTriggerFollowUp_SuccessOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(testWorkflowConfig{followUpURL: srv.URL}, logger.New("development"))

	if err := client.TriggerFollowUp(context.Background(), "lead-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
