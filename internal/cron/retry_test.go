package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/workflow"

	"github.com/google/uuid"
)

type fakeRetryStore struct {
	claimed    []repository.Lead
	claimErr   error
	claimLimit int

	sent     []uuid.UUID
	failed   map[uuid.UUID]string
	released []uuid.UUID
}

func (f *fakeRetryStore) ClaimFailedNotifications(_ context.Context, limit int) ([]repository.Lead, error) {
	f.claimLimit = limit
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return f.claimed, nil
}

func (f *fakeRetryStore) ReleaseNotificationClaim(_ context.Context, id uuid.UUID) error {
	f.released = append(f.released, id)
	return nil
}

func (f *fakeRetryStore) MarkNotificationSent(_ context.Context, id uuid.UUID) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeRetryStore) MarkNotificationFailed(_ context.Context, id uuid.UUID, reason string) error {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[id] = reason
	return nil
}

type fakeTrigger struct {
	failFor map[uuid.UUID]error
	events  []workflow.LeadEvent
}

func (f *fakeTrigger) TriggerLeadNotification(_ context.Context, event workflow.LeadEvent) error {
	f.events = append(f.events, event)
	id, err := uuid.Parse(event.LeadID)
	if err != nil {
		return err
	}
	if ferr, ok := f.failFor[id]; ok {
		return ferr
	}
	return nil
}

func failedLead(urgent bool) repository.Lead {
	addr := "12 rue de la Paix, Paris"
	return repository.Lead{
		ID:                   uuid.New(),
		ProblemType:          "plomberie",
		Description:          "Fuite sous l'évier de la cuisine",
		ClientPhone:          "+33612345678",
		Address:              &addr,
		Urgent:               urgent,
		NotificationStatus:   repository.NotificationFailed,
		NotificationAttempts: 1,
	}
}

func TestRetryCoordinatorMarksOutcomesPerLead(t *testing.T) {
	ok := failedLead(true)
	bad := failedLead(false)

	store := &fakeRetryStore{claimed: []repository.Lead{ok, bad}}
	trig := &fakeTrigger{failFor: map[uuid.UUID]error{bad.ID: errors.New("timeout")}}

	coord := NewRetryCoordinator(store, trig, nil, testLogger())
	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result["retried"] != 2 || result["successCount"] != 1 || result["failedCount"] != 1 {
		t.Fatalf("unexpected counts: %v", result)
	}
	if len(store.sent) != 1 || store.sent[0] != ok.ID {
		t.Fatalf("expected %s marked sent, got %v", ok.ID, store.sent)
	}
	if store.failed[bad.ID] != "timeout" {
		t.Fatalf("expected failure reason recorded, got %q", store.failed[bad.ID])
	}
}

func TestRetryCoordinatorClaimsBatchOfTen(t *testing.T) {
	store := &fakeRetryStore{}
	coord := NewRetryCoordinator(store, &fakeTrigger{}, nil, testLogger())

	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.claimLimit != RetryBatchSize {
		t.Fatalf("expected claim limit %d, got %d", RetryBatchSize, store.claimLimit)
	}
}

func TestRetryCoordinatorBuildsFlatDispatchEvent(t *testing.T) {
	lead := failedLead(true)
	store := &fakeRetryStore{claimed: []repository.Lead{lead}}
	trig := &fakeTrigger{}

	coord := NewRetryCoordinator(store, trig, nil, testLogger())
	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trig.events) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(trig.events))
	}
	event := trig.events[0]
	if event.LeadID != lead.ID.String() {
		t.Fatalf("wrong lead id: %s", event.LeadID)
	}
	if event.Phone != lead.ClientPhone {
		t.Fatalf("wrong phone: %s", event.Phone)
	}
	if event.UrgencyType != "urgent" {
		t.Fatalf("expected urgent, got %s", event.UrgencyType)
	}
	if event.Address != *lead.Address {
		t.Fatalf("wrong address: %s", event.Address)
	}
	if event.Timestamp == "" {
		t.Fatal("timestamp must be set")
	}
}

// heldLease refuses every acquisition, as if another worker owned each lead.
type heldLease struct{}

func (heldLease) Acquire(_ context.Context, _ uuid.UUID, _ time.Duration) (bool, error) {
	return false, nil
}

func (heldLease) Release(_ context.Context, _ uuid.UUID) error { return nil }

func TestRetryCoordinatorReleasesClaimWhenLeaseHeld(t *testing.T) {
	lead := failedLead(false)
	store := &fakeRetryStore{claimed: []repository.Lead{lead}}
	trig := &fakeTrigger{}

	coord := NewRetryCoordinator(store, trig, heldLease{}, testLogger())
	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The claim goes back to the failed pool so the next sweep can pick
	// the lead up; no attempt is spent and nothing is dispatched.
	if len(store.released) != 1 || store.released[0] != lead.ID {
		t.Fatalf("expected claim released for %s, got %v", lead.ID, store.released)
	}
	if len(store.sent) != 0 || len(store.failed) != 0 {
		t.Fatalf("no marks expected, got sent=%v failed=%v", store.sent, store.failed)
	}
	if len(trig.events) != 0 {
		t.Fatalf("no dispatch expected, got %d", len(trig.events))
	}
	if result["retried"] != 0 || result["skipped"] != 1 {
		t.Fatalf("unexpected counts: %v", result)
	}
}

// retryPoolStore models the repository's claim contract in memory: only
// failed leads below the attempt ceiling are claimable, claiming flips them
// to retrying, and attempt counters saturate at the ceiling.
type retryPoolStore struct {
	leads map[uuid.UUID]*repository.Lead
}

func newRetryPoolStore(leads ...*repository.Lead) *retryPoolStore {
	pool := &retryPoolStore{leads: make(map[uuid.UUID]*repository.Lead)}
	for _, lead := range leads {
		pool.leads[lead.ID] = lead
	}
	return pool
}

func (p *retryPoolStore) ClaimFailedNotifications(_ context.Context, limit int) ([]repository.Lead, error) {
	var claimed []repository.Lead
	for _, lead := range p.leads {
		if len(claimed) == limit {
			break
		}
		if lead.NotificationStatus != repository.NotificationFailed {
			continue
		}
		if lead.NotificationAttempts >= repository.MaxNotificationAttempts {
			continue
		}
		lead.NotificationStatus = repository.NotificationRetrying
		claimed = append(claimed, *lead)
	}
	return claimed, nil
}

func (p *retryPoolStore) ReleaseNotificationClaim(_ context.Context, id uuid.UUID) error {
	if lead, ok := p.leads[id]; ok && lead.NotificationStatus == repository.NotificationRetrying {
		lead.NotificationStatus = repository.NotificationFailed
	}
	return nil
}

func (p *retryPoolStore) MarkNotificationSent(_ context.Context, id uuid.UUID) error {
	lead := p.leads[id]
	lead.NotificationStatus = repository.NotificationSent
	lead.NotificationAttempts = min(lead.NotificationAttempts+1, repository.MaxNotificationAttempts)
	return nil
}

func (p *retryPoolStore) MarkNotificationFailed(_ context.Context, id uuid.UUID, reason string) error {
	lead := p.leads[id]
	lead.NotificationStatus = repository.NotificationFailed
	lead.NotificationError = &reason
	lead.NotificationAttempts = min(lead.NotificationAttempts+1, repository.MaxNotificationAttempts)
	return nil
}

func TestRetryCoordinatorStopsAtAttemptCeiling(t *testing.T) {
	lastChance := failedLead(false)
	lastChance.NotificationAttempts = repository.MaxNotificationAttempts - 1
	exhausted := failedLead(false)
	exhausted.NotificationAttempts = repository.MaxNotificationAttempts

	store := newRetryPoolStore(&lastChance, &exhausted)
	trig := &fakeTrigger{failFor: map[uuid.UUID]error{
		lastChance.ID: errors.New("timeout"),
		exhausted.ID:  errors.New("timeout"),
	}}
	coord := NewRetryCoordinator(store, trig, nil, testLogger())

	// First sweep: the lead one attempt below the ceiling gets its final
	// retry; the exhausted lead is never selected.
	result, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["retried"] != 1 || result["failedCount"] != 1 {
		t.Fatalf("unexpected counts: %v", result)
	}
	if got := store.leads[lastChance.ID].NotificationAttempts; got != repository.MaxNotificationAttempts {
		t.Fatalf("expected attempts %d, got %d", repository.MaxNotificationAttempts, got)
	}

	// Second sweep: both leads now sit at the ceiling; nothing is claimed.
	result, err = coord.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["retried"] != 0 {
		t.Fatalf("expected empty sweep, got %v", result)
	}
	if len(trig.events) != 1 {
		t.Fatalf("expected a single dispatch across sweeps, got %d", len(trig.events))
	}
}

func TestRetryCoordinatorAttemptsNeverExceedCeiling(t *testing.T) {
	lead := failedLead(false)
	lead.NotificationAttempts = repository.MaxNotificationAttempts - 1

	store := newRetryPoolStore(&lead)
	trig := &fakeTrigger{failFor: map[uuid.UUID]error{lead.ID: errors.New("timeout")}}
	coord := NewRetryCoordinator(store, trig, nil, testLogger())

	for range 3 {
		if _, err := coord.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := store.leads[lead.ID].NotificationAttempts; got > repository.MaxNotificationAttempts {
		t.Fatalf("attempts %d exceed ceiling %d", got, repository.MaxNotificationAttempts)
	}
}

func TestRetryCoordinatorPropagatesClaimError(t *testing.T) {
	store := &fakeRetryStore{claimErr: errors.New("db down")}
	coord := NewRetryCoordinator(store, &fakeTrigger{}, nil, testLogger())

	if _, err := coord.Run(context.Background()); err == nil {
		t.Fatal("expected claim error to propagate")
	}
}
