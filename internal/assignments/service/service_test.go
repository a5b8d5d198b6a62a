package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"artisan_dispatch_backend/internal/assignments/repository"
	appevents "artisan_dispatch_backend/internal/events"
	"artisan_dispatch_backend/platform/apperr"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	offerResult   repository.Assignment
	acceptResult  repository.Assignment
	acceptErr     error
	cancelOutcome repository.CancelOutcome
	cancelErr     error

	confirmed  []string
	failures   map[uuid.UUID]string
	offerCalls int
}

func (f *fakeStore) Offer(_ context.Context, leadID, artisanID uuid.UUID, channel string, _ int) (repository.Assignment, error) {
	f.offerCalls++
	a := f.offerResult
	if a.ID == uuid.Nil {
		a = repository.Assignment{ID: uuid.New(), LeadID: leadID, ArtisanID: artisanID, NotificationChannel: channel}
	}
	return a, nil
}

func (f *fakeStore) Accept(_ context.Context, _, _ uuid.UUID) (repository.Assignment, error) {
	return f.acceptResult, f.acceptErr
}

func (f *fakeStore) Cancel(_ context.Context, _, _ uuid.UUID) (repository.CancelOutcome, error) {
	return f.cancelOutcome, f.cancelErr
}

func (f *fakeStore) ConfirmNotification(_ context.Context, assignmentID uuid.UUID, externalID string) error {
	f.confirmed = append(f.confirmed, assignmentID.String()+":"+externalID)
	return nil
}

func (f *fakeStore) FailNotification(_ context.Context, assignmentID uuid.UUID, reason string) error {
	if f.failures == nil {
		f.failures = make(map[uuid.UUID]string)
	}
	f.failures[assignmentID] = reason
	return nil
}

func (f *fakeStore) GetOfferDetails(_ context.Context, _ uuid.UUID) (repository.OfferDetails, error) {
	return repository.OfferDetails{}, errors.New("not wired in this test")
}

type fakeAppConfig struct{}

func (fakeAppConfig) GetAppBaseURL() string { return "https://app.example.test" }

func newTestService(store *fakeStore) *Service {
	log := logger.New("development")
	return New(store, nil, nil, nil, appevents.NewInMemoryBus(log), fakeAppConfig{}, log)
}

func TestCancelWithinGraceRefunds(t *testing.T) {
	leadID := uuid.New()
	store := &fakeStore{cancelOutcome: repository.CancelOutcome{
		Cancelled:       true,
		LeadID:          leadID,
		RefundedCredits: 3,
	}}

	outcome, err := newTestService(store).Cancel(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.LeadID != leadID || outcome.RefundedCredits != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestCancelOutcomeClassification(t *testing.T) {
	cases := []struct {
		name   string
		reason string
		kind   apperr.Kind
	}{
		{"unknown assignment", repository.ReasonNotFound, apperr.KindNotFound},
		{"other artisan's assignment", repository.ReasonNotOwner, apperr.KindConflict},
		{"past the grace period", repository.ReasonGraceExpired, apperr.KindConflict},
		{"already cancelled", repository.ReasonAlreadyCancelled, apperr.KindConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{cancelOutcome: repository.CancelOutcome{Cancelled: false, Reason: tc.reason}}

			_, err := newTestService(store).Cancel(context.Background(), uuid.New(), uuid.New())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !apperr.Is(err, tc.kind) {
				t.Fatalf("expected kind %v, got %v", tc.kind, apperr.GetKind(err))
			}
		})
	}
}

func TestCancelPropagatesStoreError(t *testing.T) {
	store := &fakeStore{cancelErr: errors.New("db down")}

	_, err := newTestService(store).Cancel(context.Background(), uuid.New(), uuid.New())
	if err == nil || err.Error() != "db down" {
		t.Fatalf("expected store error to pass through, got %v", err)
	}
}

func TestAcceptReturnsStampedTime(t *testing.T) {
	stamped := time.Now().UTC().Truncate(time.Second)
	store := &fakeStore{acceptResult: repository.Assignment{AcceptedAt: &stamped}}

	acceptedAt, err := newTestService(store).Accept(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !acceptedAt.Equal(stamped) {
		t.Fatalf("expected %v, got %v", stamped, acceptedAt)
	}
}

func TestRecordNotificationStatus(t *testing.T) {
	assignmentID := uuid.New()

	t.Run("success stamps the external id", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store)

		if err := svc.RecordNotificationStatus(context.Background(), assignmentID, true, "wa-123", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.confirmed) != 1 || store.confirmed[0] != assignmentID.String()+":wa-123" {
			t.Fatalf("unexpected confirmations: %v", store.confirmed)
		}
	})

	t.Run("failure records a reason", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store)

		if err := svc.RecordNotificationStatus(context.Background(), assignmentID, false, "", "number unreachable"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.failures[assignmentID] != "number unreachable" {
			t.Fatalf("unexpected failures: %v", store.failures)
		}
	})

	t.Run("failure without a reason gets a default", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store)

		if err := svc.RecordNotificationStatus(context.Background(), assignmentID, false, "", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.failures[assignmentID] != "delivery failed" {
			t.Fatalf("unexpected failures: %v", store.failures)
		}
	})
}
