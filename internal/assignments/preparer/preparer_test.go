package preparer

import (
	"context"
	"strings"
	"testing"
	"time"

	"artisan_dispatch_backend/internal/assignments/repository"
	"artisan_dispatch_backend/internal/assignments/token"
	"artisan_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
)

type testTokenConfig struct{}

func (testTokenConfig) GetAcceptTokenSecret() string     { return "test-secret" }
func (testTokenConfig) GetAcceptTokenTTL() time.Duration { return time.Hour }

type fakeOfferReader struct {
	details repository.OfferDetails
	err     error
}

func (f fakeOfferReader) GetOfferDetails(_ context.Context, _ uuid.UUID) (repository.OfferDetails, error) {
	return f.details, f.err
}

type fakePresigner struct {
	url string
}

func (f fakePresigner) PresignedPhotoURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return f.url, nil
}

func testDetails() repository.OfferDetails {
	email := "artisan@example.com"
	city := "Lyon"
	d := repository.OfferDetails{
		ArtisanName:  "Jean Dupont",
		ArtisanPhone: "+33612345678",
		ArtisanEmail: &email,
	}
	d.Assignment.ID = uuid.New()
	d.Assignment.ArtisanID = uuid.New()
	d.Lead.ProblemType = "plomberie"
	d.Lead.Description = "Fuite sous l'évier de la cuisine"
	d.Lead.City = &city
	d.Lead.Urgent = true
	d.Lead.QualityScore = 85
	d.Lead.QualityTier = "high"
	return d
}

func newTestPreparer(t *testing.T, offers OfferReader, photos PhotoPresigner) *Preparer {
	t.Helper()
	tmpl, err := LoadTemplates("")
	if err != nil {
		t.Fatalf("failed to load default templates: %v", err)
	}
	return New(offers, token.NewSigner(testTokenConfig{}), tmpl, photos)
}

func TestPrepare_UnknownChannelIsValidationError(t *testing.T) {
	p := newTestPreparer(t, fakeOfferReader{details: testDetails()}, nil)

	_, err := p.Prepare(context.Background(), "pigeon", uuid.New(), "https://app.example.com")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrepare_MissingAssignmentPropagatesNotFound(t *testing.T) {
	p := newTestPreparer(t, fakeOfferReader{err: apperr.NotFound("assignment not found")}, nil)

	_, err := p.Prepare(context.Background(), "whatsapp", uuid.New(), "https://app.example.com")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestPrepare_WhatsAppPayload(t *testing.T) {
	details := testDetails()
	p := newTestPreparer(t, fakeOfferReader{details: details}, nil)

	payload, err := p.Prepare(context.Background(), "whatsapp", details.Assignment.ID, "https://app.example.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload.Channel != "whatsapp" {
		t.Fatalf("expected whatsapp channel, got %s", payload.Channel)
	}
	if payload.Recipient != "+33612345678" {
		t.Fatalf("expected artisan phone recipient, got %s", payload.Recipient)
	}
	if !strings.Contains(payload.Message, "plomberie") || !strings.Contains(payload.Message, "URGENT") {
		t.Fatalf("message missing lead details: %q", payload.Message)
	}
	if !strings.HasPrefix(payload.AcceptURL, "https://app.example.com/accept/"+details.Assignment.ID.String()) {
		t.Fatalf("unexpected accept URL: %s", payload.AcceptURL)
	}
}

func TestPrepare_AcceptURLTokenScopedToAssignment(t *testing.T) {
	details := testDetails()
	p := newTestPreparer(t, fakeOfferReader{details: details}, nil)

	payload, err := p.Prepare(context.Background(), "sms", details.Assignment.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, rawToken, found := strings.Cut(payload.AcceptURL, "token=")
	if !found {
		t.Fatalf("accept URL has no token: %s", payload.AcceptURL)
	}

	signer := token.NewSigner(testTokenConfig{})
	assignmentID, artisanID, err := signer.Verify(rawToken)
	if err != nil {
		t.Fatalf("token verify failed: %v", err)
	}
	if assignmentID != details.Assignment.ID || artisanID != details.Assignment.ArtisanID {
		t.Fatalf("token scope mismatch: %s/%s", assignmentID, artisanID)
	}
}

func TestPrepare_EmailPayloadIncludesQRAndPhoto(t *testing.T) {
	details := testDetails()
	photoKey := "leads/photo-1.jpg"
	details.Lead.PhotoKey = &photoKey

	p := newTestPreparer(t, fakeOfferReader{details: details}, fakePresigner{url: "https://minio.example.com/presigned"})

	payload, err := p.Prepare(context.Background(), "email", details.Assignment.ID, "https://app.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payload.Recipient != "artisan@example.com" {
		t.Fatalf("expected artisan email recipient, got %s", payload.Recipient)
	}
	if payload.Subject == "" {
		t.Fatal("expected a rendered email subject")
	}
	if len(payload.QRCode) == 0 {
		t.Fatal("expected a QR code in the email payload")
	}
	if payload.PhotoURL != "https://minio.example.com/presigned" {
		t.Fatalf("expected presigned photo URL, got %s", payload.PhotoURL)
	}
	if !strings.Contains(payload.Message, "https://minio.example.com/presigned") {
		t.Fatalf("email body missing photo link: %q", payload.Message)
	}
}

func TestPrepare_EmailWithoutArtisanEmailIsConflict(t *testing.T) {
	details := testDetails()
	details.ArtisanEmail = nil
	p := newTestPreparer(t, fakeOfferReader{details: details}, nil)

	_, err := p.Prepare(context.Background(), "email", details.Assignment.ID, "https://app.example.com")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}
