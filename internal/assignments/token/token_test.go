package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type testTokenConfig struct {
	ttl time.Duration
}

func (c testTokenConfig) GetAcceptTokenSecret() string     { return "test-secret" }
func (c testTokenConfig) GetAcceptTokenTTL() time.Duration { return c.ttl }

func TestSignAndVerify_RoundTrip(t *testing.T) {
	signer := NewSigner(testTokenConfig{ttl: time.Hour})
	assignmentID := uuid.New()
	artisanID := uuid.New()

	raw, err := signer.Sign(assignmentID, artisanID)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	gotAssignment, gotArtisan, err := signer.Verify(raw)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if gotAssignment != assignmentID || gotArtisan != artisanID {
		t.Fatalf("token scope mismatch: got %s/%s", gotAssignment, gotArtisan)
	}
}

func TestVerify_ExpiredTokenRejected(t *testing.T) {
	signer := NewSigner(testTokenConfig{ttl: -time.Minute})

	raw, err := signer.Sign(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, _, err := signer.Verify(raw); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerify_TamperedTokenRejected(t *testing.T) {
	signer := NewSigner(testTokenConfig{ttl: time.Hour})

	raw, err := signer.Sign(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, _, err := signer.Verify(raw + "x"); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}
