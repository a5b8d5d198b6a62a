// Package token issues and verifies the signed acceptance tokens embedded in
// notification payloads. A token is scoped to exactly one assignment and
// artisan, so a forwarded link can never accept on behalf of someone else.
package token

import (
	"fmt"
	"time"

	"artisan_dispatch_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the acceptance token claims.
type Claims struct {
	AssignmentID string `json:"assignmentId"`
	ArtisanID    string `json:"artisanId"`
	jwt.RegisteredClaims
}

// Signer issues and verifies acceptance tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a signer from configuration.
func NewSigner(cfg config.TokenConfig) *Signer {
	return &Signer{
		secret: []byte(cfg.GetAcceptTokenSecret()),
		ttl:    cfg.GetAcceptTokenTTL(),
	}
}

// Sign issues a token scoped to the assignment and artisan.
func (s *Signer) Sign(assignmentID, artisanID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		AssignmentID: assignmentID.String(),
		ArtisanID:    artisanID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses the token and returns the assignment and artisan it is
// scoped to.
func (s *Signer) Verify(raw string) (assignmentID, artisanID uuid.UUID, err error) {
	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	assignmentID, err = uuid.Parse(claims.AssignmentID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid assignment id in token: %w", err)
	}
	artisanID, err = uuid.Parse(claims.ArtisanID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid artisan id in token: %w", err)
	}
	return assignmentID, artisanID, nil
}
