// Package preparer builds channel-specific notification payloads for an
// assignment. Preparation only assembles data; delivery belongs to the
// external workflow engine (or the SMTP sender for the email channel).
package preparer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"artisan_dispatch_backend/internal/assignments/repository"
	"artisan_dispatch_backend/internal/assignments/token"
	"artisan_dispatch_backend/platform/apperr"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const photoURLTTL = 24 * time.Hour

// OfferReader loads the offer details a preparer needs.
type OfferReader interface {
	GetOfferDetails(ctx context.Context, assignmentID uuid.UUID) (repository.OfferDetails, error)
}

// PhotoPresigner produces a time-limited download URL for a stored lead photo.
type PhotoPresigner interface {
	PresignedPhotoURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Payload is the channel-ready notification content.
type Payload struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	AcceptURL string `json:"acceptUrl"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	QRCode    []byte `json:"qrCode,omitempty"`
}

// Preparer routes a prepare request to the right channel builder.
type Preparer struct {
	offers OfferReader
	signer *token.Signer
	tmpl   *Templates
	photos PhotoPresigner // optional; nil disables photo links
}

// New creates a preparer. photos may be nil when no object store is configured.
func New(offers OfferReader, signer *token.Signer, tmpl *Templates, photos PhotoPresigner) *Preparer {
	return &Preparer{offers: offers, signer: signer, tmpl: tmpl, photos: photos}
}

// Prepare builds the payload for the given channel. Unknown channels are a
// validation error; a missing assignment surfaces as not found.
func (p *Preparer) Prepare(ctx context.Context, channel string, assignmentID uuid.UUID, baseURL string) (Payload, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	switch channel {
	case repository.ChannelWhatsApp, repository.ChannelSMS, repository.ChannelEmail:
	default:
		return Payload{}, apperr.Validation("Canal de notification inconnu : " + channel)
	}

	details, err := p.offers.GetOfferDetails(ctx, assignmentID)
	if err != nil {
		return Payload{}, err
	}

	acceptToken, err := p.signer.Sign(details.Assignment.ID, details.Assignment.ArtisanID)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to sign acceptance token", err)
	}
	acceptURL := fmt.Sprintf("%s/accept/%s?token=%s",
		strings.TrimRight(baseURL, "/"), details.Assignment.ID, acceptToken)

	data := templateData{
		ArtisanName: details.ArtisanName,
		ProblemType: details.Lead.ProblemType,
		Description: details.Lead.Description,
		Urgent:      details.Lead.Urgent,
		Score:       details.Lead.QualityScore,
		Tier:        details.Lead.QualityTier,
		AcceptURL:   acceptURL,
	}
	if details.Lead.City != nil {
		data.City = *details.Lead.City
	}
	if p.photos != nil && details.Lead.PhotoKey != nil {
		photoURL, err := p.photos.PresignedPhotoURL(ctx, *details.Lead.PhotoKey, photoURLTTL)
		if err == nil {
			data.PhotoURL = photoURL
		}
		// Presign failures degrade to a payload without a photo link.
	}

	switch channel {
	case repository.ChannelWhatsApp:
		return p.buildWhatsApp(details, data)
	case repository.ChannelSMS:
		return p.buildSMS(details, data)
	default:
		return p.buildEmail(details, data)
	}
}

func (p *Preparer) buildWhatsApp(details repository.OfferDetails, data templateData) (Payload, error) {
	message, err := render(p.tmpl.whatsapp, data)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to render whatsapp payload", err)
	}
	return Payload{
		Channel:   repository.ChannelWhatsApp,
		Recipient: details.ArtisanPhone,
		Message:   message,
		AcceptURL: data.AcceptURL,
		PhotoURL:  data.PhotoURL,
	}, nil
}

func (p *Preparer) buildSMS(details repository.OfferDetails, data templateData) (Payload, error) {
	message, err := render(p.tmpl.sms, data)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to render sms payload", err)
	}
	return Payload{
		Channel:   repository.ChannelSMS,
		Recipient: details.ArtisanPhone,
		Message:   message,
		AcceptURL: data.AcceptURL,
	}, nil
}

func (p *Preparer) buildEmail(details repository.OfferDetails, data templateData) (Payload, error) {
	if details.ArtisanEmail == nil || *details.ArtisanEmail == "" {
		return Payload{}, apperr.Conflict("L'artisan n'a pas d'adresse e-mail")
	}

	subject, err := render(p.tmpl.emailSubject, data)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to render email subject", err)
	}
	body, err := render(p.tmpl.emailBody, data)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to render email payload", err)
	}

	qr, err := qrcode.Encode(data.AcceptURL, qrcode.Medium, 256)
	if err != nil {
		return Payload{}, apperr.Wrap(apperr.KindInternal, "failed to encode acceptance QR code", err)
	}

	return Payload{
		Channel:   repository.ChannelEmail,
		Recipient: *details.ArtisanEmail,
		Subject:   subject,
		Message:   body,
		AcceptURL: data.AcceptURL,
		PhotoURL:  data.PhotoURL,
		QRCode:    qr,
	}, nil
}
