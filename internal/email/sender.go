// Package email delivers the email channel directly over SMTP. WhatsApp and
// SMS go through the external workflow engine; email is the one channel the
// core can deliver itself when SMTP is configured.
package email

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"artisan_dispatch_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers offer emails via SMTP using go-mail.
type Sender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSender creates an SMTP sender from configuration. Returns nil when email
// delivery is disabled; callers treat a nil sender as "channel unavailable".
func NewSender(cfg config.EmailConfig) *Sender {
	if !cfg.GetEmailEnabled() {
		return nil
	}

	return &Sender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// SendOffer delivers an offer email with the rendered HTML body and the
// acceptance QR code attached.
func (s *Sender) SendOffer(ctx context.Context, toEmail, subject, htmlBody string, qrPNG []byte) error {
	if s == nil {
		return fmt.Errorf("email delivery is not configured")
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if len(qrPNG) > 0 {
		msg.AttachReader("acceptation-qr.png", bytes.NewReader(qrPNG))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
