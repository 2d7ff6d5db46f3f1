package authapi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// VerificationEmail is the payload for verification-code delivery.
type VerificationEmail struct {
	Username string
	Email    string
	Code     string
}

// EmailSender delivers verification codes out of band.
//
// Delivery failures never fail the primary operation; handlers log and
// move on, since the account itself was created or updated already.
type EmailSender interface {
	SendVerificationCode(ctx context.Context, msg VerificationEmail) error
}

// NoopEmailSender drops every message. Used in tests and when no provider
// is configured.
type NoopEmailSender struct{}

func (NoopEmailSender) SendVerificationCode(context.Context, VerificationEmail) error { return nil }

// SendGridSender delivers verification codes through SendGrid.
type SendGridSender struct {
	apiKey    string
	fromName  string
	fromEmail string
}

// NewSendGridSenderFromEnv builds a SendGridSender from
// CHITTER_SENDGRID_API_KEY, CHITTER_EMAIL_FROM_NAME, and
// CHITTER_EMAIL_FROM_ADDR. It returns nil when no API key is configured.
func NewSendGridSenderFromEnv() *SendGridSender {
	key := strings.TrimSpace(os.Getenv("CHITTER_SENDGRID_API_KEY"))
	if key == "" {
		return nil
	}

	name := strings.TrimSpace(os.Getenv("CHITTER_EMAIL_FROM_NAME"))
	if name == "" {
		name = "Chitter"
	}
	addr := strings.TrimSpace(os.Getenv("CHITTER_EMAIL_FROM_ADDR"))
	if addr == "" {
		addr = "no-reply@chitter.local"
	}

	return &SendGridSender{apiKey: key, fromName: name, fromEmail: addr}
}

func (s *SendGridSender) SendVerificationCode(ctx context.Context, msg VerificationEmail) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.Username, msg.Email)
	subject := "Your Chitter verification code"

	plain := fmt.Sprintf("Your verification code is: %s\nIt expires in 10 minutes.", msg.Code)
	html := fmt.Sprintf("<p>Your verification code is: <strong>%s</strong></p><p>It expires in 10 minutes.</p>", msg.Code)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(s.apiKey)

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
