package notification

import (
	"context"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/wrenchwise/workshop-api/config"
)

// EmailSender delivers a plain-text message to one or more addresses.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

var _ EmailSender = (*MailgunSender)(nil)

type MailgunSender struct {
	domain string
	apiKey string
	sender string
}

func NewMailgunSender(cfg config.MailConfig) *MailgunSender {
	return &MailgunSender{domain: cfg.Domain, apiKey: cfg.APIKey, sender: cfg.Sender}
}

func (m *MailgunSender) Send(ctx context.Context, to []string, subject, body string) error {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	message := mailgun.NewMessage(m.sender, subject, body, to...)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	return err
}
