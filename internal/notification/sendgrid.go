package notification

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridConfig holds credentials for the primary transactional provider.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridProvider delivers email through the SendGrid v3 API. It is the only
// provider in the chain that supports attachments.
type SendGridProvider struct {
	config SendGridConfig
	client *sendgrid.Client
}

// NewSendGridProvider creates a SendGridProvider, or nil when no API key is
// configured so the chain skips it.
func NewSendGridProvider(config SendGridConfig) *SendGridProvider {
	if config.APIKey == "" {
		return nil
	}
	return &SendGridProvider{
		config: config,
		client: sendgrid.NewSendClient(config.APIKey),
	}
}

// Name returns the provider identifier.
func (p *SendGridProvider) Name() string { return "sendgrid" }

// Send delivers msg through the SendGrid API.
func (p *SendGridProvider) Send(ctx context.Context, msg Message) error {
	return p.send(ctx, msg, nil)
}

// SendWithAttachments delivers msg with the given attachments.
func (p *SendGridProvider) SendWithAttachments(ctx context.Context, msg Message, attachments []Attachment) error {
	return p.send(ctx, msg, attachments)
}

func (p *SendGridProvider) send(ctx context.Context, msg Message, attachments []Attachment) error {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(p.config.FromName, p.config.FromEmail))
	m.Subject = msg.Subject

	personalization := sgmail.NewPersonalization()
	for _, to := range msg.To {
		personalization.AddTos(sgmail.NewEmail("", to))
	}
	m.AddPersonalizations(personalization)

	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range attachments {
		att := sgmail.NewAttachment()
		att.SetFilename(a.Filename)
		att.SetType(a.ContentType)
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}

	resp, err := p.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
