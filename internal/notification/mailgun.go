package notification

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunConfig holds credentials for the secondary transactional provider.
type MailgunConfig struct {
	Domain    string
	APIKey    string
	FromEmail string
	FromName  string
}

// MailgunProvider delivers email through the Mailgun messages API.
type MailgunProvider struct {
	config MailgunConfig
	client *mailgun.MailgunImpl
}

// NewMailgunProvider creates a MailgunProvider, or nil when the domain or API
// key is missing so the chain skips it.
func NewMailgunProvider(config MailgunConfig) *MailgunProvider {
	if config.Domain == "" || config.APIKey == "" {
		return nil
	}
	return &MailgunProvider{
		config: config,
		client: mailgun.NewMailgun(config.Domain, config.APIKey),
	}
}

// Name returns the provider identifier.
func (p *MailgunProvider) Name() string { return "mailgun" }

// Send delivers msg through the Mailgun API.
func (p *MailgunProvider) Send(ctx context.Context, msg Message) error {
	from := fmt.Sprintf("%s <%s>", p.config.FromName, p.config.FromEmail)
	m := p.client.NewMessage(from, msg.Subject, msg.Body, msg.To...)
	if msg.HTML != "" {
		m.SetHtml(msg.HTML)
	}

	if _, _, err := p.client.Send(ctx, m); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}
