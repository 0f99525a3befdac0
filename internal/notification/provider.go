package notification

import (
	"context"
	"errors"
)

// ErrProviderNotConfigured marks a provider that is disabled or missing
// credentials. The chain treats it exactly like a send failure and moves on
// to the next provider.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Message is the content to be delivered by an email provider.
type Message struct {
	Subject string
	Body    string
	HTML    string // optional HTML alternative
	To      []string
}

// Attachment is a file attached to an email. Only one provider in the chain
// supports attachments; everything else degrades to the plain message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailProvider is the interface for email delivery backends.
type EmailProvider interface {
	// Name returns the provider identifier (e.g. "sendgrid").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}

// AttachmentSender is implemented by the single provider in the chain capable
// of sending attachments.
type AttachmentSender interface {
	EmailProvider
	SendWithAttachments(ctx context.Context, msg Message, attachments []Attachment) error
}

// EmailSender is the capability the dispatcher and the convenience senders
// depend on. *Chain is the production implementation.
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
	SendWithAttachments(ctx context.Context, msg Message, attachments []Attachment) error
}

// TextSender delivers a short text message to a phone number. The WhatsApp
// client is the production implementation for the chat-messaging channel.
type TextSender interface {
	SendText(ctx context.Context, phone, body string) error
}
