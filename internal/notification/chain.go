package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain is the ordered email provider fallback. Providers are attempted in
// order; the first one to return without error wins immediately. Every entry
// point (dispatcher, convenience senders) traverses the same chain with the
// same ordering.
type Chain struct {
	providers []EmailProvider
	logger    *slog.Logger
}

// NewChain builds a Chain from the given providers. Nil entries (disabled
// providers) are skipped, so callers can pass the canonical order
// unconditionally.
func NewChain(logger *slog.Logger, providers ...EmailProvider) *Chain {
	c := &Chain{logger: logger}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Providers returns the names of the configured providers in attempt order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Send attempts each provider in order until one succeeds. A provider error
// of any class (send failure, timeout, not configured) moves on to the next
// provider. If every provider fails, the joined error is returned and the
// caller sees a single email-channel failure.
func (c *Chain) Send(ctx context.Context, msg Message) error {
	if len(c.providers) == 0 {
		return fmt.Errorf("email chain: %w", ErrProviderNotConfigured)
	}

	var errs []error
	for _, p := range c.providers {
		err := p.Send(ctx, msg)
		if err == nil {
			emailProviderAttempts.WithLabelValues(p.Name(), "sent").Inc()
			c.logger.Debug("email delivered", "provider", p.Name(), "subject", msg.Subject)
			return nil
		}
		emailProviderAttempts.WithLabelValues(p.Name(), "failed").Inc()
		c.logger.Warn("email provider failed, trying next",
			"provider", p.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	return fmt.Errorf("all email providers failed: %w", errors.Join(errs...))
}

// SendWithAttachments delivers msg with attachments through the single
// attachment-capable provider. If that provider is absent or fails, the
// message is degraded: the same content is sent without attachments through
// the plain chain instead of failing the whole send.
func (c *Chain) SendWithAttachments(ctx context.Context, msg Message, attachments []Attachment) error {
	if len(attachments) == 0 {
		return c.Send(ctx, msg)
	}

	for _, p := range c.providers {
		as, ok := p.(AttachmentSender)
		if !ok {
			continue
		}
		err := as.SendWithAttachments(ctx, msg, attachments)
		if err == nil {
			emailProviderAttempts.WithLabelValues(p.Name(), "sent").Inc()
			return nil
		}
		emailProviderAttempts.WithLabelValues(p.Name(), "failed").Inc()
		c.logger.Warn("attachment-capable provider failed, degrading to plain send",
			"provider", p.Name(), "error", err)
		break
	}

	c.logger.Info("sending without attachments", "subject", msg.Subject,
		"dropped_attachments", len(attachments))
	return c.Send(ctx, msg)
}
