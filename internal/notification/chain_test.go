package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentaro/notifyd/internal/notification"
)

type stubProvider struct {
	name  string
	err   error
	calls int
	last  notification.Message
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Send(_ context.Context, msg notification.Message) error {
	p.calls++
	p.last = msg
	return p.err
}

type stubAttachmentProvider struct {
	stubProvider
	attachErr   error
	attachCalls int
	gotAttached []notification.Attachment
}

func (p *stubAttachmentProvider) SendWithAttachments(_ context.Context, msg notification.Message, attachments []notification.Attachment) error {
	p.attachCalls++
	p.gotAttached = attachments
	return p.attachErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainSend(t *testing.T) {
	msg := notification.Message{Subject: "hi", Body: "there", To: []string{"a@example.com"}}

	t.Run("first success wins", func(t *testing.T) {
		first := &stubProvider{name: "first"}
		second := &stubProvider{name: "second"}
		chain := notification.NewChain(discardLogger(), first, second)

		require.NoError(t, chain.Send(context.Background(), msg))
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls, "fallback must not run after a success")
	})

	t.Run("falls back past a failing provider", func(t *testing.T) {
		first := &stubProvider{name: "first", err: errors.New("rate limited")}
		second := &stubProvider{name: "second"}
		chain := notification.NewChain(discardLogger(), first, second)

		require.NoError(t, chain.Send(context.Background(), msg))
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
		assert.Equal(t, msg, second.last)
	})

	t.Run("all providers failing yields one error", func(t *testing.T) {
		first := &stubProvider{name: "first", err: errors.New("boom")}
		second := &stubProvider{name: "second", err: errors.New("down")}
		chain := notification.NewChain(discardLogger(), first, second)

		err := chain.Send(context.Background(), msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Contains(t, err.Error(), "down")
	})

	t.Run("empty chain is a configuration error", func(t *testing.T) {
		chain := notification.NewChain(discardLogger())
		err := chain.Send(context.Background(), msg)
		require.ErrorIs(t, err, notification.ErrProviderNotConfigured)
	})

	t.Run("nil providers are skipped", func(t *testing.T) {
		only := &stubProvider{name: "only"}
		chain := notification.NewChain(discardLogger(), nil, only, nil)
		assert.Equal(t, []string{"only"}, chain.Providers())
		require.NoError(t, chain.Send(context.Background(), msg))
	})
}

func TestChainSendWithAttachments(t *testing.T) {
	msg := notification.Message{Subject: "invoice", Body: "see attached", To: []string{"a@example.com"}}
	attachments := []notification.Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("pdf")}}

	t.Run("uses the attachment-capable provider", func(t *testing.T) {
		capable := &stubAttachmentProvider{stubProvider: stubProvider{name: "capable"}}
		plain := &stubProvider{name: "plain"}
		chain := notification.NewChain(discardLogger(), capable, plain)

		require.NoError(t, chain.SendWithAttachments(context.Background(), msg, attachments))
		assert.Equal(t, 1, capable.attachCalls)
		assert.Equal(t, attachments, capable.gotAttached)
		assert.Equal(t, 0, capable.calls)
		assert.Equal(t, 0, plain.calls)
	})

	t.Run("degrades to plain send when the capable provider fails", func(t *testing.T) {
		capable := &stubAttachmentProvider{
			stubProvider: stubProvider{name: "capable", err: errors.New("capable plain down")},
			attachErr:    errors.New("attachment refused"),
		}
		plain := &stubProvider{name: "plain"}
		chain := notification.NewChain(discardLogger(), capable, plain)

		require.NoError(t, chain.SendWithAttachments(context.Background(), msg, attachments))
		assert.Equal(t, 1, capable.attachCalls)
		assert.Equal(t, 1, plain.calls, "content must still go out without the attachment")
	})

	t.Run("degrades when no provider supports attachments", func(t *testing.T) {
		plain := &stubProvider{name: "plain"}
		chain := notification.NewChain(discardLogger(), plain)

		require.NoError(t, chain.SendWithAttachments(context.Background(), msg, attachments))
		assert.Equal(t, 1, plain.calls)
	})

	t.Run("no attachments is a plain send", func(t *testing.T) {
		capable := &stubAttachmentProvider{stubProvider: stubProvider{name: "capable"}}
		chain := notification.NewChain(discardLogger(), capable)

		require.NoError(t, chain.SendWithAttachments(context.Background(), msg, nil))
		assert.Equal(t, 0, capable.attachCalls)
		assert.Equal(t, 1, capable.calls)
	})
}
