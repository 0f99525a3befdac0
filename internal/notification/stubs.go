package notification

import (
	"context"
	"log/slog"
)

// SMSStubSender is a placeholder for the SMS channel: it logs the intended
// send and reports success without delivering anything. The warning makes the
// placeholder visible to operators until a real SMS gateway is wired in.
//
// TODO: replace with a real gateway client once an SMS provider account exists.
type SMSStubSender struct {
	logger *slog.Logger
}

// NewSMSStubSender creates the SMS placeholder sender.
func NewSMSStubSender(logger *slog.Logger) *SMSStubSender {
	return &SMSStubSender{logger: logger}
}

// SendText logs the intent and reports success.
func (s *SMSStubSender) SendText(_ context.Context, phone, body string) error {
	s.logger.Warn("sms channel is a stub, message not actually sent",
		"phone", phone, "length", len(body))
	return nil
}

// PushStubSender is a placeholder for the push channel: it unconditionally
// reports success.
type PushStubSender struct {
	logger *slog.Logger
}

// NewPushStubSender creates the push placeholder sender.
func NewPushStubSender(logger *slog.Logger) *PushStubSender {
	return &PushStubSender{logger: logger}
}

// SendPush logs the intent and reports success.
func (s *PushStubSender) SendPush(_ context.Context, userID, title, body string) error {
	s.logger.Warn("push channel is a stub, message not actually sent",
		"user_id", userID, "title", title)
	return nil
}
