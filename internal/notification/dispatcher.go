package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentaro/notifyd/internal/config"
	"github.com/rentaro/notifyd/internal/storage"
)

// Event types published on the internal bus for each terminal job outcome.
const (
	EventJobSent   = "notification.job.sent"
	EventJobFailed = "notification.job.failed"
)

// EventPublisher allows the dispatcher to emit lifecycle events without
// depending on a concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

const defaultSendTimeout = 30 * time.Second

// DispatcherConfig holds the dispatcher's collaborators.
type DispatcherConfig struct {
	Jobs      storage.JobStore
	Inbox     storage.InboxStore
	Contacts  *ContactResolver
	Email     EmailSender
	Chat      TextSender // nil when the chat provider is not configured
	SMS       TextSender
	Push      *PushStubSender
	Templates *TemplateRegistry
	Logger    *slog.Logger
	// Events is optional. When set, job lifecycle events are published.
	Events EventPublisher
	// SendTimeout bounds each individual channel send. Defaults to 30s.
	SendTimeout time.Duration
}

// Dispatcher performs one processing pass per claimed job: resolves
// recipients, fans out to channels, aggregates the outcome and updates the
// job record. A job is sent if at least one channel succeeded; partial
// failure across channels never fails the job.
type Dispatcher struct {
	cfg         DispatcherConfig
	logger      *slog.Logger
	sendTimeout time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{cfg: cfg, logger: cfg.Logger, sendTimeout: timeout}
}

// Process runs one pass for a claimed job and returns the terminal status it
// recorded. Any panic or unexpected error is contained here: the job is
// marked failed and the batch continues. Process never panics.
func (d *Dispatcher) Process(ctx context.Context, job *storage.NotificationJob, settings config.Settings) (status storage.JobStatus) {
	attempts := job.Attempts + 1
	attemptedAt := time.Now().UTC()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while processing job", "job_id", job.ID, "panic", r)
			status = storage.JobStatusFailed
			d.finish(ctx, job, status, attempts, attemptedAt)
		}
	}()

	if d.cfg.Templates.IsShortcut(job.TemplateName) {
		status = d.processShortcut(ctx, job, settings)
	} else {
		status = d.processFanOut(ctx, job, settings)
	}

	d.finish(ctx, job, status, attempts, attemptedAt)
	return status
}

// finish persists the outcome, updates metrics and publishes the lifecycle event.
func (d *Dispatcher) finish(ctx context.Context, job *storage.NotificationJob, status storage.JobStatus, attempts int, attemptedAt time.Time) {
	if err := d.cfg.Jobs.MarkJobResult(ctx, job.ID, status, attempts, attemptedAt); err != nil {
		d.logger.Error("failed to record job result", "job_id", job.ID, "error", err)
	}
	jobsProcessed.WithLabelValues(string(status)).Inc()

	if d.cfg.Events != nil {
		eventType := EventJobSent
		if status == storage.JobStatusFailed {
			eventType = EventJobFailed
		}
		d.cfg.Events.Publish(eventType, map[string]string{
			"job_id":   job.ID,
			"attempts": fmt.Sprintf("%d", attempts),
		})
	}
}

// processShortcut handles template-driven deliveries that bypass the generic
// fan-out: the template defines both the rendering and the channel set.
func (d *Dispatcher) processShortcut(ctx context.Context, job *storage.NotificationJob, settings config.Settings) storage.JobStatus {
	if !settings.EventEnabled(job.TemplateName) {
		d.logger.Info("notification suppressed by settings",
			"job_id", job.ID, "template", job.TemplateName)
		return storage.JobStatusSent
	}

	subject, body, err := d.cfg.Templates.Render(job.TemplateName, job.Metadata)
	if err != nil {
		d.logger.Error("template rendering failed", "job_id", job.ID,
			"template", job.TemplateName, "error", err)
		return storage.JobStatusFailed
	}

	delivered := 0
	for _, ch := range d.cfg.Templates.ShortcutChannels(job.TemplateName) {
		switch ch {
		case ChannelEmail:
			if d.sendEmail(ctx, job, subject, body) {
				delivered++
			}
		case ChannelChatMessaging:
			if d.sendChat(ctx, job, body) {
				delivered++
			}
		}
	}

	if delivered == 0 {
		return storage.JobStatusFailed
	}
	return storage.JobStatusSent
}

// processFanOut handles the generic per-channel delivery path.
func (d *Dispatcher) processFanOut(ctx context.Context, job *storage.NotificationJob, settings config.Settings) storage.JobStatus {
	if !settings.Enabled || (job.TemplateName != "" && !settings.EventEnabled(job.TemplateName)) {
		d.logger.Info("notification suppressed by settings",
			"job_id", job.ID, "template", job.TemplateName)
		return storage.JobStatusSent
	}

	subject, body := job.Subject, job.Message
	if job.TemplateName != "" {
		if s, b, err := d.cfg.Templates.Render(job.TemplateName, job.Metadata); err == nil {
			subject, body = s, b
		} else {
			d.logger.Warn("falling back to plain content",
				"job_id", job.ID, "template", job.TemplateName, "error", err)
		}
	}

	delivered := 0
	for _, raw := range job.Channels {
		ch, err := ParseChannel(raw)
		if err != nil {
			// Unrecognized values are rejected at the job boundary; anything
			// reaching this point is a legacy row. Contributes nothing.
			d.logger.Warn("skipping unknown channel", "job_id", job.ID, "channel", raw)
			continue
		}

		var ok bool
		switch ch {
		case ChannelInApp:
			ok = d.sendInApp(ctx, job, subject, body)
		case ChannelEmail:
			ok = d.sendEmail(ctx, job, subject, body)
		case ChannelChatMessaging:
			ok = d.sendChat(ctx, job, body)
		case ChannelSMS:
			ok = d.sendSMS(ctx, job, body)
		case ChannelPush:
			ok = d.sendPush(ctx, job, subject, body)
		}
		if ok {
			delivered++
		}
	}

	if delivered == 0 {
		return storage.JobStatusFailed
	}
	return storage.JobStatusSent
}

// sendInApp persists an inbox notification for the job's resolvable user.
func (d *Dispatcher) sendInApp(ctx context.Context, job *storage.NotificationJob, subject, body string) bool {
	user := d.cfg.Contacts.ResolveUser(ctx, job)
	if user == nil {
		d.logger.Debug("inapp channel skipped, no resolvable user", "job_id", job.ID)
		return false
	}

	if _, err := d.cfg.Inbox.AddNotification(ctx, user.ID, subject, body); err != nil {
		channelSends.WithLabelValues(string(ChannelInApp), "failed").Inc()
		d.logger.Error("inapp delivery failed", "job_id", job.ID, "error", err)
		return false
	}
	channelSends.WithLabelValues(string(ChannelInApp), "sent").Inc()
	return true
}

// sendEmail resolves the recipient and traverses the email delivery chain.
func (d *Dispatcher) sendEmail(ctx context.Context, job *storage.NotificationJob, subject, body string) bool {
	addr := d.cfg.Contacts.ResolveEmail(ctx, job)
	if addr == "" {
		d.logger.Debug("email channel skipped, no resolvable address", "job_id", job.ID)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.cfg.Email.Send(sendCtx, NewEmailMessage(addr, subject, body)); err != nil {
		channelSends.WithLabelValues(string(ChannelEmail), "failed").Inc()
		d.logger.Error("email delivery failed", "job_id", job.ID, "error", err)
		return false
	}
	channelSends.WithLabelValues(string(ChannelEmail), "sent").Inc()
	return true
}

// sendChat resolves the phone number and sends through the chat-messaging provider.
func (d *Dispatcher) sendChat(ctx context.Context, job *storage.NotificationJob, body string) bool {
	phone := d.cfg.Contacts.ResolvePhone(ctx, job)
	if phone == "" {
		d.logger.Debug("chat channel skipped, no resolvable phone", "job_id", job.ID)
		return false
	}
	if d.cfg.Chat == nil {
		channelSends.WithLabelValues(string(ChannelChatMessaging), "failed").Inc()
		d.logger.Error("chat delivery failed", "job_id", job.ID, "error", ErrProviderNotConfigured)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.cfg.Chat.SendText(sendCtx, phone, body); err != nil {
		channelSends.WithLabelValues(string(ChannelChatMessaging), "failed").Inc()
		d.logger.Error("chat delivery failed", "job_id", job.ID, "error", err)
		return false
	}
	channelSends.WithLabelValues(string(ChannelChatMessaging), "sent").Inc()
	return true
}

// sendSMS requires a resolvable phone number, then hands off to the SMS
// sender (currently a logging stub).
func (d *Dispatcher) sendSMS(ctx context.Context, job *storage.NotificationJob, body string) bool {
	phone := d.cfg.Contacts.ResolvePhone(ctx, job)
	if phone == "" {
		d.logger.Debug("sms channel skipped, no resolvable phone", "job_id", job.ID)
		return false
	}

	if err := d.cfg.SMS.SendText(ctx, phone, body); err != nil {
		channelSends.WithLabelValues(string(ChannelSMS), "failed").Inc()
		d.logger.Error("sms delivery failed", "job_id", job.ID, "error", err)
		return false
	}
	channelSends.WithLabelValues(string(ChannelSMS), "sent").Inc()
	return true
}

// sendPush is a placeholder that unconditionally reports success.
func (d *Dispatcher) sendPush(ctx context.Context, job *storage.NotificationJob, subject, body string) bool {
	_ = d.cfg.Push.SendPush(ctx, job.TargetUserID, subject, body)
	channelSends.WithLabelValues(string(ChannelPush), "sent").Inc()
	return true
}
