package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentaro/notifyd/internal/notification"
	"github.com/rentaro/notifyd/internal/storage"
)

// Event types emitted by the notification service.
const (
	EventJobCreated  = "notification.job.created"
	EventJobRequeued = "notification.job.requeued"
)

// EnqueueRequest is the producer-facing payload for creating a notification job.
type EnqueueRequest struct {
	BookingID       string            `json:"booking_id,omitempty"`
	TargetUserID    string            `json:"target_user_id,omitempty"`
	TargetEmail     string            `json:"target_email,omitempty"`
	TargetPhone     string            `json:"target_phone,omitempty"`
	Channels        []string          `json:"channels,omitempty"`
	Subject         string            `json:"subject,omitempty"`
	Message         string            `json:"message,omitempty"`
	TemplateName    string            `json:"template_name,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ScheduledAt     *time.Time        `json:"scheduled_at,omitempty"`
	SendImmediately bool              `json:"send_immediately,omitempty"`
}

// NotificationService is the producer and operator surface of the dispatch
// subsystem: enqueue jobs, inspect them, requeue failures, read the in-app
// inbox, and send the few synchronous transactional emails that cannot wait
// for the next poll tick.
type NotificationService interface {
	// Enqueue validates the request and persists a pending job. Delivery
	// happens asynchronously on the next poll tick.
	Enqueue(ctx context.Context, req EnqueueRequest) (*storage.NotificationJob, error)

	// GetJob returns the job with the given ID.
	GetJob(ctx context.Context, id string) (*storage.NotificationJob, error)

	// RetryJob resets a failed job back to pending so the poller picks it up
	// again. Only failed jobs can be retried.
	RetryJob(ctx context.Context, id string) (*storage.NotificationJob, error)

	// ListInbox returns a user's most recent in-app notifications.
	ListInbox(ctx context.Context, userID string, limit int) ([]storage.InboxNotification, error)

	// MarkInboxRead flags the given inbox entries as read.
	MarkInboxRead(ctx context.Context, userID string, ids []string) error

	// SendVerificationEmail delivers a verification code synchronously.
	SendVerificationEmail(ctx context.Context, to, code string) error

	// SendBookingConfirmation delivers a booking confirmation synchronously,
	// attaching the booking summary when one is provided. If no provider can
	// carry the attachment the email still goes out without it.
	SendBookingConfirmation(ctx context.Context, to string, data map[string]string, attachments []notification.Attachment) error

	// SendPasswordReset delivers a password reset link synchronously.
	SendPasswordReset(ctx context.Context, to, link string) error

	// TestDelivery sends a test email through the configured provider chain
	// so operators can verify credentials.
	TestDelivery(ctx context.Context, to string) error
}

// notificationServiceImpl implements NotificationService.
type notificationServiceImpl struct {
	jobs      storage.JobStore
	inbox     storage.InboxStore
	email     notification.EmailSender
	templates *notification.TemplateRegistry
	events    EventPublisher
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	jobs storage.JobStore,
	inbox storage.InboxStore,
	email notification.EmailSender,
	templates *notification.TemplateRegistry,
	events EventPublisher,
	logger *slog.Logger,
) NotificationService {
	return &notificationServiceImpl{
		jobs:      jobs,
		inbox:     inbox,
		email:     email,
		templates: templates,
		events:    events,
		logger:    logger,
	}
}

// Enqueue validates the request and persists a pending job.
func (s *notificationServiceImpl) Enqueue(ctx context.Context, req EnqueueRequest) (*storage.NotificationJob, error) {
	channels, err := s.validateEnqueue(req)
	if err != nil {
		return nil, err
	}

	job := &storage.NotificationJob{
		BookingID:       req.BookingID,
		TargetUserID:    req.TargetUserID,
		TargetEmail:     req.TargetEmail,
		TargetPhone:     req.TargetPhone,
		Channels:        channels,
		Subject:         req.Subject,
		Message:         req.Message,
		TemplateName:    req.TemplateName,
		Metadata:        req.Metadata,
		ScheduledAt:     req.ScheduledAt,
		SendImmediately: req.SendImmediately || req.ScheduledAt == nil,
	}

	id, err := s.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("creating notification job: %w", err)
	}

	s.logger.Info("notification job enqueued", "job_id", id,
		"channels", job.Channels, "template", job.TemplateName)
	if s.events != nil {
		s.events.Publish(EventJobCreated, map[string]string{"job_id": id})
	}
	return s.jobs.GetJob(ctx, id)
}

// validateEnqueue checks the request at the boundary and returns the
// normalized channel list. Shortcut templates carry their own channel set, so
// the request's channels are optional for them.
func (s *notificationServiceImpl) validateEnqueue(req EnqueueRequest) ([]string, error) {
	if req.TemplateName != "" && s.templates.IsShortcut(req.TemplateName) {
		channels, err := normalizeChannels(req.Channels)
		if err != nil {
			return nil, err
		}
		return channels, nil
	}

	if len(req.Channels) == 0 {
		return nil, &ValidationError{Field: "channels", Message: "at least one channel is required"}
	}
	channels, err := normalizeChannels(req.Channels)
	if err != nil {
		return nil, err
	}
	if req.TemplateName == "" && req.Subject == "" && req.Message == "" {
		return nil, &ValidationError{Field: "message", Message: "subject, message or template_name is required"}
	}
	return channels, nil
}

// normalizeChannels parses and canonicalizes the channel names.
func normalizeChannels(raw []string) ([]string, error) {
	channels := make([]string, 0, len(raw))
	for _, r := range raw {
		ch, err := notification.ParseChannel(r)
		if err != nil {
			return nil, &ValidationError{Field: "channels", Message: err.Error()}
		}
		channels = append(channels, string(ch))
	}
	return channels, nil
}

// GetJob returns the job with the given ID.
func (s *notificationServiceImpl) GetJob(ctx context.Context, id string) (*storage.NotificationJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		if err == storage.ErrJobNotFound {
			return nil, &NotFoundError{Resource: "notification job", ID: id}
		}
		return nil, err
	}
	return job, nil
}

// RetryJob resets a failed job back to pending.
func (s *notificationServiceImpl) RetryJob(ctx context.Context, id string) (*storage.NotificationJob, error) {
	if err := s.jobs.RequeueJob(ctx, id); err != nil {
		switch err {
		case storage.ErrJobNotFound:
			return nil, &NotFoundError{Resource: "notification job", ID: id}
		case storage.ErrJobNotRequeueable:
			return nil, &ValidationError{Field: "status", Message: "only failed jobs can be retried"}
		default:
			return nil, err
		}
	}

	s.logger.Info("notification job requeued", "job_id", id)
	if s.events != nil {
		s.events.Publish(EventJobRequeued, map[string]string{"job_id": id})
	}
	return s.jobs.GetJob(ctx, id)
}

// ListInbox returns a user's most recent in-app notifications.
func (s *notificationServiceImpl) ListInbox(ctx context.Context, userID string, limit int) ([]storage.InboxNotification, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	return s.inbox.ListNotifications(ctx, userID, limit)
}

// MarkInboxRead flags the given inbox entries as read.
func (s *notificationServiceImpl) MarkInboxRead(ctx context.Context, userID string, ids []string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Message: "at least one notification id is required"}
	}
	return s.inbox.MarkRead(ctx, userID, ids)
}

// SendVerificationEmail delivers a verification code synchronously.
func (s *notificationServiceImpl) SendVerificationEmail(ctx context.Context, to, code string) error {
	return s.sendTemplated(ctx, to, notification.TemplateVerificationCode,
		map[string]string{"code": code})
}

// SendBookingConfirmation delivers a booking confirmation, attaching the
// booking summary when provided.
func (s *notificationServiceImpl) SendBookingConfirmation(ctx context.Context, to string, data map[string]string, attachments []notification.Attachment) error {
	if to == "" {
		return &ValidationError{Field: "to", Message: "recipient address is required"}
	}
	subject, body, err := s.templates.Render(notification.TemplateBookingConfirmation, data)
	if err != nil {
		return err
	}
	return s.email.SendWithAttachments(ctx, notification.NewEmailMessage(to, subject, body), attachments)
}

// SendPasswordReset delivers a password reset link synchronously.
func (s *notificationServiceImpl) SendPasswordReset(ctx context.Context, to, link string) error {
	return s.sendTemplated(ctx, to, notification.TemplatePasswordReset,
		map[string]string{"reset_link": link})
}

// TestDelivery sends a test email through the configured provider chain.
func (s *notificationServiceImpl) TestDelivery(ctx context.Context, to string) error {
	if to == "" {
		return &ValidationError{Field: "to", Message: "recipient address is required"}
	}
	return s.email.Send(ctx, notification.NewEmailMessage(to,
		"Rentaro test notification",
		"This is a test notification from Rentaro.\n\nYour email delivery configuration is working correctly."))
}

func (s *notificationServiceImpl) sendTemplated(ctx context.Context, to, templateName string, data map[string]string) error {
	if to == "" {
		return &ValidationError{Field: "to", Message: "recipient address is required"}
	}
	subject, body, err := s.templates.Render(templateName, data)
	if err != nil {
		return err
	}
	return s.email.Send(ctx, notification.NewEmailMessage(to, subject, body))
}
