package storage

import (
	"context"
	"errors"
	"time"
)

// JobStatus is the lifecycle state of a NotificationJob.
//
// Status only moves forward: pending → queued → sent|failed. There is no
// automatic edge back to pending; RequeueJob exists for explicit operator
// intervention only.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusQueued  JobStatus = "queued"
	JobStatusSent    JobStatus = "sent"
	JobStatusFailed  JobStatus = "failed"
)

// ErrJobNotFound is returned when a job lookup matches no row.
var ErrJobNotFound = errors.New("notification job not found")

// ErrJobNotRequeueable is returned when RequeueJob targets a job that is not
// in the failed state.
var ErrJobNotRequeueable = errors.New("only failed jobs can be requeued")

// NotificationJob is one notification intent, possibly multi-channel.
// BookingID and TargetUserID are optional references used for contact and
// context resolution; TargetEmail/TargetPhone are explicit overrides for
// guests with no user record.
type NotificationJob struct {
	ID              string            `json:"id"`
	BookingID       string            `json:"booking_id,omitempty"`
	TargetUserID    string            `json:"target_user_id,omitempty"`
	TargetEmail     string            `json:"target_email,omitempty"`
	TargetPhone     string            `json:"target_phone,omitempty"`
	Channels        []string          `json:"channels"`
	Subject         string            `json:"subject"`
	Message         string            `json:"message"`
	TemplateName    string            `json:"template_name,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ScheduledAt     *time.Time        `json:"scheduled_at,omitempty"`
	SendImmediately bool              `json:"send_immediately"`
	Status          JobStatus         `json:"status"`
	Attempts        int               `json:"attempts"`
	LastAttemptAt   *time.Time        `json:"last_attempt_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// JobStore persists notification jobs.
type JobStore interface {
	// CreateJob assigns an ID, forces status=pending, stamps created/updated
	// timestamps, persists the job and returns the assigned ID. No
	// deduplication is performed; producers must not double-enqueue.
	CreateJob(ctx context.Context, job *NotificationJob) (string, error)

	// GetJob returns the job with the given ID, or ErrJobNotFound.
	GetJob(ctx context.Context, id string) (*NotificationJob, error)

	// ClaimDueJobs atomically moves up to limit due pending jobs to queued and
	// returns them. A job is due when send_immediately is set or scheduled_at
	// <= now. Ordering: COALESCE(scheduled_at, created_at) ASC, created_at
	// ASC, id ASC. The claim is conditional on status still being pending, so
	// two pollers cannot claim the same job twice.
	ClaimDueJobs(ctx context.Context, limit int, now time.Time) ([]*NotificationJob, error)

	// MarkJobResult records the outcome of one processing pass: terminal
	// status, attempt counter and last attempt timestamp.
	MarkJobResult(ctx context.Context, id string, status JobStatus, attempts int, attemptedAt time.Time) error

	// RequeueJob resets a failed job back to pending. This is an explicit
	// operator action, not part of the automatic lifecycle.
	RequeueJob(ctx context.Context, id string) error
}
