package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteJobStore implements JobStore backed by SQLite.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewSQLiteJobStore returns a new SQLiteJobStore.
func NewSQLiteJobStore(db *sql.DB) *SQLiteJobStore {
	return &SQLiteJobStore{db: db}
}

// CreateJob inserts a new job with a fresh UUID and status forced to pending.
func (s *SQLiteJobStore) CreateJob(ctx context.Context, job *NotificationJob) (string, error) {
	now := time.Now().UTC()
	job.ID = uuid.NewString()
	job.Status = JobStatusPending
	job.Attempts = 0
	job.LastAttemptAt = nil
	job.CreatedAt = now
	job.UpdatedAt = now

	channels, err := json.Marshal(job.Channels)
	if err != nil {
		return "", fmt.Errorf("encoding channels: %w", err)
	}
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_jobs
			(id, booking_id, target_user_id, target_email, target_phone,
			 channels, subject, message, template_name, metadata,
			 scheduled_at, send_immediately, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		job.ID, job.BookingID, job.TargetUserID, job.TargetEmail, job.TargetPhone,
		string(channels), job.Subject, job.Message, job.TemplateName, string(metadata),
		nullableTime(job.ScheduledAt), job.SendImmediately, job.Status,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting notification job: %w", err)
	}
	return job.ID, nil
}

const jobColumns = `id, booking_id, target_user_id, target_email, target_phone,
	channels, subject, message, template_name, metadata,
	scheduled_at, send_immediately, status, attempts, last_attempt_at,
	created_at, updated_at`

// GetJob returns the job with the given ID.
func (s *SQLiteJobStore) GetJob(ctx context.Context, id string) (*NotificationJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM notification_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification job: %w", err)
	}
	return job, nil
}

// ClaimDueJobs selects due pending jobs in deterministic order and claims each
// one with a conditional update. A row that is no longer pending by the time
// the update runs (another poller won) is silently skipped.
func (s *SQLiteJobStore) ClaimDueJobs(ctx context.Context, limit int, now time.Time) ([]*NotificationJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM notification_jobs
		WHERE status = 'pending'
		  AND (send_immediately = 1 OR (scheduled_at IS NOT NULL AND scheduled_at <= ?))
		ORDER BY COALESCE(scheduled_at, created_at) ASC, created_at ASC, id ASC
		LIMIT ?`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying due jobs: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	var due []*NotificationJob
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning due job: %w", scanErr)
		}
		due = append(due, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating due jobs: %w", err)
	}

	claimed := make([]*NotificationJob, 0, len(due))
	for _, job := range due {
		res, err := s.db.ExecContext(ctx, `
			UPDATE notification_jobs
			SET status = 'queued', updated_at = ?
			WHERE id = ? AND status = 'pending'`,
			now.UTC(), job.ID)
		if err != nil {
			return claimed, fmt.Errorf("claiming job %s: %w", job.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return claimed, fmt.Errorf("claiming job %s: %w", job.ID, err)
		}
		if n == 0 {
			continue // claimed elsewhere in the meantime
		}
		job.Status = JobStatusQueued
		job.UpdatedAt = now.UTC()
		claimed = append(claimed, job)
	}
	return claimed, nil
}

// MarkJobResult records the terminal outcome of one processing pass.
func (s *SQLiteJobStore) MarkJobResult(ctx context.Context, id string, status JobStatus, attempts int, attemptedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = ?, attempts = ?, last_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		status, attempts, attemptedAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating job result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating job result: %w", err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

// RequeueJob resets a failed job back to pending for another processing pass.
func (s *SQLiteJobStore) RequeueJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = 'pending', updated_at = ?
		WHERE id = ? AND status = 'failed'`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("requeueing job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("requeueing job: %w", err)
	}
	if n == 0 {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return ErrJobNotRequeueable
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanJob.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (*NotificationJob, error) {
	var (
		job            NotificationJob
		channels, meta string
		scheduledAt    sql.NullTime
		lastAttemptAt  sql.NullTime
	)
	err := sc.Scan(&job.ID, &job.BookingID, &job.TargetUserID, &job.TargetEmail,
		&job.TargetPhone, &channels, &job.Subject, &job.Message,
		&job.TemplateName, &meta, &scheduledAt, &job.SendImmediately,
		&job.Status, &job.Attempts, &lastAttemptAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(channels), &job.Channels); err != nil {
		return nil, fmt.Errorf("decoding channels: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &job.Metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time.UTC()
		job.ScheduledAt = &t
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time.UTC()
		job.LastAttemptAt = &t
	}
	return &job, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
