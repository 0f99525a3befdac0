package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rentaro/notifyd/internal/storage"
)

// ContactResolver resolves the email address or phone number for a job using
// a fixed precedence: linked target user, explicit job override, booking's
// renter, booking's guest. An empty result means the channel is skipped for
// that job.
type ContactResolver struct {
	users    storage.UserDirectory
	bookings storage.BookingDirectory
	logger   *slog.Logger
}

// NewContactResolver creates a ContactResolver over the given directories.
func NewContactResolver(users storage.UserDirectory, bookings storage.BookingDirectory, logger *slog.Logger) *ContactResolver {
	return &ContactResolver{users: users, bookings: bookings, logger: logger}
}

// ResolveUser returns the job's linked target user, or nil when the job has
// no resolvable user. Lookup failures are logged, not fatal: the job simply
// has no user for this pass.
func (r *ContactResolver) ResolveUser(ctx context.Context, job *storage.NotificationJob) *storage.User {
	if job.TargetUserID == "" {
		return nil
	}
	u, err := r.users.GetUser(ctx, job.TargetUserID)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			r.logger.Warn("user lookup failed", "job_id", job.ID,
				"user_id", job.TargetUserID, "error", err)
		}
		return nil
	}
	return u
}

// ResolveEmail returns the first non-empty email for the job, or "" when the
// email channel should be skipped.
func (r *ContactResolver) ResolveEmail(ctx context.Context, job *storage.NotificationJob) string {
	return r.resolve(ctx, job,
		func(u *storage.User) string { return u.Email },
		job.TargetEmail,
		func(b *storage.Booking) string { return b.GuestEmail },
	)
}

// ResolvePhone returns the first non-empty phone number for the job, or ""
// when phone-based channels should be skipped.
func (r *ContactResolver) ResolvePhone(ctx context.Context, job *storage.NotificationJob) string {
	return r.resolve(ctx, job,
		func(u *storage.User) string { return u.Phone },
		job.TargetPhone,
		func(b *storage.Booking) string { return b.GuestPhone },
	)
}

func (r *ContactResolver) resolve(
	ctx context.Context,
	job *storage.NotificationJob,
	userField func(*storage.User) string,
	override string,
	guestField func(*storage.Booking) string,
) string {
	// 1. The linked target user's own contact field.
	if u := r.ResolveUser(ctx, job); u != nil {
		if v := userField(u); v != "" {
			return v
		}
	}

	// 2. The job's explicit override.
	if override != "" {
		return override
	}

	if job.BookingID == "" {
		return ""
	}
	b, err := r.bookings.GetBooking(ctx, job.BookingID)
	if err != nil {
		if !errors.Is(err, storage.ErrBookingNotFound) {
			r.logger.Warn("booking lookup failed", "job_id", job.ID,
				"booking_id", job.BookingID, "error", err)
		}
		return ""
	}

	// 3. The booking's renter.
	if b.RenterUserID != "" {
		if u, err := r.users.GetUser(ctx, b.RenterUserID); err == nil {
			if v := userField(u); v != "" {
				return v
			}
		}
	}

	// 4. The booking's guest contact fields.
	return guestField(b)
}
