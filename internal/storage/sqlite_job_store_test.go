package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentaro/notifyd/internal/storage"
)

func newTestDB(t *testing.T) *storage.SQLiteJobStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLiteJobStore(db)
}

func TestSQLiteJobStore_CreateForcesPending(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	job := &storage.NotificationJob{
		Channels:        []string{"email"},
		Subject:         "Hi",
		Message:         "Body",
		Status:          storage.JobStatusSent, // must be overridden
		Attempts:        7,
		SendImmediately: true,
	}
	id, err := store.CreateJob(ctx, job)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, []string{"email"}, got.Channels)
	assert.False(t, got.CreatedAt.After(got.UpdatedAt))
	assert.Nil(t, got.LastAttemptAt)
}

func TestSQLiteJobStore_GetJobNotFound(t *testing.T) {
	store := newTestDB(t)
	_, err := store.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrJobNotFound)
}

func TestSQLiteJobStore_ClaimDueJobs(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	immediate := &storage.NotificationJob{Channels: []string{"email"}, SendImmediately: true}
	scheduledDue := &storage.NotificationJob{Channels: []string{"email"}, ScheduledAt: &past}
	scheduledFuture := &storage.NotificationJob{Channels: []string{"email"}, ScheduledAt: &future}

	immediateID, err := store.CreateJob(ctx, immediate)
	require.NoError(t, err)
	dueID, err := store.CreateJob(ctx, scheduledDue)
	require.NoError(t, err)
	futureID, err := store.CreateJob(ctx, scheduledFuture)
	require.NoError(t, err)

	claimed, err := store.ClaimDueJobs(ctx, 50, now)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Past scheduled_at sorts before the just-created immediate job.
	assert.Equal(t, dueID, claimed[0].ID)
	assert.Equal(t, immediateID, claimed[1].ID)
	for _, j := range claimed {
		assert.Equal(t, storage.JobStatusQueued, j.Status)
	}

	// The future job is untouched and becomes claimable at its eligible time.
	got, err := store.GetJob(ctx, futureID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusPending, got.Status)

	claimed, err = store.ClaimDueJobs(ctx, 50, future)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, futureID, claimed[0].ID)
}

func TestSQLiteJobStore_ClaimIsExclusive(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	_, err := store.CreateJob(ctx, &storage.NotificationJob{
		Channels: []string{"email"}, SendImmediately: true,
	})
	require.NoError(t, err)

	first, err := store.ClaimDueJobs(ctx, 50, time.Now())
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A second claim pass finds nothing: the job is queued, not pending.
	second, err := store.ClaimDueJobs(ctx, 50, time.Now())
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestSQLiteJobStore_ClaimRespectsLimit(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.CreateJob(ctx, &storage.NotificationJob{
			Channels: []string{"email"}, SendImmediately: true,
		})
		require.NoError(t, err)
	}

	claimed, err := store.ClaimDueJobs(ctx, 3, time.Now())
	require.NoError(t, err)
	assert.Len(t, claimed, 3)

	rest, err := store.ClaimDueJobs(ctx, 3, time.Now())
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestSQLiteJobStore_MarkJobResult(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, &storage.NotificationJob{
		Channels: []string{"email"}, SendImmediately: true,
	})
	require.NoError(t, err)

	attemptedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.MarkJobResult(ctx, id, storage.JobStatusSent, 1, attemptedAt))

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusSent, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.LastAttemptAt)
	assert.WithinDuration(t, attemptedAt, *got.LastAttemptAt, time.Second)

	assert.ErrorIs(t, store.MarkJobResult(ctx, "missing", storage.JobStatusFailed, 1, attemptedAt),
		storage.ErrJobNotFound)
}

func TestSQLiteJobStore_RequeueJob(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, &storage.NotificationJob{
		Channels: []string{"email"}, SendImmediately: true,
	})
	require.NoError(t, err)

	// Pending jobs cannot be requeued.
	assert.ErrorIs(t, store.RequeueJob(ctx, id), storage.ErrJobNotRequeueable)

	require.NoError(t, store.MarkJobResult(ctx, id, storage.JobStatusFailed, 1, time.Now()))
	require.NoError(t, store.RequeueJob(ctx, id))

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusPending, got.Status)

	assert.ErrorIs(t, store.RequeueJob(ctx, "missing"), storage.ErrJobNotFound)
}

func TestSQLiteJobStore_MetadataRoundTrip(t *testing.T) {
	store := newTestDB(t)
	ctx := context.Background()

	id, err := store.CreateJob(ctx, &storage.NotificationJob{
		Channels:        []string{"email", "chat-messaging"},
		TemplateName:    "pickup-reminder",
		Metadata:        map[string]string{"renter_name": "Ada", "vehicle_name": "Kombi"},
		SendImmediately: true,
	})
	require.NoError(t, err)

	got, err := store.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pickup-reminder", got.TemplateName)
	assert.Equal(t, "Ada", got.Metadata["renter_name"])
	assert.Equal(t, []string{"email", "chat-messaging"}, got.Channels)
}
