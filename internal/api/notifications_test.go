package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentaro/notifyd/internal/api"
	"github.com/rentaro/notifyd/internal/notification"
	"github.com/rentaro/notifyd/internal/service"
	"github.com/rentaro/notifyd/internal/storage"
)

type stubEmailSender struct {
	sendErr error
	sent    []notification.Message
}

func (s *stubEmailSender) Send(_ context.Context, msg notification.Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubEmailSender) SendWithAttachments(ctx context.Context, msg notification.Message, _ []notification.Attachment) error {
	return s.Send(ctx, msg)
}

type apiFixture struct {
	router *chi.Mux
	jobs   storage.JobStore
	inbox  storage.InboxStore
	email  *stubEmailSender
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := storage.NewSQLiteJobStore(db)
	inbox := storage.NewSQLiteInboxStore(db)
	dir := storage.NewSQLiteDirectory(db)
	email := &stubEmailSender{}

	svc := service.NewNotificationService(jobs, inbox, email,
		notification.NewTemplateRegistry(), nil, logger)

	router := chi.NewRouter()
	api.New(svc, dir, dir, logger).Mount(router)

	return &apiFixture{router: router, jobs: jobs, inbox: inbox, email: email}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJob(t *testing.T, rec *httptest.ResponseRecorder) storage.NotificationJob {
	t.Helper()
	var job storage.NotificationJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	return job
}

func TestEnqueueNotificationEndpoint(t *testing.T) {
	t.Run("creates a pending job", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/notifications", map[string]any{
			"target_email": "renter@example.com",
			"channels":     []string{"email"},
			"subject":      "Booking update",
			"message":      "Your booking changed",
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		job := decodeJob(t, rec)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, storage.JobStatusPending, job.Status)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		f := newAPIFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/notifications", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation errors map to 400", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/notifications", map[string]any{
			"subject": "s", "message": "m",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "channels")
	})
}

func TestGetAndRetryNotificationEndpoints(t *testing.T) {
	t.Run("get by id", func(t *testing.T) {
		f := newAPIFixture(t)

		created := decodeJob(t, f.do(t, http.MethodPost, "/notifications", map[string]any{
			"target_email": "a@example.com", "channels": []string{"email"},
			"subject": "s", "message": "m",
		}))

		rec := f.do(t, http.MethodGet, "/notifications/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, created.ID, decodeJob(t, rec).ID)
	})

	t.Run("unknown id maps to 404", func(t *testing.T) {
		f := newAPIFixture(t)
		rec := f.do(t, http.MethodGet, "/notifications/missing", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("retry a failed job", func(t *testing.T) {
		f := newAPIFixture(t)

		created := decodeJob(t, f.do(t, http.MethodPost, "/notifications", map[string]any{
			"target_email": "a@example.com", "channels": []string{"email"},
			"subject": "s", "message": "m",
		}))
		require.NoError(t, f.jobs.MarkJobResult(context.Background(), created.ID,
			storage.JobStatusFailed, 1, time.Now().UTC()))

		rec := f.do(t, http.MethodPost, "/notifications/"+created.ID+"/retry", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, storage.JobStatusPending, decodeJob(t, rec).Status)
	})

	t.Run("retry of a pending job maps to 409", func(t *testing.T) {
		f := newAPIFixture(t)

		created := decodeJob(t, f.do(t, http.MethodPost, "/notifications", map[string]any{
			"target_email": "a@example.com", "channels": []string{"email"},
			"subject": "s", "message": "m",
		}))

		rec := f.do(t, http.MethodPost, "/notifications/"+created.ID+"/retry", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestInboxEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	n, err := f.inbox.AddNotification(ctx, "u1", "Booking update", "see app")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/inbox/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []storage.InboxNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Read)

	rec = f.do(t, http.MethodPost, "/inbox/u1/read", map[string]any{"ids": []string{n.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/inbox/u1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.True(t, entries[0].Read)

	rec = f.do(t, http.MethodPost, "/inbox/u1/read", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSynchronousEmailEndpoints(t *testing.T) {
	t.Run("verification email", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/emails/verification", map[string]any{
			"to": "a@example.com", "code": "482913",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, f.email.sent, 1)
		assert.Contains(t, f.email.sent[0].Body, "482913")
	})

	t.Run("booking confirmation with attachment", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/emails/booking-confirmation", map[string]any{
			"to":   "a@example.com",
			"data": map[string]string{"renter_name": "Mara", "vehicle_name": "VW Transporter"},
			"attachments": []map[string]any{{
				"filename":     "summary.pdf",
				"content_type": "application/pdf",
				"data":         []byte("pdf"),
			}},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Len(t, f.email.sent, 1)
		assert.Contains(t, f.email.sent[0].Subject, "VW Transporter")
	})

	t.Run("missing recipient maps to 400", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/emails/password-reset", map[string]any{
			"link": "https://rentaro.example/reset/abc",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delivery failure maps to 502", func(t *testing.T) {
		f := newAPIFixture(t)
		f.email.sendErr = context.DeadlineExceeded

		rec := f.do(t, http.MethodPost, "/notifications/test", map[string]any{"to": "a@example.com"})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestDirectoryEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/directory/users/u1", map[string]any{
		"name": "Mara", "email": "mara@example.com", "phone": "+4915100000001",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/directory/bookings/b1", map[string]any{
		"renter_user_id": "u1", "guest_email": "guest@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The pushed read model must feed contact resolution end to end: enqueue
	// a booking-scoped job and check it resolves via the directory.
	created := decodeJob(t, f.do(t, http.MethodPost, "/notifications", map[string]any{
		"booking_id": "b1", "channels": []string{"email"},
		"subject": "s", "message": "m",
	}))
	assert.Equal(t, "b1", created.BookingID)
}
