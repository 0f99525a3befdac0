// Package api implements the REST surface of the notification service:
// job enqueue and inspection for producers, retry for operators, the per-user
// inbox, synchronous transactional emails and the directory sync endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentaro/notifyd/internal/service"
	"github.com/rentaro/notifyd/internal/storage"
)

const errInvalidJSONBody = "invalid JSON body"

// Server holds all dependencies for the REST API handlers.
type Server struct {
	notificationSvc service.NotificationService
	users           storage.UserDirectory
	bookings        storage.BookingDirectory
	logger          *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(
	notificationSvc service.NotificationService,
	users storage.UserDirectory,
	bookings storage.BookingDirectory,
	logger *slog.Logger,
) *Server {
	return &Server{
		notificationSvc: notificationSvc,
		users:           users,
		bookings:        bookings,
		logger:          logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Notification jobs
	r.Post("/notifications", s.handleEnqueueNotification)
	r.Get("/notifications/{id}", s.handleGetNotification)
	r.Post("/notifications/{id}/retry", s.handleRetryNotification)
	r.Post("/notifications/test", s.handleTestDelivery)

	// Synchronous transactional emails
	r.Post("/emails/verification", s.handleSendVerification)
	r.Post("/emails/booking-confirmation", s.handleSendBookingConfirmation)
	r.Post("/emails/password-reset", s.handleSendPasswordReset)

	// In-app inbox
	r.Get("/inbox/{userID}", s.handleListInbox)
	r.Post("/inbox/{userID}/read", s.handleMarkInboxRead)

	// Directory read-model sync
	r.Put("/directory/users/{id}", s.handleUpsertUser)
	r.Put("/directory/bookings/{id}", s.handleUpsertBooking)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
