package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rentaro/notifyd/internal/storage"
)

// The directory endpoints let the marketplace platform push its user and
// booking read models into the dispatch service so contact resolution has
// current data. The path ID is authoritative; any ID in the body is ignored.

type userPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// handleUpsertUser creates or replaces a user read-model row.
func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req userPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	u := &storage.User{
		ID:        id,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.users.UpsertUser(r.Context(), u); err != nil {
		s.logger.Error("upsert user failed", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store user")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type bookingPayload struct {
	RenterUserID string `json:"renter_user_id"`
	GuestName    string `json:"guest_name"`
	GuestEmail   string `json:"guest_email"`
	GuestPhone   string `json:"guest_phone"`
}

// handleUpsertBooking creates or replaces a booking read-model row.
func (s *Server) handleUpsertBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	b := &storage.Booking{
		ID:           id,
		RenterUserID: req.RenterUserID,
		GuestName:    req.GuestName,
		GuestEmail:   req.GuestEmail,
		GuestPhone:   req.GuestPhone,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.bookings.UpsertBooking(r.Context(), b); err != nil {
		s.logger.Error("upsert booking failed", "booking_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store booking")
		return
	}
	writeJSON(w, http.StatusOK, b)
}
