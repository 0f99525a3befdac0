package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rentaro/notifyd/internal/notification"
	"github.com/rentaro/notifyd/internal/service"
)

// handleEnqueueNotification creates a new notification job. Delivery happens
// asynchronously on the next poll tick.
func (s *Server) handleEnqueueNotification(w http.ResponseWriter, r *http.Request) {
	var req service.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	job, err := s.notificationSvc.Enqueue(r.Context(), req)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("enqueue notification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue notification")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// handleGetNotification returns a notification job by ID.
func (s *Server) handleGetNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.notificationSvc.GetJob(r.Context(), id)
	if err != nil {
		var nfe *service.NotFoundError
		if errors.As(err, &nfe) {
			writeError(w, http.StatusNotFound, nfe.Error())
			return
		}
		s.logger.Error("get notification failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get notification")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleRetryNotification resets a failed job back to pending.
func (s *Server) handleRetryNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.notificationSvc.RetryJob(r.Context(), id)
	if err != nil {
		var ve *service.ValidationError
		var nfe *service.NotFoundError
		switch {
		case errors.As(err, &nfe):
			writeError(w, http.StatusNotFound, nfe.Error())
		case errors.As(err, &ve):
			writeError(w, http.StatusConflict, ve.Error())
		default:
			s.logger.Error("retry notification failed", "job_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to retry notification")
		}
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleTestDelivery sends a test email through the provider chain so
// operators can verify credentials.
func (s *Server) handleTestDelivery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	if err := s.notificationSvc.TestDelivery(r.Context(), req.To); err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSendVerification sends a verification code email synchronously.
func (s *Server) handleSendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To   string `json:"to"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	s.sendSync(w, func() error {
		return s.notificationSvc.SendVerificationEmail(r.Context(), req.To, req.Code)
	})
}

type attachmentPayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"` // base64 in JSON
}

// handleSendBookingConfirmation sends a booking confirmation email, optionally
// with the booking summary attached.
func (s *Server) handleSendBookingConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To          string              `json:"to"`
		Data        map[string]string   `json:"data"`
		Attachments []attachmentPayload `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	attachments := make([]notification.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, notification.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Data:        a.Data,
		})
	}

	s.sendSync(w, func() error {
		return s.notificationSvc.SendBookingConfirmation(r.Context(), req.To, req.Data, attachments)
	})
}

// handleSendPasswordReset sends a password reset email synchronously.
func (s *Server) handleSendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		To   string `json:"to"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	s.sendSync(w, func() error {
		return s.notificationSvc.SendPasswordReset(r.Context(), req.To, req.Link)
	})
}

// sendSync runs a synchronous send and maps its outcome to a response.
func (s *Server) sendSync(w http.ResponseWriter, send func() error) {
	if err := send(); err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("synchronous send failed", "error", err)
		writeError(w, http.StatusBadGateway, "email delivery failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// handleListInbox returns a user's most recent in-app notifications.
// Accepts an optional ?limit=N query parameter (default 50).
func (s *Server) handleListInbox(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.notificationSvc.ListInbox(r.Context(), userID, limit)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("list inbox failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list inbox")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleMarkInboxRead flags inbox entries as read.
func (s *Server) handleMarkInboxRead(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	if err := s.notificationSvc.MarkInboxRead(r.Context(), userID, req.IDs); err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		s.logger.Error("mark inbox read failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
