package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/whatsapp"
)

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":      "healthy",
		"whatsapp":    "not configured",
		"queue_depth": len(s.msgChan),
	}
	if s.sender != nil && s.sender.IsConfigured() {
		status["whatsapp"] = "configured"
	}
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	respondJSON(w, code, status)
}

// Meta webhook

// handleWebhookVerify answers Meta's subscription handshake.
func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	respondError(w, http.StatusForbidden, "verification failed")
}

// handleWebhookReceive enqueues inbound guest messages. It always returns
// 200: a non-2xx makes Meta retry the delivery and eventually disable the
// webhook, and the dedup table already absorbs retries.
func (s *Server) handleWebhookReceive(w http.ResponseWriter, r *http.Request) {
	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fmt.Printf("Warning: unparsable webhook payload: %v\n", err)
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	for _, msg := range payload.ExtractMessages() {
		select {
		case s.msgChan <- msg:
		default:
			fmt.Printf("Warning: message queue full, dropping message from %s\n", msg.Phone)
			if s.sender != nil && s.sender.IsConfigured() {
				go func(phone string) {
					_ = s.sender.SendText(r.Context(), phone,
						"We're a bit busy right now. Please send that again in a minute.")
				}(msg.Phone)
			}
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// Staff dashboard

func (s *Server) handlePendingBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.manager.PendingBookings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list pending bookings: %v", err))
		return
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

type reviewRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")

	var req reviewRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b, err := s.manager.Approve(r.Context(), bookingID, req.Notes)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("booking %s not found", bookingID))
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("approve failed: %v", err))
		return
	}

	if _, err := s.db.AddNotification(database.NotificationBookingApproved, b.ID,
		fmt.Sprintf("Booking %s approved for %s", b.ID, b.CustomerName)); err != nil {
		fmt.Printf("Warning: failed to record approval notification: %v\n", err)
	}
	s.notifyGuest(r, b.Phone, fmt.Sprintf(
		"Good news! Your booking %s is confirmed: %s, %s to %s. We look forward to hosting you.",
		b.ID, b.RoomName, booking.FormatDate(b.CheckIn), booking.FormatDate(b.CheckOut)))

	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "approved", "booking": b})
}

func (s *Server) handleRejectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := r.PathValue("id")

	var req reviewRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b, err := s.manager.Reject(r.Context(), bookingID, req.Notes)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("booking %s not found", bookingID))
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("reject failed: %v", err))
		return
	}

	if _, err := s.db.AddNotification(database.NotificationBookingRejected, b.ID,
		fmt.Sprintf("Booking %s rejected", b.ID)); err != nil {
		fmt.Printf("Warning: failed to record rejection notification: %v\n", err)
	}
	reason := req.Notes
	if reason == "" {
		reason = "we couldn't accommodate the requested dates"
	}
	s.notifyGuest(r, b.Phone, fmt.Sprintf(
		"We're sorry, your booking %s couldn't be confirmed: %s. Reply here if you'd like to try different dates.",
		b.ID, reason))

	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "rejected", "booking": b})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := s.db.Notifications(limit, unreadOnly)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list notifications: %v", err))
		return
	}
	if notifications == nil {
		notifications = []database.Notification{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.db.MarkNotificationRead(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sendTestRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// handleSendTest lets staff verify the WhatsApp sender configuration by
// messaging themselves.
func (s *Server) handleSendTest(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil || !s.sender.IsConfigured() {
		respondError(w, http.StatusServiceUnavailable, "whatsapp sender is not configured")
		return
	}

	var req sendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if req.Message == "" {
		req.Message = "Test message from the booking assistant."
	}

	if err := s.sender.SendText(r.Context(), req.Phone, req.Message); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("send failed: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent", "phone": req.Phone})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Rebuild(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("reindex failed: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

// notifyGuest sends a WhatsApp update about a review decision, logging
// rather than failing the request when delivery breaks.
func (s *Server) notifyGuest(r *http.Request, phone, text string) {
	if s.sender == nil || !s.sender.IsConfigured() || phone == "" {
		return
	}
	if err := s.sender.SendText(r.Context(), phone, text); err != nil {
		fmt.Printf("Warning: failed to notify guest %s: %v\n", phone, err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("Error encoding JSON response: %v\n", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
