package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hferris/lumen/internal/auth"
	"github.com/hferris/lumen/internal/email"
	"github.com/hferris/lumen/internal/model"
	"github.com/hferris/lumen/internal/push"
	"github.com/hferris/lumen/internal/store"
	"github.com/hferris/lumen/internal/websocket"
)

type BookingHandler struct {
	bookings *store.BookingStore
	clients  *store.ClientStore
	settings *store.SettingsStore
	hub      *websocket.Hub
	mailer   *email.Client
	notifier *push.Scheduler
	logger   *slog.Logger
}

func NewBookingHandler(bs *store.BookingStore, cs *store.ClientStore, ss *store.SettingsStore, hub *websocket.Hub, mailer *email.Client, notifier *push.Scheduler, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bs,
		clients:  cs,
		settings: ss,
		hub:      hub,
		mailer:   mailer,
		notifier: notifier,
		logger:   logger,
	}
}

type bookingRequest struct {
	ClientID    *int64    `json:"client_id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

func (req *bookingRequest) validate() string {
	req.Summary = strings.TrimSpace(req.Summary)
	if req.Summary == "" {
		return "summary is required"
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return "start_time and end_time are required"
	}
	if !req.EndTime.After(req.StartTime) {
		return "end_time must be after start_time"
	}
	return ""
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListByAccount(auth.AccountID(r.Context()))
	if err != nil {
		h.logger.Error("list bookings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ClientID != nil && !h.ownsClient(accountID, *req.ClientID) {
		writeError(w, http.StatusBadRequest, "unknown client")
		return
	}

	date := req.StartTime.UTC().Format("2006-01-02")
	b, err := h.bookings.Create(accountID, req.ClientID, req.Summary, req.Description, date, req.StartTime.UTC(), req.EndTime.UTC())
	if err != nil {
		h.logger.Error("create booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	h.hub.Broadcast(accountID, websocket.NewMessage("booking", "created", b.ID, nil))
	h.notifier.NotifyBookingCreated(accountID, b)
	h.sendConfirmation(accountID, b)

	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b := h.load(w, r)
	if b == nil {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())
	existing := h.load(w, r)
	if existing == nil {
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.ClientID != nil && !h.ownsClient(accountID, *req.ClientID) {
		writeError(w, http.StatusBadRequest, "unknown client")
		return
	}

	date := req.StartTime.UTC().Format("2006-01-02")
	b, err := h.bookings.Update(existing.ID, req.ClientID, req.Summary, req.Description, date, req.StartTime.UTC(), req.EndTime.UTC())
	if err != nil {
		h.logger.Error("update booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update booking")
		return
	}

	h.hub.Broadcast(accountID, websocket.NewMessage("booking", "updated", b.ID, nil))
	writeJSON(w, http.StatusOK, b)
}

// Cancel marks the booking canceled. The calendar event is not touched
// here: the next sync run removes it as an orphan.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())
	b := h.load(w, r)
	if b == nil {
		return
	}

	if err := h.bookings.SetStatus(b.ID, model.BookingCanceled); err != nil {
		h.logger.Error("cancel booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}

	h.hub.Broadcast(accountID, websocket.NewMessage("booking", "canceled", b.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": model.BookingCanceled})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountID(r.Context())
	b := h.load(w, r)
	if b == nil {
		return
	}

	if err := h.bookings.Delete(b.ID); err != nil {
		h.logger.Error("delete booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete booking")
		return
	}

	h.hub.Broadcast(accountID, websocket.NewMessage("booking", "deleted", b.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the booking from the path id and enforces account ownership.
// On failure it writes the error response and returns nil.
func (h *BookingHandler) load(w http.ResponseWriter, r *http.Request) *model.Booking {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	b, err := h.bookings.GetByID(id)
	if err != nil {
		h.logger.Error("get booking", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get booking")
		return nil
	}
	if b == nil || b.AccountID != auth.AccountID(r.Context()) {
		writeError(w, http.StatusNotFound, "booking not found")
		return nil
	}
	return b
}

func (h *BookingHandler) ownsClient(accountID, clientID int64) bool {
	c, err := h.clients.GetByID(clientID)
	return err == nil && c != nil && c.AccountID == accountID
}

func (h *BookingHandler) sendConfirmation(accountID int64, b *model.Booking) {
	if !h.mailer.Configured() || b.ClientID == nil {
		return
	}
	c, err := h.clients.GetByID(*b.ClientID)
	if err != nil || c == nil || c.Email == "" {
		return
	}
	studioName, _ := h.settings.Get(accountID, store.SettingStudioName, "")
	if err := h.mailer.SendBookingConfirmation(c.Email, c.Name, studioName, b); err != nil {
		h.logger.Error("send booking confirmation", "booking_id", b.ID, "error", err)
	}
}
