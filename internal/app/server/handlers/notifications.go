package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ordercast/internal/core/domain"
	"ordercast/internal/core/services"
	"ordercast/pkg/logging"
)

const maxBody = 64 * 1024

type NotificationHandler struct {
	notifications services.INotificationService
	rooms         services.IRoomService
}

func NewNotificationHandler(n services.INotificationService, rooms services.IRoomService) *NotificationHandler {
	return &NotificationHandler{notifications: n, rooms: rooms}
}

// Create publishes a new-order notification to every admin.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	var n domain.Notification
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&n); err != nil {
		log.WarnContext(r.Context(), "notification handler - create - bad request", logging.Err(err))
		writeError(w, http.StatusBadRequest, "bad_request", "invalid notification body")
		return
	}
	if err := h.notifications.PublishNewOrder(r.Context(), &n); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = v
	}
	out, err := h.notifications.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkSeen(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateOrder forwards the request body untouched to the table's room.
func (h *NotificationHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		log.WarnContext(r.Context(), "notification handler - order update - read failed", logging.Err(err))
		writeError(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	if err := h.notifications.PublishOrderUpdate(r.Context(), chi.URLParam(r, "tableId"), body); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *NotificationHandler) Presence(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	ids, err := h.rooms.Online(r.Context(), room)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": room, "online": ids, "local": h.rooms.Local(room)})
}
