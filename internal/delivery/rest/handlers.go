package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uint, query domain.NotificationQuery) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID uint, notificationID uint, readAt time.Time) error
	MarkUnread(ctx context.Context, userID uint, notificationID uint) error
}

// HealthCheck reports the state of one dependency.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	passes        usecase.PassRunner
	notifications NotificationStore
	feed          domain.NotificationFeed
	checks        map[string]HealthCheck
	clock         func() time.Time
	logger        *zap.Logger
}

// NewHandlers builds the API handlers. feed may be nil, in which case the stream endpoint returns 503.
func NewHandlers(passes usecase.PassRunner, notifications NotificationStore, feed domain.NotificationFeed, checks map[string]HealthCheck, logger *zap.Logger) *Handlers {
	return &Handlers{
		passes:        passes,
		notifications: notifications,
		feed:          feed,
		checks:        checks,
		clock:         time.Now,
		logger:        logger,
	}
}

// HandleRunPass runs one pass synchronously. POST /api/v1/passes[?now=RFC3339]
// The pass time may also be sent as {"now": ...}; the query parameter wins.
func (h *Handlers) HandleRunPass(w http.ResponseWriter, r *http.Request) {
	var req RunPassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	now := h.clock().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}
	if raw := r.URL.Query().Get("now"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "Query parameter 'now' must be an RFC3339 timestamp")
			return
		}
		now = parsed.UTC()
	}

	summary, err := h.passes.Run(r.Context(), now)
	if err != nil {
		h.logger.Error("pass failed", zap.Error(err))
		WriteJSONError(w, http.StatusInternalServerError, "Pass failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, summary)
}

// HandleListNotifications GET /api/v1/users/{userID}/notifications
func (h *Handlers) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive number")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "Query parameter 'unread' must be true or false")
			return
		}
		unreadOnly = v
	}

	notifications, err := h.notifications.ListByUser(r.Context(), userID, domain.NotificationQuery{Limit: limit, UnreadOnly: unreadOnly})
	if err != nil {
		h.logger.Error("list notifications failed", zap.Uint("user_id", userID), zap.Error(err))
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load notifications")
		return
	}
	RespondWithJSON(w, http.StatusOK, NotificationsResponse{UserID: userID, Notifications: toNotificationDTOs(notifications)})
}

// HandleUpdateNotification sets the read state of one of the user's notifications.
// PATCH /api/v1/users/{userID}/notifications/{notificationID}
func (h *Handlers) HandleUpdateNotification(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}
	notificationID, err := strconv.ParseUint(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || notificationID == 0 {
		WriteJSONError(w, http.StatusBadRequest, "Invalid notification id")
		return
	}

	var req UpdateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Read == nil {
		WriteJSONError(w, http.StatusBadRequest, "Field 'read' is required")
		return
	}

	id := uint(notificationID)
	if *req.Read {
		err = h.notifications.MarkRead(r.Context(), userID, id, h.clock().UTC())
	} else {
		err = h.notifications.MarkUnread(r.Context(), userID, id)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			WriteJSONError(w, http.StatusNotFound, "Notification not found")
			return
		}
		h.logger.Error("update notification failed", zap.Uint("user_id", userID), zap.Uint("notification_id", id), zap.Error(err))
		WriteJSONError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	RespondWithJSON(w, status, body)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		WriteJSONError(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return uint(id), true
}
