package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/usecase"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	gotNow time.Time
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, now time.Time) (usecase.PassSummary, error) {
	f.gotNow = now
	if f.err != nil {
		return usecase.PassSummary{}, f.err
	}
	return usecase.PassSummary{PassID: "p-1", Now: now, Due: 3, Evaluated: 3, NotificationsCreated: 2}, nil
}

type fakeLister struct {
	gotUser  uint
	gotQuery domain.NotificationQuery

	readID   uint
	readAt   time.Time
	unreadID uint
}

func (f *fakeLister) ListByUser(ctx context.Context, userID uint, q domain.NotificationQuery) ([]domain.Notification, error) {
	f.gotUser, f.gotQuery = userID, q
	return []domain.Notification{{ID: 1, AlertID: 2, UserID: userID, PropertyID: 3, Status: domain.NotificationPending, Message: "hi"}}, nil
}

// Only notification 1 belongs to user 7.
func (f *fakeLister) MarkRead(ctx context.Context, userID uint, id uint, readAt time.Time) error {
	if userID != 7 || id != 1 {
		return domain.ErrNotFound
	}
	f.readID, f.readAt = id, readAt
	return nil
}

func (f *fakeLister) MarkUnread(ctx context.Context, userID uint, id uint) error {
	if userID != 7 || id != 1 {
		return domain.ErrNotFound
	}
	f.unreadID = id
	return nil
}

type fakeSubscription struct {
	ch chan []byte
}

func (s *fakeSubscription) Payloads() <-chan []byte { return s.ch }
func (s *fakeSubscription) Close() error            { return nil }

type fakeFeed struct {
	sub *fakeSubscription
}

func (f *fakeFeed) Subscribe(ctx context.Context, userID uint) (domain.FeedSubscription, error) {
	return f.sub, nil
}

func newTestRouter(runner *fakeRunner, lister *fakeLister, feed domain.NotificationFeed, checks map[string]HealthCheck) (http.Handler, *Handlers) {
	h := NewHandlers(runner, lister, feed, checks, zap.NewNop())
	h.clock = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return NewRouter(h, zap.NewNop()), h
}

func TestRunPass_DefaultsToClock(t *testing.T) {
	runner := &fakeRunner{}
	router, _ := newTestRouter(runner, &fakeLister{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, runner.gotNow.Equal(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)))
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	var summary usecase.PassSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "p-1", summary.PassID)
	assert.Equal(t, 2, summary.NotificationsCreated)
}

func TestRunPass_ExplicitNow(t *testing.T) {
	runner := &fakeRunner{}
	router, _ := newTestRouter(runner, &fakeLister{}, nil, nil)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"now":"2026-10-10T12:00:00+03:00"}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, runner.gotNow.Equal(time.Date(2026, 10, 10, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, runner.gotNow.Location())
}

func TestRunPass_NowQueryParameter(t *testing.T) {
	runner := &fakeRunner{}
	router, _ := newTestRouter(runner, &fakeLister{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes?now=2026-10-10T12:00:00Z", strings.NewReader(`{"now":"2026-01-01T00:00:00Z"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, runner.gotNow.Equal(time.Date(2026, 10, 10, 12, 0, 0, 0, time.UTC)))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes?now=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunPass_Errors(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, &fakeLister{}, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", strings.NewReader(`{"now":"yesterday"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	router, _ = newTestRouter(&fakeRunner{err: errors.New("db down")}, &fakeLister{}, nil, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/passes", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Pass failed"}`, rec.Body.String())
}

func TestListNotifications(t *testing.T) {
	lister := &fakeLister{}
	router, _ := newTestRouter(&fakeRunner{}, lister, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/7/notifications?limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), lister.gotUser)
	assert.Equal(t, maxNotificationLimit, lister.gotQuery.Limit)
	assert.False(t, lister.gotQuery.UnreadOnly)

	var resp NotificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "pending", resp.Notifications[0].Status)
	assert.False(t, resp.Notifications[0].Read)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/abc/notifications", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListNotifications_UnreadFilter(t *testing.T) {
	lister := &fakeLister{}
	router, _ := newTestRouter(&fakeRunner{}, lister, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/7/notifications?unread=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, lister.gotQuery.UnreadOnly)
	assert.Equal(t, defaultNotificationLimit, lister.gotQuery.Limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/7/notifications?unread=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNotification(t *testing.T) {
	lister := &fakeLister{}
	router, _ := newTestRouter(&fakeRunner{}, lister, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/7/notifications/1", strings.NewReader(`{"read":true}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(1), lister.readID)
	assert.True(t, lister.readAt.Equal(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/7/notifications/1", strings.NewReader(`{"read":false}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(1), lister.unreadID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/8/notifications/1", strings.NewReader(`{"read":true}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/7/notifications/1", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/users/7/notifications/x", strings.NewReader(`{"read":true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, &fakeLister{}, nil, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	router, _ = newTestRouter(&fakeRunner{}, &fakeLister{}, nil, map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestNotificationStream_WithoutFeed(t *testing.T) {
	router, _ := newTestRouter(&fakeRunner{}, &fakeLister{}, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/7/notifications/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotificationStream_RelaysEvents(t *testing.T) {
	sub := &fakeSubscription{ch: make(chan []byte, 1)}
	router, _ := newTestRouter(&fakeRunner{}, &fakeLister{}, &fakeFeed{sub: sub}, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/users/7/notifications/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	sub.ch <- []byte(`{"notification_id":1}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"notification_id":1}`, string(msg))
}
