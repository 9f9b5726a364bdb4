package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/shopspring/decimal"
)

type memAlerts struct {
	mu          sync.Mutex
	alerts      map[uint]domain.Alert
	nextID      uint
	listErr     error
	advanceErr  error
	flagged     map[uint]string
	advanceCall int
}

func newMemAlerts(alerts ...domain.Alert) *memAlerts {
	m := &memAlerts{alerts: make(map[uint]domain.Alert), flagged: make(map[uint]string)}
	for _, a := range alerts {
		m.alerts[a.ID] = a
		if a.ID > m.nextID {
			m.nextID = a.ID
		}
	}
	return m
}

func (m *memAlerts) Create(ctx context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	alert.ID = m.nextID
	alert.CreatedAt = time.Now()
	m.alerts[alert.ID] = *alert
	return nil
}

func (m *memAlerts) GetByID(ctx context.Context, alertID uint) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *memAlerts) ListByUser(ctx context.Context, userID uint) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAlerts) ListEnabled(ctx context.Context) ([]domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Alert
	for _, a := range m.alerts {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAlerts) SetEnabled(ctx context.Context, userID uint, alertID uint, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	a.Enabled = enabled
	m.alerts[alertID] = a
	return nil
}

func (m *memAlerts) Delete(ctx context.Context, userID uint, alertID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.alerts, alertID)
	return nil
}

func (m *memAlerts) AdvanceCheckpoint(ctx context.Context, alertID uint, prev *time.Time, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advanceCall++
	if m.advanceErr != nil {
		return m.advanceErr
	}
	a, ok := m.alerts[alertID]
	if !ok {
		return domain.ErrNotFound
	}
	if !sameTime(a.LastNotifiedAt, prev) {
		return domain.ErrCheckpointConflict
	}
	t := next
	a.LastNotifiedAt = &t
	m.alerts[alertID] = a
	return nil
}

func (m *memAlerts) FlagForReview(ctx context.Context, alertID uint, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flagged[alertID] = reason
	a := m.alerts[alertID]
	a.NeedsReview = true
	a.ReviewReason = reason
	m.alerts[alertID] = a
	return nil
}

func (m *memAlerts) checkpoint(alertID uint) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts[alertID].LastNotifiedAt
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

type memCatalog struct {
	mu         sync.Mutex
	properties []domain.Property
	err        error
	delay      time.Duration
	calls      int
}

func (c *memCatalog) Find(ctx context.Context, q domain.CatalogQuery) ([]domain.Property, error) {
	c.mu.Lock()
	c.calls++
	err, delay := c.err, c.delay
	props := append([]domain.Property(nil), c.properties...)
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]domain.Property, 0, len(props))
	for _, p := range props {
		if p.Status == q.Status && p.CreatedAt.After(q.CreatedAfter) {
			out = append(out, p)
		}
	}
	return out, nil
}

type pairKey struct{ alertID, propertyID uint }

type memNotifications struct {
	mu      sync.Mutex
	byPair  map[pairKey]*domain.Notification
	order   []*domain.Notification
	nextID  uint
	failFor map[uint]bool // property IDs whose insert fails
}

func newMemNotifications() *memNotifications {
	return &memNotifications{byPair: make(map[pairKey]*domain.Notification), failFor: make(map[uint]bool)}
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[n.PropertyID] {
		return false, errors.New("connection reset")
	}
	key := pairKey{n.AlertID, n.PropertyID}
	if _, ok := m.byPair[key]; ok {
		return false, nil
	}
	m.nextID++
	n.ID = m.nextID
	stored := *n
	m.byPair[key] = &stored
	m.order = append(m.order, &stored)
	return true, nil
}

func (m *memNotifications) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.order {
		if n.Status == domain.NotificationPending {
			out = append(out, *n)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memNotifications) ListByUser(ctx context.Context, userID uint, q domain.NotificationQuery) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for i := len(m.order) - 1; i >= 0; i-- {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		n := m.order[i]
		if n.UserID != userID || (q.UnreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, userID uint, id uint, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.order {
		if n.ID == id && n.UserID == userID {
			if n.ReadAt == nil {
				n.ReadAt = &readAt
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) MarkUnread(ctx context.Context, userID uint, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.order {
		if n.ID == id && n.UserID == userID {
			n.ReadAt = nil
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	return m.setStatus(id, domain.NotificationSent, &sentAt)
}

func (m *memNotifications) MarkFailed(ctx context.Context, id uint) error {
	return m.setStatus(id, domain.NotificationFailed, nil)
}

func (m *memNotifications) setStatus(id uint, status domain.NotificationStatus, sentAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.order {
		if n.ID == id {
			n.Status = status
			n.SentAt = sentAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

type memLease struct {
	mu   sync.Mutex
	held map[uint]bool
	err  error
}

func newMemLease() *memLease { return &memLease{held: make(map[uint]bool)} }

func (l *memLease) Acquire(ctx context.Context, alertID uint, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[alertID] {
		return nil, domain.ErrLeaseBusy
	}
	l.held[alertID] = true
	return func() {
		l.mu.Lock()
		delete(l.held, alertID)
		l.mu.Unlock()
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
	err    error
}

func (p *recordingPublisher) PublishNotification(ctx context.Context, e domain.NotificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type memUsers struct {
	mu     sync.Mutex
	users  map[uint]*domain.User
	nextID uint
}

func newMemUsers(users ...domain.User) *memUsers {
	m := &memUsers{users: make(map[uint]*domain.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
		if u.ID > m.nextID {
			m.nextID = u.ID
		}
	}
	return m
}

func (m *memUsers) GetByChatID(ctx context.Context, chatID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.TelegramChatID == chatID {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, userID uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	user.ID = m.nextID
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *memUsers) SetMuted(ctx context.Context, userID uint, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Muted = muted
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	sent     map[int64][]string
	failChat int64
}

func (n *recordingNotifier) Notify(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if chatID == n.failChat {
		return errors.New("chat not found")
	}
	if n.sent == nil {
		n.sent = make(map[int64][]string)
	}
	n.sent[chatID] = append(n.sent[chatID], text)
	return nil
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func timep(t time.Time) *time.Time { return &t }
