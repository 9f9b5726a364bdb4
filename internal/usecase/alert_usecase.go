package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
)

var (
	ErrUserNotRegistered = errors.New("user not registered")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidName       = errors.New("invalid alert name")
	ErrAlertNotFound     = errors.New("alert not found")

	ErrNotificationNotFound = errors.New("notification not found")
)

const maxAlertNameLen = 80

type AlertInput struct {
	Name      string
	Frequency domain.Frequency
	Criteria  domain.Criteria
}

type AlertUsecase struct {
	users         domain.UserRepository
	alerts        domain.AlertRepository
	notifications domain.NotificationRepository
	clock         func() time.Time
}

func NewAlertUsecase(users domain.UserRepository, alerts domain.AlertRepository, notifications domain.NotificationRepository) *AlertUsecase {
	return &AlertUsecase{users: users, alerts: alerts, notifications: notifications, clock: time.Now}
}

func (u *AlertUsecase) AddAlert(ctx context.Context, chatID int64, input AlertInput) (*domain.Alert, error) {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxAlertNameLen {
		return nil, ErrInvalidName
	}

	frequency := domain.Frequency(strings.ToLower(strings.TrimSpace(string(input.Frequency))))
	if frequency == "" {
		frequency = domain.FrequencyDaily
	}
	if !frequency.Valid() {
		return nil, ErrInvalidFrequency
	}

	criteria := normalizeCriteria(input.Criteria)
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}

	alert := &domain.Alert{
		UserID:    user.ID,
		Name:      name,
		Enabled:   true,
		Frequency: frequency,
		Criteria:  criteria,
	}
	if err := u.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (u *AlertUsecase) ListAlerts(ctx context.Context, chatID int64) ([]domain.Alert, error) {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return u.alerts.ListByUser(ctx, user.ID)
}

func (u *AlertUsecase) EnableAlert(ctx context.Context, chatID int64, alertID uint) error {
	return u.setEnabled(ctx, chatID, alertID, true)
}

func (u *AlertUsecase) DisableAlert(ctx context.Context, chatID int64, alertID uint) error {
	return u.setEnabled(ctx, chatID, alertID, false)
}

func (u *AlertUsecase) DeleteAlert(ctx context.Context, chatID int64, alertID uint) error {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return err
	}

	if err := u.alerts.Delete(ctx, user.ID, alertID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	return nil
}

func (u *AlertUsecase) RecentNotifications(ctx context.Context, chatID int64, limit int) ([]domain.Notification, error) {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return u.notifications.ListByUser(ctx, user.ID, domain.NotificationQuery{Limit: limit})
}

func (u *AlertUsecase) MarkNotificationRead(ctx context.Context, chatID int64, notificationID uint) error {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return err
	}

	if err := u.notifications.MarkRead(ctx, user.ID, notificationID, u.clock().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (u *AlertUsecase) setEnabled(ctx context.Context, chatID int64, alertID uint, enabled bool) error {
	user, err := u.userByChat(ctx, chatID)
	if err != nil {
		return err
	}

	if err := u.alerts.SetEnabled(ctx, user.ID, alertID, enabled); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	return nil
}

func (u *AlertUsecase) userByChat(ctx context.Context, chatID int64) (*domain.User, error) {
	user, err := u.users.GetByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, err
	}
	return user, nil
}

func normalizeCriteria(c domain.Criteria) domain.Criteria {
	c.PropertyTypes = normalizeSet(c.PropertyTypes)
	c.ListingTypes = normalizeSet(c.ListingTypes)
	c.City = strings.TrimSpace(c.City)
	return c
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
