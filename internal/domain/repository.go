package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrNotificationWrite  = errors.New("notification write failed")
	ErrInvalidCriteria    = errors.New("invalid criteria")
	ErrCheckpointConflict = errors.New("checkpoint advanced concurrently")
	ErrLeaseBusy          = errors.New("alert lease held by another pass")
)

type UserRepository interface {
	GetByChatID(ctx context.Context, chatID int64) (*User, error)
	GetByID(ctx context.Context, userID uint) (*User, error)
	Create(ctx context.Context, user *User) error
	SetMuted(ctx context.Context, userID uint, muted bool) error
}

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	GetByID(ctx context.Context, alertID uint) (*Alert, error)
	ListByUser(ctx context.Context, userID uint) ([]Alert, error)
	ListEnabled(ctx context.Context) ([]Alert, error)
	SetEnabled(ctx context.Context, userID uint, alertID uint, enabled bool) error
	Delete(ctx context.Context, userID uint, alertID uint) error
	// AdvanceCheckpoint sets last_notified_at to next only if it still equals prev.
	// It returns ErrCheckpointConflict when another writer got there first.
	AdvanceCheckpoint(ctx context.Context, alertID uint, prev *time.Time, next time.Time) error
	FlagForReview(ctx context.Context, alertID uint, reason string) error
}

// PropertyCatalog is the read side a pass depends on.
type PropertyCatalog interface {
	Find(ctx context.Context, query CatalogQuery) ([]Property, error)
}

type PropertyRepository interface {
	PropertyCatalog
	GetByID(ctx context.Context, propertyID uint) (*Property, error)
	Save(ctx context.Context, property *Property) error
}

// NotificationSink accepts notification creation requests. Create reports created=false
// when a notification for the same (alert, property) pair already exists.
type NotificationSink interface {
	Create(ctx context.Context, notification *Notification) (bool, error)
}

type NotificationRepository interface {
	NotificationSink
	ListPending(ctx context.Context, limit int) ([]Notification, error)
	ListByUser(ctx context.Context, userID uint, query NotificationQuery) ([]Notification, error)
	MarkSent(ctx context.Context, notificationID uint, sentAt time.Time) error
	MarkFailed(ctx context.Context, notificationID uint) error
	// MarkRead records the first time the owner read a notification. Marking it read again keeps
	// the original time. It returns ErrNotFound when the notification does not belong to userID.
	MarkRead(ctx context.Context, userID uint, notificationID uint, readAt time.Time) error
	MarkUnread(ctx context.Context, userID uint, notificationID uint) error
}

type EventPublisher interface {
	PublishNotification(ctx context.Context, event NotificationEvent) error
}

// AlertLease keeps overlapping passes from evaluating the same alert at once.
type AlertLease interface {
	Acquire(ctx context.Context, alertID uint, ttl time.Duration) (release func(), err error)
}

// NotificationFeed streams a user's notification events as they are created.
type NotificationFeed interface {
	Subscribe(ctx context.Context, userID uint) (FeedSubscription, error)
}

type FeedSubscription interface {
	Payloads() <-chan []byte
	Close() error
}
