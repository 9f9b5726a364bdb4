package domain

import "time"

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

type Notification struct {
	ID         uint
	AlertID    uint
	UserID     uint
	PropertyID uint
	Status     NotificationStatus
	Message    string
	CreatedAt  time.Time
	SentAt     *time.Time
	ReadAt     *time.Time
}

func (n Notification) Read() bool {
	return n.ReadAt != nil
}

// NotificationQuery narrows a user's notification listing. Results are newest first.
type NotificationQuery struct {
	Limit      int
	UnreadOnly bool
}

// NotificationEvent is what gets published when a notification is created.
type NotificationEvent struct {
	NotificationID uint      `json:"notification_id"`
	AlertID        uint      `json:"alert_id"`
	UserID         uint      `json:"user_id"`
	PropertyID     uint      `json:"property_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}
