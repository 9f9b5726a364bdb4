package rest

import (
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
)

// RunPassRequest is the optional body of POST /api/v1/passes.
type RunPassRequest struct {
	Now *time.Time `json:"now,omitempty"`
}

// UpdateNotificationRequest is the body of PATCH .../notifications/{notificationID}.
type UpdateNotificationRequest struct {
	Read *bool `json:"read"`
}

type NotificationDTO struct {
	ID         uint       `json:"id"`
	AlertID    uint       `json:"alert_id"`
	PropertyID uint       `json:"property_id"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	Read       bool       `json:"read"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

type NotificationsResponse struct {
	UserID        uint              `json:"user_id"`
	Notifications []NotificationDTO `json:"notifications"`
}

func toNotificationDTOs(notifications []domain.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, NotificationDTO{
			ID:         n.ID,
			AlertID:    n.AlertID,
			PropertyID: n.PropertyID,
			Status:     string(n.Status),
			Message:    n.Message,
			CreatedAt:  n.CreatedAt,
			SentAt:     n.SentAt,
			Read:       n.Read(),
			ReadAt:     n.ReadAt,
		})
	}
	return out
}
