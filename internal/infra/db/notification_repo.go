package db

import (
	"context"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts the notification unless one already exists for the same
// alert and property. It reports whether a row was written.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	model := mapNotificationToModel(*n)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_id"}, {Name: "property_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	n.ID = model.ID
	n.CreatedAt = model.CreatedAt
	return true, nil
}

// ListPending returns pending rows whose owner can currently receive them.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	var models []notificationModel
	err := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = notifications.user_id AND users.deleted_at IS NULL").
		Where("notifications.status = ?", string(domain.NotificationPending)).
		Where("users.telegram_chat_id <> 0 AND users.muted = ?", false).
		Order("notifications.id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapNotificationsToDomain(models), nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, q domain.NotificationQuery) ([]domain.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var models []notificationModel
	if err := query.Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapNotificationsToDomain(models), nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID uint, id uint, readAt time.Time) error {
	return r.updateOwned(ctx, userID, id, gorm.Expr("COALESCE(read_at, ?)", readAt.UTC()))
}

func (r *NotificationRepository) MarkUnread(ctx context.Context, userID uint, id uint) error {
	return r.updateOwned(ctx, userID, id, nil)
}

func (r *NotificationRepository) updateOwned(ctx context.Context, userID uint, id uint, readAt interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&notificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read_at", readAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uint, sentAt time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":  string(domain.NotificationSent),
		"sent_at": sentAt,
	})
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]interface{}{"status": string(domain.NotificationFailed)})
}

func (r *NotificationRepository) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&notificationModel{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapNotificationsToDomain(models []notificationModel) []domain.Notification {
	out := make([]domain.Notification, 0, len(models))
	for _, model := range models {
		out = append(out, domain.Notification{
			ID:         model.ID,
			AlertID:    model.AlertID,
			UserID:     model.UserID,
			PropertyID: model.PropertyID,
			Status:     domain.NotificationStatus(model.Status),
			Message:    model.Message,
			CreatedAt:  model.CreatedAt,
			SentAt:     model.SentAt,
			ReadAt:     model.ReadAt,
		})
	}
	return out
}

func mapNotificationToModel(n domain.Notification) notificationModel {
	return notificationModel{
		ID:         n.ID,
		AlertID:    n.AlertID,
		UserID:     n.UserID,
		PropertyID: n.PropertyID,
		Status:     string(n.Status),
		Message:    n.Message,
		CreatedAt:  n.CreatedAt,
		SentAt:     n.SentAt,
		ReadAt:     n.ReadAt,
	}
}
