package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"go.uber.org/zap"
)

type EmitResult struct {
	Created            int
	Duplicates         int
	WriteFailures      []error
	CheckpointAdvanced bool
	CheckpointConflict bool
	CheckpointErr      error
}

// Emitter persists notifications for matched properties and advances the alert checkpoint.
type Emitter struct {
	sink      domain.NotificationSink
	alerts    domain.AlertRepository
	publisher domain.EventPublisher
	logger    *zap.Logger
}

func NewEmitter(sink domain.NotificationSink, alerts domain.AlertRepository, publisher domain.EventPublisher, logger *zap.Logger) *Emitter {
	return &Emitter{sink: sink, alerts: alerts, publisher: publisher, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, alert domain.Alert, matches []domain.Property, now time.Time) EmitResult {
	var result EmitResult

	for _, property := range matches {
		notification := &domain.Notification{
			AlertID:    alert.ID,
			UserID:     alert.UserID,
			PropertyID: property.ID,
			Status:     domain.NotificationPending,
			Message:    FormatMessage(alert, property),
			CreatedAt:  now,
		}

		created, err := e.sink.Create(ctx, notification)
		if err != nil {
			wrapped := fmt.Errorf("%w: alert %d property %d: %v", domain.ErrNotificationWrite, alert.ID, property.ID, err)
			result.WriteFailures = append(result.WriteFailures, wrapped)
			e.logger.Warn("notification write failed", zap.Uint("alert_id", alert.ID), zap.Uint("property_id", property.ID), zap.Error(err))
			continue
		}
		if !created {
			result.Duplicates++
			continue
		}
		result.Created++
		e.publish(ctx, notification)
	}

	e.advanceCheckpoint(ctx, alert, now, &result)
	return result
}

func (e *Emitter) advanceCheckpoint(ctx context.Context, alert domain.Alert, now time.Time, result *EmitResult) {
	prev := alert.LastNotifiedAt
	if prev != nil && !now.After(*prev) {
		return
	}

	err := e.alerts.AdvanceCheckpoint(ctx, alert.ID, prev, now)
	switch {
	case err == nil:
		result.CheckpointAdvanced = true
	case errors.Is(err, domain.ErrCheckpointConflict):
		result.CheckpointConflict = true
		e.logger.Info("checkpoint already advanced by another pass", zap.Uint("alert_id", alert.ID))
	default:
		result.CheckpointErr = err
		e.logger.Error("failed to advance checkpoint", zap.Uint("alert_id", alert.ID), zap.Error(err))
	}
}

func (e *Emitter) publish(ctx context.Context, n *domain.Notification) {
	if e.publisher == nil {
		return
	}
	event := domain.NotificationEvent{
		NotificationID: n.ID,
		AlertID:        n.AlertID,
		UserID:         n.UserID,
		PropertyID:     n.PropertyID,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	}
	if err := e.publisher.PublishNotification(ctx, event); err != nil {
		e.logger.Warn("failed to publish notification event", zap.Uint("notification_id", n.ID), zap.Error(err))
	}
}

// FormatMessage renders the text a user receives for a matched property.
func FormatMessage(alert domain.Alert, p domain.Property) string {
	title := p.Title
	if title == "" {
		title = fmt.Sprintf("%s #%d", p.PropertyType, p.ID)
	}
	msg := fmt.Sprintf("New property matching your alert %q: %s, %s", alert.Name, title, p.Price.StringFixed(0))
	if p.City != "" {
		msg += fmt.Sprintf(" (%s)", p.City)
	}
	return msg
}
