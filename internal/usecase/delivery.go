package usecase

import (
	"context"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/NasaVasa/nestwatch/internal/metrics"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(chatID int64, text string) error
}

type DeliveryStats struct {
	Sent    int
	Failed  int
	Skipped int
}

// DeliveryWorker moves pending notifications to sent or failed by pushing them to the owner's chat.
type DeliveryWorker struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	notifier      Notifier
	batchSize     int
	interval      time.Duration
	clock         func() time.Time
	logger        *zap.Logger
}

func NewDeliveryWorker(notifications domain.NotificationRepository, users domain.UserRepository, notifier Notifier, batchSize int, interval time.Duration, logger *zap.Logger) *DeliveryWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &DeliveryWorker{
		notifications: notifications,
		users:         users,
		notifier:      notifier,
		batchSize:     batchSize,
		interval:      interval,
		clock:         time.Now,
		logger:        logger,
	}
}

// Run delivers batches until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.DeliverPending(ctx); err != nil {
			w.logger.Warn("delivery batch failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *DeliveryWorker) DeliverPending(ctx context.Context) (DeliveryStats, error) {
	var stats DeliveryStats

	pending, err := w.notifications.ListPending(ctx, w.batchSize)
	if err != nil {
		return stats, err
	}

	users := make(map[uint]*domain.User)
	for _, n := range pending {
		user, ok := users[n.UserID]
		if !ok {
			user, err = w.users.GetByID(ctx, n.UserID)
			if err != nil {
				w.logger.Warn("failed to load notification owner", zap.Uint("user_id", n.UserID), zap.Error(err))
				user = nil
			}
			users[n.UserID] = user
		}
		if user == nil || user.TelegramChatID == 0 || user.Muted {
			stats.Skipped++
			metrics.DeliveriesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		if err := w.notifier.Notify(user.TelegramChatID, n.Message); err != nil {
			stats.Failed++
			metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
			if markErr := w.notifications.MarkFailed(ctx, n.ID); markErr != nil {
				w.logger.Error("failed to mark notification failed", zap.Uint("notification_id", n.ID), zap.Error(markErr))
			}
			continue
		}

		stats.Sent++
		metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
		if err := w.notifications.MarkSent(ctx, n.ID, w.clock().UTC()); err != nil {
			w.logger.Error("failed to mark notification sent", zap.Uint("notification_id", n.ID), zap.Error(err))
		}
	}

	if len(pending) > 0 {
		w.logger.Info("delivery batch complete", zap.Int("sent", stats.Sent), zap.Int("failed", stats.Failed), zap.Int("skipped", stats.Skipped))
	}
	return stats, nil
}
