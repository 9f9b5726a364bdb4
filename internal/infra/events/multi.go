// Package events fans notification events out to Redis pub/sub and RabbitMQ.
package events

import (
	"context"
	"errors"

	"github.com/NasaVasa/nestwatch/internal/domain"
)

// Multi publishes to every configured backend. A failing backend does not stop the others.
type Multi struct {
	publishers []domain.EventPublisher
}

func NewMulti(publishers ...domain.EventPublisher) *Multi {
	m := &Multi{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

func (m *Multi) Len() int {
	return len(m.publishers)
}

func (m *Multi) PublishNotification(ctx context.Context, event domain.NotificationEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishNotification(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
