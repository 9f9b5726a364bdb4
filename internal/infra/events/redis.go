package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// RedisPublisher pushes each new notification to the owner's pub/sub channel.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(client *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) PublishNotification(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := UserChannel(event.UserID)
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	p.logger.Debug("notification published", zap.String("channel", channel), zap.Int64("receivers", receivers))
	return nil
}

// Subscription is a live feed of one user's notification events.
type Subscription struct {
	pubsub    *redis.PubSub
	payloads  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Subscription) Payloads() <-chan []byte {
	return s.payloads
}

func (s *Subscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.pubsub.Close()
}

func (s *Subscription) relay() {
	defer close(s.payloads)
	for msg := range s.pubsub.Channel() {
		select {
		case s.payloads <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}

// RedisSubscriber implements domain.NotificationFeed over pub/sub.
type RedisSubscriber struct {
	client *redis.Client
}

func NewRedisSubscriber(client *redis.Client) *RedisSubscriber {
	return &RedisSubscriber{client: client}
}

// Subscribe waits for the subscription to be confirmed before returning.
func (s *RedisSubscriber) Subscribe(ctx context.Context, userID uint) (domain.FeedSubscription, error) {
	pubsub := s.client.Subscribe(ctx, UserChannel(userID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	sub := &Subscription{pubsub: pubsub, payloads: make(chan []byte, 16), done: make(chan struct{})}
	go sub.relay()
	return sub, nil
}
