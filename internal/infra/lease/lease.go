// Package lease provides the per-alert mutual exclusion used by evaluation passes.
package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "alert-lease:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease holds one key per alert so passes in other processes skip it.
type RedisLease struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisLease(client *redis.Client, logger *zap.Logger) *RedisLease {
	return &RedisLease{client: client, logger: logger}
}

func (l *RedisLease) Acquire(ctx context.Context, alertID uint, ttl time.Duration) (func(), error) {
	key := leaseKey(alertID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrLeaseBusy
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release alert lease", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func leaseKey(alertID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, alertID)
}

type memoryEntry struct {
	token   uint64
	expires time.Time
}

// MemoryLease is the single-process variant used when Redis is not configured.
type MemoryLease struct {
	mu      sync.Mutex
	entries map[uint]memoryEntry
	seq     uint64
	clock   func() time.Time
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{entries: make(map[uint]memoryEntry), clock: time.Now}
}

func (l *MemoryLease) Acquire(ctx context.Context, alertID uint, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if entry, ok := l.entries[alertID]; ok && now.Before(entry.expires) {
		return nil, domain.ErrLeaseBusy
	}

	l.seq++
	token := l.seq
	l.entries[alertID] = memoryEntry{token: token, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, ok := l.entries[alertID]; ok && entry.token == token {
			delete(l.entries, alertID)
		}
	}, nil
}
