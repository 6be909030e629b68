// Package jobs holds the periodic work run by cmd/worker.
package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Marker records that a one-off action happened. Mark returns false when the
// key was already set. Release undoes a Mark whose action failed.
type Marker interface {
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisMarker struct {
	rdb *redis.Client
}

func NewRedisMarker(rdb *redis.Client) *RedisMarker {
	return &RedisMarker{rdb: rdb}
}

func (m *RedisMarker) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, key, "1", ttl).Result()
}

func (m *RedisMarker) Release(ctx context.Context, key string) error {
	return m.rdb.Del(ctx, key).Err()
}

// Every runs fn immediately and then on each tick until ctx is cancelled.
func Every(ctx context.Context, name string, interval time.Duration, log *zap.Logger, fn func(ctx context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error("job failed", zap.String("job", name), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
