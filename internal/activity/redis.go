package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// Sink persists activity events. Implementations must tolerate being
// called concurrently and should fail fast when the backend is down.
type Sink interface {
	Write(ctx context.Context, event domain.ActivityEvent) error
}

// RedisSink keeps per-user daily counters of application activity.
// Each event increments a day-bucketed key which expires after the
// retention period, so Redis prunes old activity on its own.
type RedisSink struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisSink(client *redis.Client, retention time.Duration) *RedisSink {
	return &RedisSink{client: client, retention: retention}
}

func (s *RedisSink) Write(ctx context.Context, event domain.ActivityEvent) error {
	key := buildKey(event.OwnerID.String(), event.Action, event.OccurredAt)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

func buildKey(ownerID string, action domain.ActivityAction, t time.Time) string {
	return fmt.Sprintf("u:%s:a:%s:d:%s", ownerID, action, t.UTC().Format("20060102"))
}

// NoopSink discards events. Used when Redis is not configured.
type NoopSink struct{}

func (NoopSink) Write(ctx context.Context, event domain.ActivityEvent) error { return nil }
