package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 72 * time.Hour

// RedisStore deduplicates with SETNX and a TTL, for consumers that run
// without Mongo.
type RedisStore struct {
	client   *redis.Client
	consumer string
	ttl      time.Duration
}

func NewRedisStore(client *redis.Client, consumer string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &RedisStore{client: client, consumer: consumer, ttl: ttl}
}

func (s *RedisStore) Seen(ctx context.Context, eventID string) (bool, error) {
	fresh, err := s.client.SetNX(ctx, s.key(eventID), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !fresh, nil
}

func (s *RedisStore) Forget(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.key(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) key(eventID string) string {
	return fmt.Sprintf("stagerent:dedup:%s:%s", s.consumer, eventID)
}
