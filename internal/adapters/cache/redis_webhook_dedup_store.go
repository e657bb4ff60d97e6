package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWebhookDedupStore suppresses replayed webhook deliveries with a
// TTL-bounded seen set. Losing a key only re-runs an idempotent confirmation,
// so Redis durability is sufficient here.
type RedisWebhookDedupStore struct {
	client *redis.Client
}

func NewRedisWebhookDedupStore(client *redis.Client) *RedisWebhookDedupStore {
	return &RedisWebhookDedupStore{client: client}
}

func (s *RedisWebhookDedupStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, "payout:webhook:"+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisWebhookDedupStore) MarkProcessed(ctx context.Context, eventID, eventType string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return s.client.Set(ctx, "payout:webhook:"+eventID, eventType, ttl).Err()
}
