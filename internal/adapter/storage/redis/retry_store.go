package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// retryTTL bounds how long an abandoned retry counter lingers. A
// payment intent that goes quiet for a month starts a fresh count.
const retryTTL = 30 * 24 * time.Hour

// RetryStore implements ports.AttemptStore using Redis INCR. The
// counter survives restarts, which is what makes the third-failure
// escalation reliable.
type RetryStore struct {
	client *goredis.Client
	prefix string
}

// NewRetryStore creates a new Redis-backed retry counter store.
func NewRetryStore(client *goredis.Client) *RetryStore {
	return &RetryStore{
		client: client,
		prefix: "retry:",
	}
}

// Increment atomically bumps the failure counter for a key and returns
// the new count.
func (s *RetryStore) Increment(ctx context.Context, key string) (int, error) {
	redisKey := s.prefix + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis retry incr: %w", err)
	}

	// Set expiry only on first increment (new counter)
	if count == 1 {
		s.client.Expire(ctx, redisKey, retryTTL)
	}

	return int(count), nil
}

// Reset clears the failure counter after a successful payment.
func (s *RetryStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis retry reset: %w", err)
	}
	return nil
}
