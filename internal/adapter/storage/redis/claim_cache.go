package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ClaimCache implements ports.ClaimCache using Redis SET NX. It is the
// fast-path dedup check; the database unique index stays authoritative.
type ClaimCache struct {
	client *goredis.Client
	prefix string
}

// NewClaimCache creates a new Redis-backed claim cache.
func NewClaimCache(client *goredis.Client) *ClaimCache {
	return &ClaimCache{
		client: client,
		prefix: "event:",
	}
}

// Claim atomically checks if an event ID was seen, marking it if not.
// Returns true if the event is new, false if already claimed.
func (s *ClaimCache) Claim(ctx context.Context, providerEventID string, ttl time.Duration) (bool, error) {
	key := s.prefix + providerEventID
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — event was already delivered
			return false, nil
		}
		return false, fmt.Errorf("redis event claim: %w", err)
	}
	return result == "OK", nil
}
