package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// StatsCache implements ports.StatsCache using Redis. Pool statistics are
// short-lived read-path data; losing the cache only costs a DB round trip.
type StatsCache struct {
	client *goredis.Client
	prefix string
}

// NewStatsCache creates a new Redis-backed pool stats cache.
func NewStatsCache(client *goredis.Client) *StatsCache {
	return &StatsCache{
		client: client,
		prefix: "poolstats:",
	}
}

// Get retrieves cached stats for a pool. Returns nil, nil on a miss.
func (c *StatsCache) Get(ctx context.Context, poolID string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+poolID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis stats get: %w", err)
	}
	return val, nil
}

// Set stores stats for a pool with TTL.
func (c *StatsCache) Set(ctx context.Context, poolID string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+poolID, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis stats set: %w", err)
	}
	return nil
}
