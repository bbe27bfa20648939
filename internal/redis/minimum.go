package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const minimumAmountKeyPrefix = "checkout:minimum:"

// MinimumAmountCache remembers processor minimums learned from rejections.
type MinimumAmountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMinimumAmountCache creates a new MinimumAmountCache.
func NewMinimumAmountCache(client *redis.Client, ttl time.Duration) *MinimumAmountCache {
	return &MinimumAmountCache{client: client, ttl: ttl}
}

// Get returns the cached minimum for the currency.
func (c *MinimumAmountCache) Get(ctx context.Context, currency string) (int64, bool, error) {
	minimum, err := c.client.Get(ctx, minimumAmountKey(currency)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return minimum, true, nil
}

// Set caches the minimum for the currency.
func (c *MinimumAmountCache) Set(ctx context.Context, currency string, minimum int64) error {
	return c.client.Set(ctx, minimumAmountKey(currency), minimum, c.ttl).Err()
}

func minimumAmountKey(currency string) string {
	return minimumAmountKeyPrefix + strings.ToLower(currency)
}
