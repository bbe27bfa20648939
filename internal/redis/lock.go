package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles short-lived advisory locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireCheckoutLock attempts to acquire a lock for the given checkout key.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireCheckoutLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, fmt.Sprintf("lock:checkout:%s", key), "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseCheckoutLock releases the lock for the given checkout key.
func (s *LockStore) ReleaseCheckoutLock(ctx context.Context, key string) error {
	return s.client.Del(ctx, fmt.Sprintf("lock:checkout:%s", key)).Err()
}
