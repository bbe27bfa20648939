package redis

import (
	"context"
	"time"
)

// SessionStoreInterface defines the interface for per-browser-session values.
type SessionStoreInterface interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID, key string) error
}

// RateLimiterInterface defines the interface for failed-payment rate limiting.
type RateLimiterInterface interface {
	IsLimited(ctx context.Context, visitor string) (bool, error)
	Bump(ctx context.Context, visitor string) error
}

// MinimumAmountCacheInterface defines the interface for learned processor
// minimums, in minor units per currency.
type MinimumAmountCacheInterface interface {
	Get(ctx context.Context, currency string) (int64, bool, error)
	Set(ctx context.Context, currency string, minimum int64) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireCheckoutLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, key string) error
}

// Ensure concrete types implement interfaces.
var (
	_ SessionStoreInterface       = (*SessionStore)(nil)
	_ RateLimiterInterface        = (*RateLimiter)(nil)
	_ MinimumAmountCacheInterface = (*MinimumAmountCache)(nil)
	_ LockStoreInterface          = (*LockStore)(nil)
)
