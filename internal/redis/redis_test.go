package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_SetGetDelete(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	value, err := store.Get(ctx, "sess-1", SessionProcessingOrderID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if value != "" {
		t.Errorf("expected empty value, got %q", value)
	}

	if err := store.Set(ctx, "sess-1", SessionProcessingOrderID, "order-1"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	value, _ = store.Get(ctx, "sess-1", SessionProcessingOrderID)
	if value != "order-1" {
		t.Errorf("expected order-1, got %q", value)
	}

	if ttl := mr.TTL("session:sess-1"); ttl != time.Hour {
		t.Errorf("expected session ttl of 1h, got %v", ttl)
	}

	// Other sessions are isolated.
	other, _ := store.Get(ctx, "sess-2", SessionProcessingOrderID)
	if other != "" {
		t.Errorf("expected other session to be empty, got %q", other)
	}

	if err := store.Delete(ctx, "sess-1", SessionProcessingOrderID); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	value, _ = store.Get(ctx, "sess-1", SessionProcessingOrderID)
	if value != "" {
		t.Errorf("expected value to be deleted, got %q", value)
	}

	// Deleting twice is fine.
	if err := store.Delete(ctx, "sess-1", SessionProcessingOrderID); err != nil {
		t.Errorf("expected no error deleting a missing value, got: %v", err)
	}
}

func TestSessionStore_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	_ = store.Set(ctx, "sess-1", SessionCart, "cart-hash")
	mr.FastForward(2 * time.Minute)

	value, err := store.Get(ctx, "sess-1", SessionCart)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if value != "" {
		t.Errorf("expected expired session to be empty, got %q", value)
	}
}

func TestRateLimiter_ThresholdWithinWindow(t *testing.T) {
	_, client := newTestClient(t)
	limiter := NewRateLimiter(client, 3, 10*time.Minute)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := limiter.Bump(ctx, "visitor-1"); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	}

	limited, err := limiter.IsLimited(ctx, "visitor-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if limited {
		t.Error("expected visitor below threshold not to be limited")
	}

	_ = limiter.Bump(ctx, "visitor-1")
	limited, _ = limiter.IsLimited(ctx, "visitor-1")
	if !limited {
		t.Error("expected visitor at threshold to be limited")
	}

	limited, _ = limiter.IsLimited(ctx, "visitor-2")
	if limited {
		t.Error("expected other visitor not to be limited")
	}
}

func TestRateLimiter_RollingWindow(t *testing.T) {
	_, client := newTestClient(t)
	limiter := NewRateLimiter(client, 2, 10*time.Minute)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	_ = limiter.Bump(ctx, "visitor-1")

	now = now.Add(8 * time.Minute)
	_ = limiter.Bump(ctx, "visitor-1")

	limited, _ := limiter.IsLimited(ctx, "visitor-1")
	if !limited {
		t.Fatal("expected both bumps to count within the window")
	}

	// The first bump leaves the window; only one remains.
	now = now.Add(3 * time.Minute)
	limited, _ = limiter.IsLimited(ctx, "visitor-1")
	if limited {
		t.Error("expected visitor to be released once old bumps leave the window")
	}
}

func TestMinimumAmountCache_GetSet(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewMinimumAmountCache(client, 24*time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "usd")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ok {
		t.Error("expected no cached minimum")
	}

	if err := cache.Set(ctx, "USD", 50); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	minimum, ok, _ := cache.Get(ctx, "usd")
	if !ok || minimum != 50 {
		t.Errorf("expected cached minimum 50, got %d (found=%v)", minimum, ok)
	}

	if ttl := mr.TTL("checkout:minimum:usd"); ttl != 24*time.Hour {
		t.Errorf("expected ttl of 24h, got %v", ttl)
	}
}

func TestLockStore_AcquireRelease(t *testing.T) {
	mr, client := newTestClient(t)
	locks := NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.AcquireCheckoutLock(ctx, "sess-1:hash", 30*time.Second)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, _ = locks.AcquireCheckoutLock(ctx, "sess-1:hash", 30*time.Second)
	if ok {
		t.Error("expected second acquire to fail while held")
	}

	// A different cart is independent.
	ok, _ = locks.AcquireCheckoutLock(ctx, "sess-1:other", 30*time.Second)
	if !ok {
		t.Error("expected lock for a different cart to succeed")
	}

	if err := locks.ReleaseCheckoutLock(ctx, "sess-1:hash"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	ok, _ = locks.AcquireCheckoutLock(ctx, "sess-1:hash", 30*time.Second)
	if !ok {
		t.Error("expected acquire after release to succeed")
	}

	// Locks expire on their own.
	mr.FastForward(time.Minute)
	ok, _ = locks.AcquireCheckoutLock(ctx, "sess-1:hash", 30*time.Second)
	if !ok {
		t.Error("expected acquire after expiry to succeed")
	}
}
