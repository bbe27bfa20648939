package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:payment:"

// RateLimiter counts suspicious declines per visitor over a rolling window.
// Each bump is a sorted-set member scored by its timestamp.
type RateLimiter struct {
	client    *redis.Client
	threshold int64
	window    time.Duration
	now       func() time.Time
}

// NewRateLimiter creates a new RateLimiter.
func NewRateLimiter(client *redis.Client, threshold int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:    client,
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// IsLimited reports whether the visitor reached the threshold within the window.
func (l *RateLimiter) IsLimited(ctx context.Context, visitor string) (bool, error) {
	key := rateLimitKeyPrefix + visitor

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", l.cutoff())
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return false, err
	}
	return card.Val() >= l.threshold, nil
}

// Bump records one suspicious decline for the visitor.
func (l *RateLimiter) Bump(ctx context.Context, visitor string) error {
	key := rateLimitKeyPrefix + visitor
	now := l.now()

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: uuid.New().String(),
		})
		pipe.ZRemRangeByScore(ctx, key, "-inf", l.cutoff())
		pipe.Expire(ctx, key, l.window)
		return nil
	})
	return err
}

func (l *RateLimiter) cutoff() string {
	return "(" + strconv.FormatInt(l.now().Add(-l.window).UnixMilli(), 10)
}
