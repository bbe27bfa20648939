package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// Session keys used by the checkout.
const (
	SessionProcessingOrderID = "processing_order_id"
	SessionCart              = "cart"
	SessionAuthorizationID   = "authorization_id"
)

// SessionStore keeps scalar values scoped to a visitor's browser session.
// Each session is a Redis hash that expires after a period of inactivity.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Get returns the value stored under key, or "" when absent.
func (s *SessionStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.HGet(ctx, sessionKeyPrefix+sessionID, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

// Set stores a value and refreshes the session expiry.
func (s *SessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	sessionKey := sessionKeyPrefix + sessionID
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey, key, value)
		pipe.Expire(ctx, sessionKey, s.ttl)
		return nil
	})
	return err
}

// Delete removes a value. Deleting a missing value is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID, key string) error {
	return s.client.HDel(ctx, sessionKeyPrefix+sessionID, key).Err()
}
