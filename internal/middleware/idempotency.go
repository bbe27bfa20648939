package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

// replayedHeaders are the response headers a replay must carry. Location
// matters for the redirect confirmation.
var replayedHeaders = []string{"Content-Type", "Location"}

// storedReply is the JSON form of a submission's answer.
type storedReply struct {
	Status  int             `json:"status_code"`
	Body    json.RawMessage `json:"body"`
	Headers http.Header     `json:"headers"`
}

type replyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func replyKey(c *gin.Context, key string) string {
	return "idempotency:" + SessionID(c) + ":" + c.FullPath() + ":" + key
}

// load returns redis.Nil when no reply is stored under key.
func (s replyStore) load(ctx context.Context, key string) (*storedReply, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var reply storedReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s replyStore) save(ctx context.Context, key string, reply storedReply) error {
	raw, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

// bodyRecorder tees the handler's output so it can be stored afterwards.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// IdempotencyMiddleware returns middleware that replays the stored response
// of a checkout submission retried with the same Idempotency-Key. Keys are
// scoped to the session, so two visitors cannot read each other's replies.
// Responses that asked the client to retry are never stored.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) gin.HandlerFunc {
	store := replyStore{rdb: redisClient, ttl: ttl}

	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := replyKey(c, key)

		reply, err := store.load(ctx, storeKey)
		switch {
		case err == nil:
			replay(c, reply)
			return
		case !errors.Is(err, redis.Nil):
			// Store unavailable: serve the request unguarded.
			c.Next()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if !final(status) {
			return
		}
		_ = store.save(ctx, storeKey, storedReply{
			Status:  status,
			Body:    rec.buf.Bytes(),
			Headers: pickHeaders(rec.Header()),
		})
	}
}

func replay(c *gin.Context, reply *storedReply) {
	for name, values := range reply.Headers {
		for _, v := range values {
			c.Header(name, v)
		}
	}
	c.Header(replayedHeader, "true")
	c.Data(reply.Status, "application/json", reply.Body)
	c.Abort()
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut
}

// final reports whether status is an answer worth replaying. Conflicts and
// rate limits tell the client to try again, so they are not.
func final(status int) bool {
	if status == http.StatusConflict || status == http.StatusTooManyRequests {
		return false
	}
	return status >= 200 && status < 500
}

func pickHeaders(h http.Header) http.Header {
	out := make(http.Header, len(replayedHeaders))
	for _, name := range replayedHeaders {
		if v := h.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	return out
}
