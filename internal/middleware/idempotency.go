package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	idempotencyPrefix = "idempotency:"
)

// ResponseStore keeps replayable responses.
type ResponseStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisResponseStore adapts a go-redis client to ResponseStore.
// Get returns nil, nil on a miss.
type RedisResponseStore struct {
	Client *redis.Client
}

func (s RedisResponseStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s RedisResponseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	ContentType string          `json:"content_type"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the first response to a mutating request carrying an
// Idempotency-Key. Keys are scoped to the caller and the route so two riders
// cannot collide. Server errors are never cached; a store failure lets the
// request through unprotected.
func Idempotency(store ResponseStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyPrefix + principal(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		data, err := store.Get(ctx, cacheKey)
		if err != nil {
			slog.WarnContext(ctx, "idempotency lookup failed", "error", err)
			c.Next()
			return
		}
		if data != nil {
			var cached cachedResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				c.Header("Idempotent-Replayed", "true")
				c.Data(cached.StatusCode, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
		}

		w := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}
		data, err = json.Marshal(cachedResponse{
			StatusCode:  status,
			Body:        w.body.Bytes(),
			ContentType: c.Writer.Header().Get("Content-Type"),
		})
		if err != nil {
			return
		}
		if err := store.Set(context.WithoutCancel(ctx), cacheKey, data, idempotencyTTL); err != nil {
			slog.WarnContext(ctx, "idempotency store failed", "error", err)
		}
	}
}

func principal(c *gin.Context) string {
	if rider := RiderFrom(c); rider != nil {
		return "rider:" + rider.UserID
	}
	if caller := CallerFrom(c); caller != nil {
		return "service:" + caller.Audience
	}
	return "anonymous"
}
