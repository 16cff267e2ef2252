package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"kickride/internal/coreservice"
	"kickride/internal/domain"
	"kickride/internal/redis"
	"kickride/internal/service"
)

// Authorizer resolves rider sessions.
type Authorizer interface {
	Authorize(ctx context.Context, sessionID string) (*domain.Rider, error)
}

var _ Authorizer = (*coreservice.Accounts)(nil)

// RiderAuth authenticates riders by the session id in the bearer token.
// Sessions are cached for ttl; a zero ttl or nil cache disables caching.
func RiderAuth(accounts Authorizer, cache redis.SessionCache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := bearerToken(c.GetHeader("Authorization"))
		if sessionID == "" {
			abort(c, service.ErrRequiredLogin)
			return
		}

		ctx := c.Request.Context()
		useCache := cache != nil && ttl > 0

		if useCache {
			rider, err := cache.GetSession(ctx, sessionID)
			if err != nil {
				slog.WarnContext(ctx, "session cache read failed", "error", err)
			}
			if rider != nil {
				c.Set(riderKey, rider)
				c.Next()
				return
			}
		}

		rider, err := accounts.Authorize(ctx, sessionID)
		if err != nil {
			slog.DebugContext(ctx, "rider authorization failed", "error", err)
			abort(c, service.ErrRequiredLogin)
			return
		}

		if useCache {
			if err := cache.SetSession(ctx, sessionID, rider, ttl); err != nil {
				slog.WarnContext(ctx, "session cache write failed", "error", err)
			}
		}

		c.Set(riderKey, rider)
		c.Next()
	}
}

// InternalAuth authenticates other core services by a signed token taken
// from the bearer header or the token query parameter.
func InternalAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" || key == "" {
			abort(c, service.ErrRequiredAccessKey)
			return
		}

		caller, err := coreservice.VerifyInternalToken(token, key)
		if err != nil {
			slog.DebugContext(c.Request.Context(), "internal token rejected", "error", err)
			if errors.Is(err, coreservice.ErrTokenLifetime) || errors.Is(err, jwt.ErrTokenExpired) {
				abort(c, service.ErrExpiredAccessKey)
				return
			}
			abort(c, service.ErrRequiredAccessKey)
			return
		}

		slog.InfoContext(c.Request.Context(), "internal request",
			"audience", caller.Audience,
			"issuer", caller.Issuer,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Set(callerKey, caller)
		c.Next()
	}
}

// WebhookAuth checks the shared secret the platform sends with webhooks.
// An empty token accepts every request.
func WebhookAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Webhook-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			abort(c, service.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
