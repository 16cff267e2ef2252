package redis

import (
	"context"
	"time"

	"kickride/internal/domain"
)

// RiderLocker serializes ride starts of a single rider.
type RiderLocker interface {
	AcquireRiderLock(ctx context.Context, userID string, ttl time.Duration) (string, error)
	ReleaseRiderLock(ctx context.Context, userID, token string) error
}

// SessionCache caches authorized rider sessions.
type SessionCache interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Rider, error)
	SetSession(ctx context.Context, sessionID string, rider *domain.Rider, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ RiderLocker  = (*LockStore)(nil)
	_ SessionCache = (*CacheStore)(nil)
)
