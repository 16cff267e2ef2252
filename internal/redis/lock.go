package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so a lock
// that expired and was taken by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRiderLock attempts to take the ride-start lock of a rider.
// Returns the lock token, or "" if another request already holds it.
func (s *LockStore) AcquireRiderLock(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, riderLockKey(userID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleaseRiderLock releases the ride-start lock if token still owns it.
func (s *LockStore) ReleaseRiderLock(ctx context.Context, userID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{riderLockKey(userID)}, token).Err()
}

func riderLockKey(userID string) string {
	return fmt.Sprintf("lock:rider:%s:start", userID)
}
