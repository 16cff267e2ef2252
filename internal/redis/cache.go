package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kickride/internal/domain"
)

const sessionCachePrefix = "cache:session:"

// CacheStore handles short-lived caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetSession retrieves the rider bound to a session id.
// Returns nil on a cache miss.
func (s *CacheStore) GetSession(ctx context.Context, sessionID string) (*domain.Rider, error) {
	data, err := s.client.Get(ctx, sessionCachePrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rider domain.Rider
	if err := json.Unmarshal(data, &rider); err != nil {
		return nil, err
	}
	return &rider, nil
}

// SetSession caches the rider bound to a session id.
func (s *CacheStore) SetSession(ctx context.Context, sessionID string, rider *domain.Rider, ttl time.Duration) error {
	data, err := json.Marshal(rider)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionCachePrefix+sessionID, data, ttl).Err()
}
