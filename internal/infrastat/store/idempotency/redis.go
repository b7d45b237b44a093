package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	id "infrastat/pkg/domain"
)

// Redis key prefix for submission payload hashes
const hashKeyPrefix = "infrastat:submission:hash:"

// RedisStore is a Redis-backed Store shared across instances, so a retried
// submit call lands on the same answer no matter which replica serves it.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed idempotency store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) LastHash(ctx context.Context, batchID id.BatchID) (string, error) {
	hash, err := s.client.Get(ctx, hashKeyPrefix+batchID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *RedisStore) Remember(ctx context.Context, batchID id.BatchID, hash string, ttl time.Duration) error {
	return s.client.Set(ctx, hashKeyPrefix+batchID.String(), hash, ttl).Err()
}

func (s *RedisStore) Forget(ctx context.Context, batchID id.BatchID) error {
	return s.client.Del(ctx, hashKeyPrefix+batchID.String()).Err()
}
