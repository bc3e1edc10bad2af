package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"vitalink/internal/redis"
)

// redisStore adapts the shared redis client to the CounterStore contract.
// Rate counters are the only redis keys this package touches.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a CounterStore backed by the shared redis client.
func NewRedisStore(client *redis.Client) CounterStore {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key)
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl)
}
