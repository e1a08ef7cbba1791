package replay

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "bitcoinfaces:consumed:"

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a redis-backed store so reservations hold
// across replicas. A zero ttl keeps reservations forever.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (Store, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStore{client: client, ttl: ttl}, nil
}

func (r *redisStore) Reserve(ctx context.Context, proof string) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+proof, 1, r.ttl).Result()
}

func (r *redisStore) Release(ctx context.Context, proof string) error {
	return r.client.Del(ctx, keyPrefix+proof).Err()
}
