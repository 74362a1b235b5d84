package store

import (
	"context"
	"errors"

	"meligy/internal/redis"
)

// Redis persists values in redis without expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps client; every key is namespaced with "meligy:".
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "meligy:"}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key)
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, 0)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key)
}
