package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pai:progress"

// RedisBackend stores entries as plain Redis strings under
// pai:progress:{namespace}:{key}.
type RedisBackend struct {
	client redis.Cmdable
}

// NewRedisBackend creates a backend over an existing client.
func NewRedisBackend(client redis.Cmdable) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	v, err := b.client.Get(ctx, redisKey(namespace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, namespace, key, value string) error {
	if err := b.client.Set(ctx, redisKey(namespace, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Incr uses INCR, which fails if the stored value is not an integer.
func (b *RedisBackend) Incr(ctx context.Context, namespace, key string) (int64, error) {
	n, err := b.client.Incr(ctx, redisKey(namespace, key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return n, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func redisKey(namespace, key string) string {
	return redisKeyPrefix + ":" + namespace + ":" + key
}
