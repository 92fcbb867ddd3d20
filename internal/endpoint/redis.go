package endpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/lodtree/lodtree/internal/octerr"
)

// RedisEndpoint persists chunk blobs as string keys, prefixed to keep chunk
// blobs out of the way of whatever else shares the instance.
type RedisEndpoint struct {
	client *redis.Client
	prefix string
}

// NewRedisEndpoint wraps an already-configured client. Ownership of the
// client (including Close) stays with the caller.
func NewRedisEndpoint(client *redis.Client, prefix string) *RedisEndpoint {
	return &RedisEndpoint{client: client, prefix: prefix}
}

func (r *RedisEndpoint) key(path string) string {
	return r.prefix + path
}

func (r *RedisEndpoint) Put(ctx context.Context, path string, data []byte) error {
	if err := r.client.Set(ctx, r.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("endpoint: redis put %s: %w", path, err)
	}
	return nil
}

func (r *RedisEndpoint) Get(ctx context.Context, path string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("endpoint: redis get %s: %w", path, octerr.ErrChunkNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("endpoint: redis get %s: %w", path, err)
	}
	return data, nil
}
