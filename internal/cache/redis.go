package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// KeyPrefix namespaces every key written to shared backends.
const KeyPrefix = "panels:"

// Redis is a Store backed by a redis server.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.rdb.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "cache: redis get")
	}
	return v, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	if err := r.rdb.Set(ctx, KeyPrefix+key, val, r.ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: redis set")
	}
	return nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
