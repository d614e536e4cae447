// Package cache puts a TTL store in front of the remote services so repeated
// searches, rates and postal lookups are answered locally.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/panels/internal/config"
)

// Store is a byte-valued key/value cache whose entries expire after the
// store's TTL. A miss is (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Close() error
}

// Open builds the store selected by cfg.Driver. Driver "none" returns nil.
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	ttl := cfg.TTL()
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(cfg.MemorySize, ttl), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: redis ping %s", cfg.RedisAddr)
		}
		return NewRedis(rdb, ttl), nil
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLitePath, ttl)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

// Memory is an in-process LRU store.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a Memory store holding at most size entries.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 512
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, val []byte) error {
	m.lru.Add(key, val)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Close implements Store.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
