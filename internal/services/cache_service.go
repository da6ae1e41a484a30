package services

import (
	"context"
	"time"
)

// CacheService is the key/value, sorted set and hash surface the services
// need. *cache.RedisCache and *cache.MemoryCache both satisfy it; misses
// are reported so that cache.IsMiss matches them.
type CacheService interface {
	Key(parts ...string) string

	// Basic cache operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	SetExpire(ctx context.Context, key string, expiration time.Duration) error

	// Sorted set operations
	ZAddNX(ctx context.Context, key string, score float64, member string) (bool, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScore(ctx context.Context, key string, min, max string, limit int64) ([]string, error)
	ZRem(ctx context.Context, key string, member string) (bool, error)
	ZCard(ctx context.Context, key string) (int64, error)

	// Hash operations
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error
}
