package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds every Redis round trip, since the Cache interface
// carries no context.
const redisOpTimeout = 2 * time.Second

// RedisCache stores entries in Redis so several processes share results.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. ttl is used when Set gets zero.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	return NewRedisCache(client, ttl), nil
}

// Get retrieves a value. Redis errors are logged and reported as a miss.
func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("[RedisCache] Get failed", slog.String("key", key), slog.Any("error", err))
		return nil, false
	}
	return val, true
}

// Set stores a value with ttl, or the cache default when ttl is zero.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a value
func (c *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under KeyPrefix. Other keys in the database are
// left alone.
func (c *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*redisOpTimeout)
	defer cancel()

	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
