package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"

	"github.com/demandcast/demandcast/internal/config"
	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

// RedisCache stores snappy-compressed JSON results in Redis so cached
// forecasts survive restarts and are shared across API replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg config.CacheConfig, logger *logging.Logger) (*RedisCache, error) {
	// Parse URL or use defaults
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Fallback to simple options
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(logging.String("component", "redis_cache")),
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key forecast.CacheKey) (*forecast.Result, bool) {
	data, err := c.client.Get(ctx, encodeKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}

	result, err := decodeResult(data)
	if err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten
		c.logger.Warn("discarding unreadable cache entry", "error", err)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, key forecast.CacheKey, result *forecast.Result) {
	data, err := encodeResult(result)
	if err != nil {
		c.logger.Warn("failed to encode forecast for cache", "error", err)
		return
	}

	if err := c.client.Set(ctx, encodeKey(key), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}

func (c *RedisCache) InvalidateProduct(ctx context.Context, productID string) error {
	pattern := productPrefix(productID) + "*"

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	c.logger.Debug("invalidated cached forecasts",
		"product_id", productID,
		"entries", len(keys),
	)
	return nil
}

// Purge deletes every key under the cache prefix. Other keys in the same
// Redis database are left alone.
func (c *RedisCache) Purge(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	c.logger.Debug("purged forecast cache", "entries", len(keys))
	return nil
}

func (c *RedisCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend":     "redis",
		"hits":        c.hits.Load(),
		"misses":      c.misses.Load(),
		"ttl_seconds": c.ttl.Seconds(),
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// encodeResult marshals a result to snappy-compressed JSON
func encodeResult(result *forecast.Result) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

// decodeResult reverses encodeResult
func decodeResult(data []byte) (*forecast.Result, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, err
	}

	var result forecast.Result
	if err := json.Unmarshal(decompressed, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
