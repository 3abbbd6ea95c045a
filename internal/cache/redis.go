// Package cache provides the Redis-backed cache for role and site-access
// lookups. Entries are memoized projections of relational rows with a long
// TTL; correctness depends on explicit invalidation, not expiry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/sitedesk-io/sitedesk/internal/config"
)

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache: miss")

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitedesk_cache_hits_total",
		Help: "Total number of cache hits",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitedesk_cache_misses_total",
		Help: "Total number of cache misses",
	})
	cacheErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitedesk_cache_errors_total",
		Help: "Total number of cache errors",
	})
	sets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitedesk_cache_sets_total",
		Help: "Total number of cache sets",
	})
	deletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitedesk_cache_deletes_total",
		Help: "Total number of cache deletes",
	})
	latency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitedesk_cache_operation_duration_seconds",
		Help:    "Cache operation latency",
		Buckets: prometheus.DefBuckets,
	})
)

// RedisCache is an explicitly owned cache handle: connected at startup via
// New, closed at shutdown via Close. It is never connected lazily on first
// use.
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(redisCfg config.RedisConfig, cacheCfg config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		DialTimeout:  redisCfg.DialTimeout,
		ReadTimeout:  redisCfg.ReadTimeout,
		WriteTimeout: redisCfg.WriteTimeout,
		PoolSize:     redisCfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisCache{
		client:     client,
		keyPrefix:  cacheCfg.KeyPrefix,
		defaultTTL: cacheCfg.TTL,
	}, nil
}

// GetJSON loads and unmarshals the value at key into dest. Returns ErrMiss
// when the key is absent.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	timer := prometheus.NewTimer(latency)
	defer timer.ObserveDuration()

	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			misses.Inc()
			return ErrMiss
		}
		cacheErrors.Inc()
		return err
	}

	hits.Inc()
	return json.Unmarshal(data, dest)
}

// SetJSON marshals value and stores it under key. A zero ttl uses the
// configured default.
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	timer := prometheus.NewTimer(latency)
	defer timer.ObserveDuration()

	data, err := json.Marshal(value)
	if err != nil {
		cacheErrors.Inc()
		return err
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		cacheErrors.Inc()
		return err
	}

	sets.Inc()
	return nil
}

// Delete removes a single key.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	timer := prometheus.NewTimer(latency)
	defer timer.ObserveDuration()

	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.keyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		cacheErrors.Inc()
		return err
	}
	deletes.Add(float64(len(keys)))
	return nil
}

// DeletePattern removes all keys matching pattern. It uses SCAN rather than
// KEYS so production instances are not blocked.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	timer := prometheus.NewTimer(latency)
	defer timer.ObserveDuration()

	var keys []string
	iter := c.client.Scan(ctx, 0, c.keyPrefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		cacheErrors.Inc()
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.Inc()
		return err
	}

	deletes.Add(float64(len(keys)))
	return nil
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
