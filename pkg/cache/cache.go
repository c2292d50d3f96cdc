// Package cache keeps recent analysis results in Redis so repeated lookups
// of the same URL skip the network probes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/analyzer"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "urldetector:result:"

// Key returns the Redis key for a normalized URL.
func Key(normalizedURL string) string {
	sum := sha256.Sum256([]byte(normalizedURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// ResultCache is safe to use as a nil pointer; every call is then a miss.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache connects and pings the server. Callers treat an error as
// "run without a cache".
func NewRedisCache(cfg config.CacheConfig, log *logger.Logger) (*ResultCache, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("cache.redis_addr is not set")
	}
	if log == nil {
		log = logger.Nop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{client: client, ttl: ttl, log: log.WithComponent("cache")}, nil
}

// Get returns a cached result for normalizedURL. Redis errors are logged
// and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, normalizedURL string) (*analyzer.Result, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, Key(normalizedURL)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("Cache read failed", "url", normalizedURL, "error", err)
		}
		return nil, false
	}

	var res analyzer.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.log.Warnw("Dropping undecodable cache entry", "url", normalizedURL, "error", err)
		_ = c.client.Del(ctx, Key(normalizedURL)).Err()
		return nil, false
	}
	return &res, true
}

// Set stores res under its normalized URL. Degraded and unknown results are
// not cached, so a transient outage is not replayed for the whole TTL.
func (c *ResultCache) Set(ctx context.Context, res *analyzer.Result) {
	if c == nil || !Cacheable(res) {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.log.Warnw("Failed to marshal result for cache", "url", res.NormalizedURL, "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(res.NormalizedURL), data, c.ttl).Err(); err != nil {
		c.log.Warnw("Cache write failed", "url", res.NormalizedURL, "error", err)
	}
}

// Cacheable reports whether res is worth replaying to later callers.
func Cacheable(res *analyzer.Result) bool {
	return res != nil && !res.DegradedMode && res.Label != classifier.LabelUnknown
}

func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
