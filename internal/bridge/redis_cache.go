package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisPrefix = "hrdesk:stats"

// RedisStatsCache shares statistics across replicas. Invalidation bumps a
// generation counter that is part of every entry key, so stale entries are
// never read again and age out through their TTL.
type RedisStatsCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewRedisStatsCache connects to redisURL and verifies it with a PING.
func NewRedisStatsCache(ctx context.Context, redisURL string, ttl time.Duration, log logrus.FieldLogger) (*RedisStatsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStatsCacheFromClient(client, ttl, log), nil
}

// NewRedisStatsCacheFromClient wraps an existing client. ttl must be positive.
func NewRedisStatsCacheFromClient(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RedisStatsCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisStatsCache{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    ttl,
		log:    log.WithField("component", "bridge.redis_cache"),
	}
}

func (c *RedisStatsCache) genKey() string { return c.prefix + ":gen" }

func (c *RedisStatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisStatsCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

func (c *RedisStatsCache) Get(ctx context.Context, key string) (Statistics, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.WithError(err).Warn("statistics cache generation read failed")
		return Statistics{}, noGeneration, false
	}
	raw, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).Warn("statistics cache read failed")
		}
		return Statistics{}, gen, false
	}
	var st Statistics
	if err := json.Unmarshal(raw, &st); err != nil {
		c.log.WithError(err).Warn("statistics cache entry corrupt")
		return Statistics{}, gen, false
	}
	return st, gen, true
}

// Set writes under the generation observed by Get. After an Invalidate
// that key is never read again and ages out through its TTL.
func (c *RedisStatsCache) Set(ctx context.Context, key string, gen int64, st Statistics) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.entryKey(gen, key), raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("statistics cache write failed")
	}
}

func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		c.log.WithError(err).Warn("statistics cache invalidation failed")
	}
}

func (c *RedisStatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}
