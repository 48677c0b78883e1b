// Package cache provides an optional Redis-backed cache for aggregate
// queries. A nil cache is valid and disables caching entirely.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/taskpom/taskpom/internal/app/domain/pomodoro"
	"github.com/taskpom/taskpom/internal/config"
	"github.com/taskpom/taskpom/pkg/logger"
)

const statsKey = "pomodoro:stats"

// StatsCache caches the Pomodoro statistics aggregate.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New builds a cache from configuration. Returns nil when no Redis address
// is configured.
func New(cfg config.RedisConfig, log *logger.Logger) *StatsCache {
	if cfg.Addr == "" {
		return nil
	}
	if log == nil {
		log = logger.NewDefault("cache")
	}
	ttl := time.Duration(cfg.TTL) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
		log: log,
	}
}

// Get returns the cached stats and whether the cache was hit.
func (c *StatsCache) Get(ctx context.Context) (pomodoro.Stats, bool) {
	if c == nil {
		return pomodoro.Stats{}, false
	}
	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("stats cache read failed")
		}
		return pomodoro.Stats{}, false
	}
	var stats pomodoro.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return pomodoro.Stats{}, false
	}
	return stats, true
}

// Set stores the stats aggregate for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, stats pomodoro.Stats) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("stats cache write failed")
	}
}

// Invalidate drops the cached aggregate. Called on every session write.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		c.log.WithError(err).Warn("stats cache invalidation failed")
	}
}

// Close releases the underlying Redis connection.
func (c *StatsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
