package repository

import (
	"context"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisResponseCache stores generated responses keyed by a content hash
// of (endpoint, model, input). Lookups are best effort: a Redis error
// counts as a miss, never as a request failure.
type RedisResponseCache struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisResponseCache(client *RedisClient, ttl time.Duration) *RedisResponseCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisResponseCache{
		client: client,
		ttl:    ttl,
		prefix: "respcache:",
	}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Debug("response cache get failed", "error", err.Error())
		}
		return "", false
	}
	return val, true
}

func (c *RedisResponseCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		logger.Debug("response cache set failed", "error", err.Error())
	}
}
