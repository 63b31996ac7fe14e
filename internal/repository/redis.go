package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

// Implement UsageRepo interface for Redis. Counters are kept per client
// per calendar day and expire on their own.
func (r *RedisClient) GetDailyUsage(ctx context.Context, clientID string) (int, int64, error) {
	today := time.Now().Format("2006-01-02")
	keyReqs := fmt.Sprintf("usage:%s:%s:requests", clientID, today)
	keyTokens := fmt.Sprintf("usage:%s:%s:tokens", clientID, today)

	pipe := r.Client.Pipeline()
	reqsCmd := pipe.Get(ctx, keyReqs)
	tokensCmd := pipe.Get(ctx, keyTokens)
	_, err := pipe.Exec(ctx)

	if err != nil && err != redis.Nil {
		return 0, 0, err
	}

	reqs, _ := reqsCmd.Int()
	tokens, _ := tokensCmd.Int64()

	return reqs, tokens, nil
}

func (r *RedisClient) AddDailyUsage(ctx context.Context, clientID string, requests int, tokens int64) error {
	today := time.Now().Format("2006-01-02")
	keyReqs := fmt.Sprintf("usage:%s:%s:requests", clientID, today)
	keyTokens := fmt.Sprintf("usage:%s:%s:tokens", clientID, today)

	pipe := r.Client.Pipeline()
	pipe.IncrBy(ctx, keyReqs, int64(requests))
	pipe.IncrBy(ctx, keyTokens, tokens)

	// Set Expiry (2 days is safe)
	pipe.Expire(ctx, keyReqs, 48*time.Hour)
	pipe.Expire(ctx, keyTokens, 48*time.Hour)

	_, err := pipe.Exec(ctx)
	return err
}
