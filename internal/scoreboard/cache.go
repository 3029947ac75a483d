package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores computed, ungated scoreboards. Implementations must treat
// every failure as a miss.
type Cache interface {
	GetScoreboard(ctx context.Context, contestID uint) (*Scoreboard, bool)
	SetScoreboard(ctx context.Context, sb *Scoreboard)
	Invalidate(ctx context.Context, contestID uint)
}

// RedisCache keeps scoreboards in Redis for a short TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "scoreboard_cache")),
	}
}

func cacheKey(contestID uint) string {
	return fmt.Sprintf("scoreboard:contest:%d", contestID)
}

func (c *RedisCache) GetScoreboard(ctx context.Context, contestID uint) (*Scoreboard, bool) {
	raw, err := c.client.Get(ctx, cacheKey(contestID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("failed to read scoreboard cache", zap.Uint("contest_id", contestID), zap.Error(err))
		}
		return nil, false
	}
	var sb Scoreboard
	if err := json.Unmarshal(raw, &sb); err != nil {
		c.logger.Warn("discarding corrupt scoreboard cache entry", zap.Uint("contest_id", contestID), zap.Error(err))
		return nil, false
	}
	return &sb, true
}

func (c *RedisCache) SetScoreboard(ctx context.Context, sb *Scoreboard) {
	payload, err := json.Marshal(sb)
	if err != nil {
		c.logger.Warn("failed to encode scoreboard for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(sb.Contest.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to store scoreboard cache", zap.Uint("contest_id", sb.Contest.ID), zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, contestID uint) {
	if err := c.client.Del(ctx, cacheKey(contestID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate scoreboard cache", zap.Uint("contest_id", contestID), zap.Error(err))
	}
}
