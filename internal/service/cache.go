package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func leaderboardCacheKey(assignmentID uint) string {
	return fmt.Sprintf("leaderboard:assignment:%d", assignmentID)
}

func analyticsCacheKey(assignmentID uint) string {
	return fmt.Sprintf("analytics:assignment:%d", assignmentID)
}

func dashboardCacheKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

// ResultCache drops cached views derived from submissions.
type ResultCache interface {
	InvalidateAssignment(ctx context.Context, assignmentID uint)
	InvalidateStudent(ctx context.Context, studentID uint)
}

type redisResultCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewResultCache returns a redis-backed invalidator; a nil client yields a no-op.
func NewResultCache(client *redis.Client, logger zerolog.Logger) ResultCache {
	return &redisResultCache{
		client: client,
		logger: logger.With().Str("component", "result_cache").Logger(),
	}
}

func (c *redisResultCache) InvalidateAssignment(ctx context.Context, assignmentID uint) {
	c.del(ctx, leaderboardCacheKey(assignmentID))
	c.del(ctx, analyticsCacheKey(assignmentID))
}

func (c *redisResultCache) InvalidateStudent(ctx context.Context, studentID uint) {
	c.del(ctx, dashboardCacheKey(studentID))
}

func (c *redisResultCache) del(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate cache entry")
	}
}
