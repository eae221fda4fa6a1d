// Package cache держит ответы внешних API в Redis, чтобы не упираться в их лимиты.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

// RepoStats кэш статистики репозиториев. Ошибки Redis не фатальны: промах и запись в лог.
type RepoStats struct {
	rdb     redis.Cmdable
	ttl     time.Duration
	metrics *infra.Metrics
	logger  *zap.Logger
}

func NewRepoStats(rdb redis.Cmdable, ttl time.Duration, metrics *infra.Metrics, logger *zap.Logger) *RepoStats {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &RepoStats{rdb: rdb, ttl: ttl, metrics: metrics, logger: logger.Named("cache")}
}

func (c *RepoStats) Get(ctx context.Context, owner, repo string) (domain.RepoStats, bool) {
	key := infra.RepoStatsKey(owner, repo)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.CacheRequests.WithLabelValues("miss").Inc()
		} else {
			c.metrics.CacheRequests.WithLabelValues("error").Inc()
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return domain.RepoStats{}, false
	}

	var stats domain.RepoStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("corrupted cache entry", zap.String("key", key), zap.Error(err))
		return domain.RepoStats{}, false
	}
	c.metrics.CacheRequests.WithLabelValues("hit").Inc()
	return stats, true
}

// Set сохраняет статистику. Незавершённые (Pending) ответы не кэшируются.
func (c *RepoStats) Set(ctx context.Context, owner, repo string, stats domain.RepoStats) {
	if stats.Pending {
		return
	}
	key := infra.RepoStatsKey(owner, repo)

	raw, err := json.Marshal(stats)
	if err != nil {
		c.logger.Error("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
