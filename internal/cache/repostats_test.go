package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

func TestUnavailableRedisIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	m := infra.NewMetrics(prometheus.NewRegistry())
	c := NewRepoStats(rdb, time.Minute, m, zap.NewNop())

	_, ok := c.Get(context.Background(), "acme", "api")
	assert.False(t, ok)

	// Запись тоже не паникует и не возвращает ошибку наверх
	c.Set(context.Background(), "acme", "api", domain.RepoStats{CommitActivity: json.RawMessage(`[]`)})
}

func TestRepoStatsKeyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, infra.RepoStatsKey("Acme", "API"), infra.RepoStatsKey("acme", "api"))
	assert.Equal(t, "devpulse:github:stats:acme/api", infra.RepoStatsKey("acme", "api"))
}
