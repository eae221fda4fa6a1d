package infra

import (
	"fmt"
	"strings"
)

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "devpulse"
)

// Ключи кэша статистики репозиториев
const (
	RedisKeyRepoStats = RedisNamespace + ":github:stats:"
)

// RepoStatsKey ключ кэша для owner/repo. Регистр не важен: GitHub его не различает.
func RepoStatsKey(owner, repo string) string {
	return fmt.Sprintf("%s%s/%s", RedisKeyRepoStats, strings.ToLower(owner), strings.ToLower(repo))
}
