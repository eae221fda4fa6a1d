package store

import (
	"context"

	"github.com/xela07ax/devpulse/internal/domain"
)

// Source граница между хранилищем и происхождением данных.
// Сейчас это фикстуры или read-only выгрузка из Postgres; реальный пайплайн
// сбора (git/CI/трекеры) подключается здесь же, не трогая агрегатор и сервисы.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Snapshot всё, что нужно для построения Store при старте процесса.
type Snapshot struct {
	Series          []domain.MetricSeries
	Teams           []domain.Team
	Projects        []domain.Project
	Members         []domain.Member
	Activities      []domain.Activity
	Insights        []domain.Insight
	Recommendations []domain.Recommendation
}
