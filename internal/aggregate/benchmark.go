package aggregate

import (
	"fmt"
	"sort"

	"github.com/xela07ax/devpulse/internal/domain"
)

// tierBounds границы elite, high, medium в единицах рядов. Всё, что хуже medium, это low.
var tierBounds = map[string][3]float64{
	domain.MetricDeploymentFrequency: {30, 4, 1},        // деплоев в месяц
	domain.MetricLeadTime:            {1, 7, 30},        // дни
	domain.MetricChangeFailureRate:   {5, 15, 30},       // %
	domain.MetricTimeToRestore:       {60, 1440, 10080}, // минуты
}

// Classify относит значение метрики к уровню DORA с учётом благоприятного направления.
func Classify(metric string, value float64) (domain.Benchmark, error) {
	bounds, ok := tierBounds[metric]
	if !ok {
		return domain.Benchmark{}, fmt.Errorf("%w: no benchmark for metric %q", domain.ErrInvalidInput, metric)
	}
	lowerIsBetter := favorable[metric] == domain.DirectionDown

	idx := len(bounds)
	for i, bound := range bounds {
		if (lowerIsBetter && value <= bound) || (!lowerIsBetter && value >= bound) {
			idx = i
			break
		}
	}

	b := domain.Benchmark{Metric: metric, Value: value, Tier: domain.Tiers[idx]}
	if idx > 0 {
		b.NextTier = domain.Tiers[idx-1]
		b.NextThreshold = bounds[idx-1]
	}
	return b, nil
}

// WorstTier худший уровень из набора; пустая строка для пустого набора.
func WorstTier(benchmarks []domain.Benchmark) domain.Tier {
	worst := -1
	for _, b := range benchmarks {
		for i, t := range domain.Tiers {
			if t == b.Tier && i > worst {
				worst = i
			}
		}
	}
	if worst < 0 {
		return ""
	}
	return domain.Tiers[worst]
}

// RankBest упорядочивает сущности от лучшего значения к худшему по таблице направлений.
// Для метрик вне таблицы совпадает с Rank.
func RankBest[E domain.Entity](entities []E, key string) []domain.NamedValue {
	if favorable[key] != domain.DirectionDown {
		return Rank(entities, key)
	}
	out := Rollup(entities, key)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out
}
