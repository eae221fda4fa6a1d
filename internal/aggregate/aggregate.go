// Package aggregate выводит из рядов и сущностей то, что показывает дашборд:
// последнее значение, тренд к предыдущему периоду, роллапы и рейтинги.
// Все функции чистые и не держат состояния.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/xela07ax/devpulse/internal/domain"
)

// Latest значение последней точки ряда.
func Latest(s domain.MetricSeries) (float64, error) {
	if len(s.Points) == 0 {
		return 0, fmt.Errorf("series %q: %w", s.Name, domain.ErrEmptySeries)
	}
	return s.Points[len(s.Points)-1].Value, nil
}

// TrendOf сравнивает две последние точки.
// Меньше двух точек дают нейтральный тренд. При нулевой базе процент равен 0,
// а направление всё равно берётся из сырого сравнения.
func TrendOf(s domain.MetricSeries) domain.Trend {
	n := len(s.Points)
	if n < 2 {
		return domain.Trend{Direction: domain.DirectionFlat}
	}
	prev, last := s.Points[n-2].Value, s.Points[n-1].Value

	t := domain.Trend{Direction: direction(prev, last)}
	if prev != 0 {
		t.PercentChange = round2((last - prev) / prev * 100)
	}
	return t
}

// Change тренд ряда вместе с оценкой по таблице благоприятных направлений.
func Change(s domain.MetricSeries) domain.Change {
	t := TrendOf(s)
	return domain.Change{Trend: t, Improving: IsImprovement(s.Name, t.Direction)}
}

func direction(prev, last float64) domain.Direction {
	switch {
	case last > prev:
		return domain.DirectionUp
	case last < prev:
		return domain.DirectionDown
	}
	return domain.DirectionFlat
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rollup проецирует скалярную метрику на все сущности в исходном порядке.
// Сущности без такой метрики пропускаются.
func Rollup[E domain.Entity](entities []E, key string) []domain.NamedValue {
	out := make([]domain.NamedValue, 0, len(entities))
	for _, e := range entities {
		v, ok := e.Metric(key)
		if !ok {
			continue
		}
		out = append(out, domain.NamedValue{Name: e.EntityName(), Value: v})
	}
	return out
}

// Rank то же, что Rollup, но по убыванию значения. Равные сохраняют входной порядок.
func Rank[E domain.Entity](entities []E, key string) []domain.NamedValue {
	out := Rollup(entities, key)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}
