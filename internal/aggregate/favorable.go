package aggregate

import "github.com/xela07ax/devpulse/internal/domain"

// favorable единственный источник правды о том, какое направление метрики считается улучшением.
// Ключи покрывают и имена рядов, и скалярные метрики сущностей.
var favorable = map[string]domain.Direction{
	// Чем больше, тем лучше
	domain.MetricDeploymentFrequency: domain.DirectionUp,
	domain.MetricFlowEfficiency:      domain.DirectionUp,
	domain.MetricThroughput:          domain.DirectionUp,
	"deployFrequency":                domain.DirectionUp,
	"velocity":                       domain.DirectionUp,
	"efficiency":                     domain.DirectionUp,
	"codeQuality":                    domain.DirectionUp,
	"testCoverage":                   domain.DirectionUp,
	"satisfaction":                   domain.DirectionUp,
	"qualityScore":                   domain.DirectionUp,

	// Чем меньше, тем лучше
	domain.MetricLeadTime:          domain.DirectionDown,
	domain.MetricChangeFailureRate: domain.DirectionDown,
	domain.MetricTimeToRestore:     domain.DirectionDown,
	domain.MetricWIP:               domain.DirectionDown,
	domain.MetricCycleTime:         domain.DirectionDown,
	"failureRate":                  domain.DirectionDown,
	"mttr":                         domain.DirectionDown,
	"techDebt":                     domain.DirectionDown,
	"bugRate":                      domain.DirectionDown,
}

// Favorable благоприятное направление метрики; ok=false для неизвестных.
func Favorable(metric string) (domain.Direction, bool) {
	d, ok := favorable[metric]
	return d, ok
}

// IsImprovement говорит, является ли движение метрики в direction улучшением.
// flat и метрики вне таблицы улучшением не считаются.
func IsImprovement(metric string, direction domain.Direction) bool {
	if direction == domain.DirectionFlat {
		return false
	}
	want, ok := favorable[metric]
	return ok && want == direction
}
