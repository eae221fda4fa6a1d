package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/aggregate"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

const (
	predictionHorizonDays = 30
	minPredictionPoints   = 3
)

// InsightService жизненный цикл инсайтов и рекомендаций, прогнозы и правила анализа.
type InsightService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewInsightService(st *store.Store, logger *zap.Logger) *InsightService {
	return &InsightService{store: st, logger: logger.Named("insight-service")}
}

// Insights список с необязательными фильтрами по статусу и типу.
// Нераспознанные значения фильтров игнорируются.
func (s *InsightService) Insights(_ context.Context, status, kind string) []domain.Insight {
	all := s.store.Journal().Insights()
	st, stErr := domain.ParseStatus(status)

	out := make([]domain.Insight, 0, len(all))
	for _, in := range all {
		if stErr == nil && in.Status != st {
			continue
		}
		if isInsightType(kind) && string(in.Type) != kind {
			continue
		}
		out = append(out, in)
	}
	return out
}

func (s *InsightService) Insight(_ context.Context, id int) (domain.Insight, error) {
	return s.store.Journal().Insight(id)
}

// UpdateInsightStatus явное действие пользователя над инсайтом.
func (s *InsightService) UpdateInsightStatus(_ context.Context, id int, status string) (domain.Insight, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Insight{}, err
	}
	in, err := s.store.Journal().UpdateInsightStatus(id, st)
	if err != nil {
		return domain.Insight{}, err
	}
	s.logger.Info("insight status changed", zap.Int("id", id), zap.String("status", string(st)))
	return in, nil
}

func (s *InsightService) Recommendations(_ context.Context, status string) []domain.Recommendation {
	all := s.store.Journal().Recommendations()
	st, err := domain.ParseStatus(status)
	if err != nil {
		return all
	}
	out := make([]domain.Recommendation, 0, len(all))
	for _, r := range all {
		if r.Status == st {
			out = append(out, r)
		}
	}
	return out
}

func (s *InsightService) UpdateRecommendationStatus(_ context.Context, id int, status string) (domain.Recommendation, error) {
	st, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Recommendation{}, err
	}
	r, err := s.store.Journal().UpdateRecommendationStatus(id, st)
	if err != nil {
		return domain.Recommendation{}, err
	}
	s.logger.Info("recommendation status changed", zap.Int("id", id), zap.String("status", string(st)))
	return r, nil
}

// Predictions линейный прогноз каждого DORA/Flow ряда на следующий период.
// Ряды короче трёх точек пропускаются: прогноз по ним ничего не говорит.
func (s *InsightService) Predictions(_ context.Context) []domain.Prediction {
	groups := []struct {
		kind       string
		names      []string
		confidence float64
	}{
		{"dora", domain.DoraMetrics, 75},
		{"flow", domain.FlowMetrics, 70},
	}

	var out []domain.Prediction
	for _, g := range groups {
		for _, name := range g.names {
			ser, err := s.store.Series(name)
			if err != nil || len(ser.Points) < minPredictionPoints {
				continue
			}
			f, err := aggregate.Predict(ser)
			if err != nil {
				continue
			}
			out = append(out, domain.Prediction{
				Metric:         name,
				MetricType:     g.kind,
				CurrentValue:   f.Current,
				PredictedValue: f.Predicted,
				Confidence:     g.confidence,
				HorizonDays:    predictionHorizonDays,
				Trend:          f.Direction,
				ChangeRate:     f.ChangeRate,
				Series:         ser.Points,
			})
		}
	}
	return out
}

// rule порог на последнее значение ряда.
type rule struct {
	metric   string
	breached func(v float64) bool
	title    string
	format   string // описание, подставляется текущее значение
	kind     domain.InsightType
	severity domain.Severity
	conf     float64
	actions  []string
}

var rules = []rule{
	{
		metric:   domain.MetricDeploymentFrequency,
		breached: func(v float64) bool { return v < 4 },
		title:    "Low deployment frequency",
		format:   "Deployments run %.1f times per month, less than weekly. Invest in deployment automation.",
		kind:     domain.InsightPerformance, severity: domain.SeverityMedium, conf: 85,
		actions: []string{"Automate the CI/CD pipeline", "Remove manual release steps", "Monitor deployments"},
	},
	{
		metric:   domain.MetricLeadTime,
		breached: func(v float64) bool { return v > 7 },
		title:    "Lead time for changes is too long",
		format:   "Changes take %.1f days to reach production, which slows delivery.",
		kind:     domain.InsightPerformance, severity: domain.SeverityHigh, conf: 90,
		actions: []string{"Streamline code review", "Reduce batch size", "Parallelize development work"},
	},
	{
		metric:   domain.MetricChangeFailureRate,
		breached: func(v float64) bool { return v > 15 },
		title:    "High change failure rate",
		format:   "%.1f%% of changes fail in production. Strengthen quality gates.",
		kind:     domain.InsightQuality, severity: domain.SeverityHigh, conf: 88,
		actions: []string{"Raise test coverage", "Adopt progressive delivery", "Rehearse rollbacks"},
	},
	{
		metric:   domain.MetricFlowEfficiency,
		breached: func(v float64) bool { return v < 20 },
		title:    "Low flow efficiency",
		format:   "Flow efficiency is %.1f%%, work spends most of its time waiting.",
		kind:     domain.InsightPerformance, severity: domain.SeverityMedium, conf: 82,
		actions: []string{"Find and remove bottlenecks", "Reduce context switching", "Simplify the workflow"},
	},
	{
		metric:   domain.MetricWIP,
		breached: func(v float64) bool { return v > 10 },
		title:    "Too much work in progress",
		format:   "%.0f items are in progress at once, which stretches cycle time.",
		kind:     domain.InsightRisk, severity: domain.SeverityMedium, conf: 75,
		actions: []string{"Set WIP limits", "Finish started work first", "Raise the completion rate"},
	},
}

// regressionThreshold ухудшение к прошлому периоду (%), после которого создаётся инсайт.
const regressionThreshold = 10

// AnalyzeInsights прогоняет правила по последним значениям и регистрирует новые инсайты.
// Повторный вызов не плодит дубликаты: инсайт с тем же заголовком, ещё не закрытый, пропускается.
func (s *InsightService) AnalyzeInsights(_ context.Context) []domain.Insight {
	candidates := s.candidates()

	active := make(map[string]bool)
	for _, in := range s.store.Journal().Insights() {
		if in.Status == domain.StatusOpen || in.Status == domain.StatusInProgress {
			active[strings.ToLower(in.Title)] = true
		}
	}

	created := make([]domain.Insight, 0, len(candidates))
	for _, c := range candidates {
		if active[strings.ToLower(c.Title)] {
			continue
		}
		created = append(created, s.store.Journal().AddInsight(c))
		active[strings.ToLower(c.Title)] = true
	}
	s.logger.Info("insight analysis finished",
		zap.Int("candidates", len(candidates)), zap.Int("created", len(created)))
	return created
}

func (s *InsightService) candidates() []domain.Insight {
	var out []domain.Insight

	// 1. Пороги
	for _, r := range rules {
		ser, err := s.store.Series(r.metric)
		if err != nil {
			continue
		}
		v, err := aggregate.Latest(ser)
		if err != nil || !r.breached(v) {
			continue
		}
		out = append(out, domain.Insight{
			Title:       r.title,
			Description: fmt.Sprintf(r.format, v),
			Type:        r.kind,
			Severity:    r.severity,
			Confidence:  r.conf,
			Metrics:     []string{r.metric},
			Actions:     r.actions,
		})
	}

	// 2. Регрессии к прошлому периоду
	for _, name := range trackedSeries() {
		ser, err := s.store.Series(name)
		if err != nil {
			continue
		}
		ch := aggregate.Change(ser)
		if ch.Direction == domain.DirectionFlat || ch.Improving {
			continue
		}
		if _, known := aggregate.Favorable(name); !known || math.Abs(ch.PercentChange) < regressionThreshold {
			continue
		}
		out = append(out, domain.Insight{
			Title:       fmt.Sprintf("%s regressed", name),
			Description: fmt.Sprintf("%s moved %s by %.2f%% against the previous period.", name, ch.Direction, math.Abs(ch.PercentChange)),
			Type:        domain.InsightProcess,
			Severity:    domain.SeverityMedium,
			Confidence:  70,
			Metrics:     []string{name},
		})
	}

	// 3. Удовлетворённость команд (шкала 0-5)
	for _, t := range s.store.Teams() {
		if t.Satisfaction >= 3.5 {
			continue
		}
		out = append(out, domain.Insight{
			Title:       fmt.Sprintf("%s team satisfaction is low", t.Name),
			Description: fmt.Sprintf("Satisfaction of %s is %.1f out of 5.", t.Name, t.Satisfaction),
			Type:        domain.InsightCollaboration,
			Severity:    domain.SeverityHigh,
			Confidence:  80,
			RelatedTeam: t.Name,
			Metrics:     []string{"satisfaction"},
			Actions:     []string{"Run a team retrospective", "Review workload", "Offer skills training"},
		})
	}
	return out
}

func isInsightType(kind string) bool {
	switch domain.InsightType(kind) {
	case domain.InsightQuality, domain.InsightProcess, domain.InsightPerformance,
		domain.InsightRisk, domain.InsightCollaboration:
		return true
	}
	return false
}
