package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/aggregate"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

// DefaultRecentActivity сколько событий показывает дашборд.
const DefaultRecentActivity = 10

// MetricsService отвечает на read-only запросы дашборда.
// Ответ является чистой функцией от Store и журнала, кэш не нужен.
type MetricsService struct {
	store       *store.Store
	logger      *zap.Logger
	now         func() time.Time
	recentLimit int
}

func NewMetricsService(st *store.Store, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		store:       st,
		logger:      logger.Named("metrics-service"),
		now:         time.Now,
		recentLimit: DefaultRecentActivity,
	}
}

// Dashboard сводка главной страницы: последние значения DORA/Flow, тренды,
// производительность и рейтинг команд, свежие события.
func (s *MetricsService) Dashboard(_ context.Context, f domain.Filter) (*domain.DashboardSummary, error) {
	sc := resolve(s.store, f)

	out := &domain.DashboardSummary{
		Metrics:     make(map[string]float64),
		Changes:     make(map[string]domain.Change),
		Trends:      make(map[string][]domain.MetricPoint),
		GeneratedAt: s.now().UTC(),
	}

	// 1. Канонические ряды: пропускаем отсутствующие в источнике
	for _, name := range trackedSeries() {
		ser, err := s.store.Series(name)
		if err != nil {
			continue
		}
		ser = ser.Tail(sc.periods)
		out.Trends[name] = ser.Points

		latest, err := aggregate.Latest(ser)
		if errors.Is(err, domain.ErrEmptySeries) {
			continue
		}
		out.Metrics[name] = latest
		out.Changes[name] = aggregate.Change(ser)
	}

	// 2. Команды
	teams := sc.teams(s.store.Teams())
	out.TeamPerformance = make([]domain.TeamPerformance, 0, len(teams))
	for _, t := range teams {
		out.TeamPerformance = append(out.TeamPerformance, domain.TeamPerformance{
			Name: t.Name, Efficiency: t.Efficiency, Velocity: t.Velocity,
		})
	}
	out.TeamRanking = aggregate.Rank(teams, "efficiency")

	// 3. Свежие события, новые первыми
	out.RecentActivity = head(sc.activities(s.store.Journal().Activities(0)), s.recentLimit)

	return out, nil
}

// Analytics полный набор рядов и роллапов для страницы аналитики.
func (s *MetricsService) Analytics(_ context.Context, f domain.Filter) (*domain.Analytics, error) {
	sc := resolve(s.store, f)
	teams := sc.teams(s.store.Teams())
	projects := sc.projects(s.store.Projects())

	out := &domain.Analytics{
		DoraMetrics: s.bundle(domain.DoraMetrics, sc.periods),
		FlowMetrics: s.bundle(domain.FlowMetrics, sc.periods),
		QualityMetrics: domain.QualityRollup{
			CodeQuality:  aggregate.Rollup(teams, "codeQuality"),
			TestCoverage: aggregate.Rollup(teams, "testCoverage"),
			BugRate:      aggregate.Rollup(projects, "bugRate"),
		},
		TeamMetrics: domain.TeamRollup{
			Efficiency:   aggregate.Rollup(teams, "efficiency"),
			Velocity:     aggregate.Rollup(teams, "velocity"),
			Satisfaction: aggregate.Rollup(teams, "satisfaction"),
		},
		Filter: sc.applied,
	}
	return out, nil
}

func (s *MetricsService) bundle(names []string, periods int) map[string][]domain.MetricPoint {
	out := make(map[string][]domain.MetricPoint, len(names))
	for _, name := range names {
		ser, err := s.store.Series(name)
		if err != nil {
			continue
		}
		out[name] = ser.Tail(periods).Points
	}
	return out
}

// Series один ряд по имени с необязательным ограничением по периоду.
func (s *MetricsService) Series(_ context.Context, name, timeRange string) (domain.MetricSeries, error) {
	ser, err := s.store.Series(name)
	if err != nil {
		return domain.MetricSeries{}, err
	}
	return ser.Tail(timeRanges[strings.ToLower(timeRange)]), nil
}

func (s *MetricsService) Teams(_ context.Context) []domain.Team {
	return s.store.Teams()
}

func (s *MetricsService) Team(_ context.Context, id int) (domain.Team, error) {
	return s.store.Team(id)
}

// Members участники команд; team это id или имя, нераспознанное значение даёт всех.
func (s *MetricsService) Members(_ context.Context, team string) []domain.Member {
	all := s.store.Members()
	t, ok := s.store.FindTeam(team)
	if !ok {
		return all
	}
	out := make([]domain.Member, 0, len(all))
	for _, m := range all {
		if strings.EqualFold(m.Team, t.Name) {
			out = append(out, m)
		}
	}
	return out
}

func (s *MetricsService) Projects(_ context.Context) []domain.Project {
	return s.store.Projects()
}

func (s *MetricsService) Project(_ context.Context, id int) (domain.Project, error) {
	return s.store.Project(id)
}

// Activities до limit последних событий. limit <= 0: значение по умолчанию.
func (s *MetricsService) Activities(_ context.Context, limit int) []domain.Activity {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.store.Journal().Activities(limit)
}

// Benchmarks уровни DORA по последним значениям канонических рядов.
func (s *MetricsService) Benchmarks(_ context.Context) (*domain.BenchmarkReport, error) {
	out := &domain.BenchmarkReport{
		Metrics:     make([]domain.Benchmark, 0, len(domain.DoraMetrics)),
		GeneratedAt: s.now().UTC(),
	}
	for _, name := range domain.DoraMetrics {
		ser, err := s.store.Series(name)
		if err != nil {
			continue
		}
		latest, err := aggregate.Latest(ser)
		if err != nil {
			continue
		}
		b, err := aggregate.Classify(name, latest)
		if err != nil {
			return nil, fmt.Errorf("benchmarks: %w", err)
		}
		out.Metrics = append(out.Metrics, b)
	}
	out.Overall = aggregate.WorstTier(out.Metrics)
	return out, nil
}

// comparisonMetrics метрики, по которым сравниваются команды.
var comparisonMetrics = []string{
	"efficiency", "velocity", "satisfaction", "qualityScore",
	"deployFrequency", "leadTime", "failureRate", "mttr",
}

// CompareTeams рейтинги команд по каждой метрике сравнения. Пустой ids означает все команды,
// неизвестный id даёт ErrNotFound, повторы игнорируются.
func (s *MetricsService) CompareTeams(_ context.Context, ids []int) (*domain.TeamComparison, error) {
	teams := s.store.Teams()
	if len(ids) > 0 {
		teams = make([]domain.Team, 0, len(ids))
		seen := make(map[int]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			t, err := s.store.Team(id)
			if err != nil {
				return nil, fmt.Errorf("compare teams: %w", err)
			}
			teams = append(teams, t)
		}
	}

	out := &domain.TeamComparison{
		Teams:    teams,
		Rankings: make(map[string][]domain.NamedValue, len(comparisonMetrics)),
		Leaders:  make(map[string]string, len(comparisonMetrics)),
	}
	for _, key := range comparisonMetrics {
		ranking := aggregate.RankBest(teams, key)
		out.Rankings[key] = ranking
		if len(ranking) > 0 {
			out.Leaders[key] = ranking[0].Name
		}
	}
	return out, nil
}

// RecordActivity дописывает событие в журнал (внешний поток событий).
func (s *MetricsService) RecordActivity(_ context.Context, a domain.Activity) (domain.Activity, error) {
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	stored, err := s.store.Journal().AppendActivity(a)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("record activity: %w", err)
	}
	s.logger.Debug("activity recorded",
		zap.Int64("id", stored.ID), zap.String("type", string(stored.Type)), zap.String("project", stored.Project))
	return stored, nil
}

func trackedSeries() []string {
	out := make([]string, 0, len(domain.DoraMetrics)+len(domain.FlowMetrics))
	out = append(out, domain.DoraMetrics...)
	return append(out, domain.FlowMetrics...)
}

func head[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
