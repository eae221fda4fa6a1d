package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/connectors"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/fixtures"
	"github.com/xela07ax/devpulse/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(fixtures.Snapshot())
	require.NoError(t, err)
	return st
}

func TestDashboard(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())

	d, err := svc.Dashboard(context.Background(), domain.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 15.2, d.Metrics[domain.MetricDeploymentFrequency])
	assert.Equal(t, 4.83, d.Changes[domain.MetricDeploymentFrequency].PercentChange)
	assert.Equal(t, domain.DirectionUp, d.Changes[domain.MetricDeploymentFrequency].Direction)
	assert.True(t, d.Changes[domain.MetricDeploymentFrequency].Improving)

	// leadTime падает, и это улучшение
	assert.Equal(t, domain.DirectionDown, d.Changes[domain.MetricLeadTime].Direction)
	assert.True(t, d.Changes[domain.MetricLeadTime].Improving)

	assert.Len(t, d.Metrics, 8)
	assert.Len(t, d.Trends[domain.MetricThroughput], 6)

	require.Len(t, d.TeamRanking, 4)
	assert.Equal(t, "Mobile", d.TeamRanking[0].Name)
	assert.Equal(t, "Backend", d.TeamRanking[3].Name)
	assert.Equal(t, "Frontend", d.TeamPerformance[0].Name)

	require.Len(t, d.RecentActivity, 5)
	assert.Equal(t, int64(1), d.RecentActivity[0].ID)
	assert.Equal(t, int64(5), d.RecentActivity[4].ID)
}

func TestBenchmarks(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())

	report, err := svc.Benchmarks(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Metrics, 4)

	tiers := map[string]domain.Tier{}
	for _, b := range report.Metrics {
		tiers[b.Metric] = b.Tier
	}
	assert.Equal(t, map[string]domain.Tier{
		domain.MetricDeploymentFrequency: domain.TierHigh,
		domain.MetricLeadTime:            domain.TierHigh,
		domain.MetricChangeFailureRate:   domain.TierElite,
		domain.MetricTimeToRestore:       domain.TierElite,
	}, tiers)
	assert.Equal(t, domain.TierHigh, report.Overall)
	assert.Equal(t, 30.0, report.Metrics[0].NextThreshold)
}

func TestCompareTeams(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())
	ctx := context.Background()

	all, err := svc.CompareTeams(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all.Teams, 4)
	assert.Equal(t, "Mobile", all.Leaders["efficiency"])
	assert.Equal(t, "DevOps", all.Leaders["leadTime"])
	assert.Equal(t, "DevOps", all.Leaders["mttr"])
	assert.Equal(t, []domain.NamedValue{
		{Name: "DevOps", Value: 1.5}, {Name: "Frontend", Value: 1.8}, {Name: "Backend", Value: 2.3}, {Name: "Mobile", Value: 2.7},
	}, all.Rankings["leadTime"])

	pair, err := svc.CompareTeams(ctx, []int{2, 1, 2})
	require.NoError(t, err)
	require.Len(t, pair.Teams, 2)
	assert.Equal(t, "Backend", pair.Teams[0].Name)
	assert.Equal(t, "Frontend", pair.Leaders["efficiency"])
	assert.Equal(t, "Frontend", pair.Leaders["failureRate"])
	assert.Len(t, pair.Rankings["velocity"], 2)

	_, err = svc.CompareTeams(ctx, []int{1, 42})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDashboardFilters(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())

	d, err := svc.Dashboard(context.Background(), domain.Filter{TimeRange: "3m", Team: "devops", Project: "2"})
	require.NoError(t, err)
	assert.Len(t, d.Trends[domain.MetricLeadTime], 3)
	assert.Equal(t, []domain.NamedValue{{Name: "DevOps", Value: 88}}, d.TeamRanking)
	require.Len(t, d.RecentActivity, 1)
	assert.Equal(t, "Mobile App Upgrade", d.RecentActivity[0].Project)

	// Нераспознанные значения фильтров игнорируются
	d, err = svc.Dashboard(context.Background(), domain.Filter{TimeRange: "fortnight", Team: "Marketing"})
	require.NoError(t, err)
	assert.Len(t, d.Trends[domain.MetricLeadTime], 6)
	assert.Len(t, d.TeamRanking, 4)
}

func TestRecentActivityLimit(t *testing.T) {
	st := newStore(t)
	svc := NewMetricsService(st, zap.NewNop())
	for i := 0; i < 12; i++ {
		_, err := svc.RecordActivity(context.Background(), domain.Activity{Type: domain.ActivityCode, Description: "commit"})
		require.NoError(t, err)
	}

	d, err := svc.Dashboard(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, d.RecentActivity, DefaultRecentActivity)
	assert.Equal(t, "commit", d.RecentActivity[0].Description)

	assert.Len(t, svc.Activities(context.Background(), 3), 3)
}

func TestAnalytics(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())

	a, err := svc.Analytics(context.Background(), domain.Filter{TimeRange: "6m", Project: "Storefront Re-architecture"})
	require.NoError(t, err)

	assert.Len(t, a.DoraMetrics, 4)
	assert.Len(t, a.FlowMetrics, 4)
	assert.Len(t, a.QualityMetrics.CodeQuality, 4)
	assert.Equal(t, []domain.NamedValue{{Name: "Storefront Re-architecture", Value: 2.8}}, a.QualityMetrics.BugRate)
	assert.Equal(t, domain.Filter{TimeRange: "6m", Project: "Storefront Re-architecture"}, a.Filter)

	// Роллапы сохраняют порядок команд
	names := make([]string, 0, 4)
	for _, v := range a.TeamMetrics.Efficiency {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"Frontend", "Backend", "Mobile", "DevOps"}, names)
}

func TestEntities(t *testing.T) {
	svc := NewMetricsService(newStore(t), zap.NewNop())
	ctx := context.Background()

	assert.Len(t, svc.Teams(ctx), 4)
	assert.Len(t, svc.Projects(ctx), 3)
	assert.Len(t, svc.Members(ctx, ""), 8)
	assert.Len(t, svc.Members(ctx, "frontend"), 4)
	assert.Len(t, svc.Members(ctx, "nobody"), 8)

	_, err := svc.Team(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Series(ctx, "nope", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s, err := svc.Series(ctx, domain.MetricCycleTime, "1m")
	require.NoError(t, err)
	assert.Equal(t, []domain.MetricPoint{{Period: "2023-11", Value: 8.5}}, s.Points)
}

func TestInsightLifecycle(t *testing.T) {
	svc := NewInsightService(newStore(t), zap.NewNop())
	ctx := context.Background()

	assert.Len(t, svc.Insights(ctx, "", ""), 5)
	assert.Len(t, svc.Insights(ctx, "open", ""), 4)
	assert.Len(t, svc.Insights(ctx, "", "risk"), 1)
	assert.Len(t, svc.Insights(ctx, "weird", "weird"), 5)

	in, err := svc.UpdateInsightStatus(ctx, 1, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, in.Status)

	_, err = svc.UpdateInsightStatus(ctx, 1, "open")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.UpdateInsightStatus(ctx, 1, "later")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateInsightStatus(ctx, 77, "closed")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	r, err := svc.UpdateRecommendationStatus(ctx, 2, "resolved")
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Progress)
	assert.Len(t, svc.Recommendations(ctx, "resolved"), 2)
}

func TestPredictions(t *testing.T) {
	svc := NewInsightService(newStore(t), zap.NewNop())

	preds := svc.Predictions(context.Background())
	require.Len(t, preds, 8)

	byMetric := make(map[string]domain.Prediction)
	for _, p := range preds {
		byMetric[p.Metric] = p
	}
	df := byMetric[domain.MetricDeploymentFrequency]
	assert.Equal(t, "dora", df.MetricType)
	assert.Equal(t, 15.2, df.CurrentValue)
	assert.Greater(t, df.PredictedValue, df.CurrentValue)
	assert.Equal(t, domain.DirectionUp, df.Trend)
	assert.Equal(t, "flow", byMetric[domain.MetricWIP].MetricType)
	assert.Equal(t, domain.DirectionDown, byMetric[domain.MetricWIP].Trend)
}

func TestAnalyzeInsightsIsIdempotent(t *testing.T) {
	svc := NewInsightService(newStore(t), zap.NewNop())
	ctx := context.Background()

	created := svc.AnalyzeInsights(ctx)
	require.Len(t, created, 1)
	assert.Equal(t, "Too much work in progress", created[0].Title)
	assert.Equal(t, 6, created[0].ID)
	assert.Equal(t, domain.StatusOpen, created[0].Status)

	assert.Empty(t, svc.AnalyzeInsights(ctx))
	assert.Len(t, svc.Insights(ctx, "", ""), 6)
}

type fakeLLM struct {
	got    []connectors.Message
	answer string
	err    error
}

func (f *fakeLLM) Complete(_ context.Context, _ string, messages []connectors.Message) (string, error) {
	f.got = messages
	return f.answer, f.err
}

func TestChatNotConfigured(t *testing.T) {
	svc := NewIntegrationService(Integrations{}, zap.NewNop())

	_, err := svc.Chat(context.Background(), domain.ChatRequest{Question: "hi"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = svc.GenerateInsight(context.Background(), domain.InsightRequest{Topic: "x"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = svc.RepoStats(context.Background(), "a", "b")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	assert.Equal(t, map[string]bool{"openai": false, "github": false, "cache": false}, svc.Enabled())
}

func TestChatBuildsConversation(t *testing.T) {
	llm := &fakeLLM{answer: "Cut batch size."}
	svc := NewIntegrationService(Integrations{LLM: llm}, zap.NewNop())

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		Question: " How to cut lead time? ",
		History: []domain.ChatTurn{
			{Question: "What is DORA?", Answer: "Four metrics."},
			{Question: "Unanswered"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "How to cut lead time?", resp.Question)
	assert.Equal(t, "Cut batch size.", resp.Answer)
	assert.False(t, resp.Timestamp.IsZero())

	roles := make([]string, len(llm.got))
	for i, m := range llm.got {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user", "user"}, roles)

	_, err = svc.Chat(context.Background(), domain.ChatRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatSurfacesUpstreamFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.Join(domain.ErrUpstream, errors.New("503"))}
	svc := NewIntegrationService(Integrations{LLM: llm}, zap.NewNop())

	_, err := svc.Chat(context.Background(), domain.ChatRequest{Question: "q"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

type fakeGitHub struct{ calls int }

func (f *fakeGitHub) RepoStats(context.Context, string, string) (domain.RepoStats, error) {
	f.calls++
	return domain.RepoStats{CommitActivity: json.RawMessage(`[1]`)}, nil
}

type mapCache map[string]domain.RepoStats

func (m mapCache) Get(_ context.Context, owner, repo string) (domain.RepoStats, bool) {
	s, ok := m[owner+"/"+repo]
	return s, ok
}

func (m mapCache) Set(_ context.Context, owner, repo string, s domain.RepoStats) {
	m[owner+"/"+repo] = s
}

func TestRepoStatsUsesCache(t *testing.T) {
	gh := &fakeGitHub{}
	svc := NewIntegrationService(Integrations{GitHub: gh, Cache: mapCache{}}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		stats, err := svc.RepoStats(ctx, "acme", "api")
		require.NoError(t, err)
		assert.JSONEq(t, `[1]`, string(stats.CommitActivity))
	}
	assert.Equal(t, 1, gh.calls)

	for _, repo := range []string{"../etc", "..", ""} {
		_, err := svc.RepoStats(ctx, "acme", repo)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, repo)
	}
	assert.Equal(t, 1, gh.calls)
}
