package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/devpulse/internal/console/handler"
	"github.com/xela07ax/devpulse/internal/console/service"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/fixtures"
	"github.com/xela07ax/devpulse/internal/infra"
	"github.com/xela07ax/devpulse/internal/realtime"
	"github.com/xela07ax/devpulse/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	st, err := store.Load(context.Background(), fixtures.Source{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)
	integrations := service.NewIntegrationService(service.Integrations{}, logger)
	notifier := realtime.NewNotifier(st, realtime.Options{Interval: 10 * time.Millisecond, Gauge: metrics.RealtimeConnections}, logger)
	t.Cleanup(notifier.Close)

	api := NewAPIServer(Deps{
		Logger:             logger,
		Metrics:            metrics,
		Gatherer:           reg,
		MetricsHandler:     handler.NewMetricsHandler(service.NewMetricsService(st, logger), logger),
		InsightHandler:     handler.NewInsightHandler(service.NewInsightService(st, logger), logger),
		IntegrationHandler: handler.NewIntegrationHandler(integrations, logger),
		Realtime:           realtime.Handler(notifier, time.Second, logger),
		Integrations:       integrations.Enabled,
	})
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestDashboardEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	var summary domain.DashboardSummary
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, 15.2, summary.Metrics[domain.MetricDeploymentFrequency])
	assert.Equal(t, 4.83, summary.Changes[domain.MetricDeploymentFrequency].PercentChange)
	assert.Equal(t, domain.DirectionUp, summary.Changes[domain.MetricDeploymentFrequency].Direction)
	assert.Equal(t, "Mobile", summary.TeamRanking[0].Name)
}

func TestTeamsIsIdempotent(t *testing.T) {
	srv := newTestServer(t)

	_, first := do(t, http.MethodGet, srv.URL+"/api/teams", "")
	_, second := do(t, http.MethodGet, srv.URL+"/api/teams", "")
	assert.Equal(t, first, second)

	var teams []domain.Team
	require.NoError(t, json.Unmarshal(first, &teams))
	assert.Len(t, teams, 4)
}

func TestEntityRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/teams/members?team=frontend", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members []domain.Member
	require.NoError(t, json.Unmarshal(body, &members))
	assert.Len(t, members, 4)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/teams/3", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/teams/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/projects/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/series/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/series/leadTime?timeRange=3m", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s domain.MetricSeries
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Len(t, s.Points, 3)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/activities?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/analytics?timeRange=1m&team=Backend", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a domain.Analytics
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Len(t, a.TeamMetrics.Efficiency, 1)
	assert.Len(t, a.DoraMetrics[domain.MetricLeadTime], 1)
}

func TestBenchmarkAndComparisonRoutes(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/analytics/benchmarks", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report domain.BenchmarkReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, domain.TierHigh, report.Overall)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/teams/comparison?ids=1,%203", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var c domain.TeamComparison
	require.NoError(t, json.Unmarshal(body, &c))
	require.Len(t, c.Teams, 2)
	assert.Equal(t, "Mobile", c.Leaders["efficiency"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/teams/comparison?ids=1,x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/teams/comparison?ids=9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatWithoutKeyKeepsServing(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/ai/chat", `{"question":"How do we ship faster?"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "OpenAI API key is not configured")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/ai/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/github/repos/acme/api/stats", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "GitHub token is not configured")

	resp, body = do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health healthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Integrations["openai"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/dashboard", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInsightStatusTransitions(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodPatch, srv.URL+"/api/ai/insights/1", `{"status":"resolved"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPatch, srv.URL+"/api/ai/insights/1", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPatch, srv.URL+"/api/ai/insights/1", `{"status":"in_progress"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var in domain.Insight
	require.NoError(t, json.Unmarshal(body, &in))
	assert.Equal(t, domain.StatusInProgress, in.Status)

	resp, _ = do(t, http.MethodPatch, srv.URL+"/api/ai/recommendations/99", `{"status":"closed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/ai/insights/analyze", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created []domain.Insight
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Len(t, created, 1)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/ai/insights?status=in_progress", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Insight
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	do(t, http.MethodGet, srv.URL+"/api/teams/2", "")
	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `devpulse_http_requests_total{method="GET",route="/api/teams/{id}"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/ai/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRealtimeOverRouter(t *testing.T) {
	srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var u domain.RealtimeUpdate
	require.NoError(t, conn.ReadJSON(&u))
	assert.True(t, u.Synthetic)
	assert.Equal(t, "New activity update", u.NewActivity.Description)
}

func TestGRPCHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := NewHealthServer(zap.NewNop())
	go func() { _ = hs.Serve(lis) }()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())

	hs.SetServing(false)
	resp, err = client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	hs.Stop(ctx)
}
