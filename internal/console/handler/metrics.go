package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
)

// MetricsService Описываем, что нам нужно от сервиса метрик
type MetricsService interface {
	Dashboard(ctx context.Context, f domain.Filter) (*domain.DashboardSummary, error)
	Analytics(ctx context.Context, f domain.Filter) (*domain.Analytics, error)
	Series(ctx context.Context, name, timeRange string) (domain.MetricSeries, error)
	Teams(ctx context.Context) []domain.Team
	Team(ctx context.Context, id int) (domain.Team, error)
	Members(ctx context.Context, team string) []domain.Member
	Projects(ctx context.Context) []domain.Project
	Project(ctx context.Context, id int) (domain.Project, error)
	Activities(ctx context.Context, limit int) []domain.Activity
	Benchmarks(ctx context.Context) (*domain.BenchmarkReport, error)
	CompareTeams(ctx context.Context, ids []int) (*domain.TeamComparison, error)
}

type MetricsHandler struct {
	service MetricsService
	logger  *zap.Logger
}

func NewMetricsHandler(s MetricsService, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{service: s, logger: logger.Named("metrics-handler")}
}

func filterFrom(r *http.Request) domain.Filter {
	q := r.URL.Query()
	return domain.Filter{
		TimeRange: q.Get("timeRange"),
		Team:      q.Get("team"),
		Project:   q.Get("project"),
	}
}

// Dashboard сводка главной страницы.
// GET /api/dashboard
func (h *MetricsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dashboard(r.Context(), filterFrom(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Analytics ряды и роллапы с фильтрами.
// GET /api/analytics?timeRange=&team=&project=
func (h *MetricsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Analytics(r.Context(), filterFrom(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Series GET /api/series/{name}?timeRange=
func (h *MetricsHandler) Series(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Series(r.Context(), chi.URLParam(r, "name"), r.URL.Query().Get("timeRange"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *MetricsHandler) Teams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Teams(r.Context()))
}

func (h *MetricsHandler) Team(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	team, err := h.service.Team(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Members GET /api/teams/members?team=
func (h *MetricsHandler) Members(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Members(r.Context(), r.URL.Query().Get("team")))
}

func (h *MetricsHandler) Projects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Projects(r.Context()))
}

func (h *MetricsHandler) Project(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.service.Project(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Activities GET /api/activities?limit=
func (h *MetricsHandler) Activities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.service.Activities(r.Context(), limit))
}

// Benchmarks уровни DORA.
// GET /api/analytics/benchmarks
func (h *MetricsHandler) Benchmarks(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Benchmarks(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CompareTeams GET /api/teams/comparison?ids=1,2
func (h *MetricsHandler) CompareTeams(w http.ResponseWriter, r *http.Request) {
	var ids []int
	for _, raw := range strings.Split(r.URL.Query().Get("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, h.logger, fmt.Errorf("%w: invalid team id %q", domain.ErrInvalidInput, raw))
			return
		}
		ids = append(ids, id)
	}

	c, err := h.service.CompareTeams(r.Context(), ids)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
