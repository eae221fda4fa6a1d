package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
)

type InsightService interface {
	Insights(ctx context.Context, status, kind string) []domain.Insight
	Insight(ctx context.Context, id int) (domain.Insight, error)
	UpdateInsightStatus(ctx context.Context, id int, status string) (domain.Insight, error)
	Recommendations(ctx context.Context, status string) []domain.Recommendation
	UpdateRecommendationStatus(ctx context.Context, id int, status string) (domain.Recommendation, error)
	Predictions(ctx context.Context) []domain.Prediction
	AnalyzeInsights(ctx context.Context) []domain.Insight
}

type InsightHandler struct {
	service InsightService
	logger  *zap.Logger
}

func NewInsightHandler(s InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{service: s, logger: logger.Named("insight-handler")}
}

// StatusRequest тело PATCH для смены статуса.
type StatusRequest struct {
	Status string `json:"status"`
}

// List GET /api/ai/insights?status=&type=
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.service.Insights(r.Context(), q.Get("status"), q.Get("type")))
}

func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := h.service.Insight(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// UpdateStatus PATCH /api/ai/insights/{id} {status}
func (h *InsightHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in, err := h.service.UpdateInsightStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// Analyze POST /api/ai/insights/analyze: новые инсайты по правилам.
func (h *InsightHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.AnalyzeInsights(r.Context()))
}

func (h *InsightHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Recommendations(r.Context(), r.URL.Query().Get("status")))
}

// UpdateRecommendation PATCH /api/ai/recommendations/{id} {status}
func (h *InsightHandler) UpdateRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	rec, err := h.service.UpdateRecommendationStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *InsightHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Predictions(r.Context()))
}
