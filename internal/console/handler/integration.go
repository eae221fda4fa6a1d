package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
)

type IntegrationService interface {
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)
	GenerateInsight(ctx context.Context, req domain.InsightRequest) (*domain.InsightResponse, error)
	RepoStats(ctx context.Context, owner, repo string) (*domain.RepoStats, error)
}

type IntegrationHandler struct {
	service IntegrationService
	logger  *zap.Logger
}

func NewIntegrationHandler(s IntegrationService, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{service: s, logger: logger.Named("integration-handler")}
}

// Chat POST /api/ai/chat {question, history}
// Без ключа LLM отвечает 400 с понятным сообщением; клиент сам решает, показать ли заглушку.
func (h *IntegrationHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GenerateInsight POST /api/ai/generate-insight {topic, context}
func (h *IntegrationHandler) GenerateInsight(w http.ResponseWriter, r *http.Request) {
	var req domain.InsightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp, err := h.service.GenerateInsight(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RepoStats GET /api/github/repos/{owner}/{repo}/stats
func (h *IntegrationHandler) RepoStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.RepoStats(r.Context(), chi.URLParam(r, "owner"), chi.URLParam(r, "repo"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
