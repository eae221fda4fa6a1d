package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/connectors"
	"github.com/xela07ax/devpulse/internal/domain"
)

const systemPrompt = "You are an assistant focused on software delivery performance. " +
	"You analyze DORA metrics, flow efficiency, team collaboration and code quality " +
	"and give concrete, actionable improvement advice."

// LLM то, что сервису нужно от языковой модели.
type LLM interface {
	Complete(ctx context.Context, operation string, messages []connectors.Message) (string, error)
}

// RepoStatsSource источник статистики репозиториев.
type RepoStatsSource interface {
	RepoStats(ctx context.Context, owner, repo string) (domain.RepoStats, error)
}

// StatsCache опциональный кэш статистики.
type StatsCache interface {
	Get(ctx context.Context, owner, repo string) (domain.RepoStats, bool)
	Set(ctx context.Context, owner, repo string, stats domain.RepoStats)
}

// Integrations внешние коллабораторы. Любое поле может быть nil: интеграция выключена.
type Integrations struct {
	LLM    LLM
	GitHub RepoStatsSource
	Cache  StatsCache
}

// IntegrationService проксирует вызовы к LLM и к статистике репозиториев.
// Нет настройки даёт ErrConfiguration, сбой внешнего API даёт ErrUpstream. Повторов нет.
type IntegrationService struct {
	llm    LLM
	github RepoStatsSource
	cache  StatsCache
	logger *zap.Logger
	now    func() time.Time
}

func NewIntegrationService(in Integrations, logger *zap.Logger) *IntegrationService {
	return &IntegrationService{
		llm:    in.LLM,
		github: in.GitHub,
		cache:  in.Cache,
		logger: logger.Named("integration-service"),
		now:    time.Now,
	}
}

// Chat передаёт вопрос и историю диалога в LLM.
func (s *IntegrationService) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("chat: %w: OpenAI API key is not configured", domain.ErrConfiguration)
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("chat: %w: question is required", domain.ErrInvalidInput)
	}

	// 1. Системная роль, затем история, затем текущий вопрос
	messages := make([]connectors.Message, 0, len(req.History)*2+2)
	messages = append(messages, connectors.Message{Role: connectors.RoleSystem, Content: systemPrompt})
	for _, turn := range req.History {
		if turn.Question == "" {
			continue
		}
		messages = append(messages, connectors.Message{Role: connectors.RoleUser, Content: turn.Question})
		if turn.Answer != "" {
			messages = append(messages, connectors.Message{Role: connectors.RoleAssistant, Content: turn.Answer})
		}
	}
	messages = append(messages, connectors.Message{Role: connectors.RoleUser, Content: question})

	// 2. Вызов без повторов: ошибку видит пользователь
	answer, err := s.llm.Complete(ctx, "chat", messages)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	return &domain.ChatResponse{Question: question, Answer: answer, Timestamp: s.now().UTC()}, nil
}

// GenerateInsight просит LLM сформулировать выводы по теме и переданному контексту.
func (s *IntegrationService) GenerateInsight(ctx context.Context, req domain.InsightRequest) (*domain.InsightResponse, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("generate insight: %w: OpenAI API key is not configured", domain.ErrConfiguration)
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("generate insight: %w: topic is required", domain.ErrInvalidInput)
	}

	prompt := fmt.Sprintf("Using the context below, produce insights and improvement suggestions about %q.\n\n%s\n\n"+
		"Give specific, actionable advice and quantify the expected improvement where possible.", topic, req.Context)

	text, err := s.llm.Complete(ctx, "generate_insight", []connectors.Message{
		{Role: connectors.RoleSystem, Content: systemPrompt},
		{Role: connectors.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generate insight: %w", err)
	}

	return &domain.InsightResponse{Topic: topic, Insight: text, Timestamp: s.now().UTC()}, nil
}

var repoNamePart = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,100}$`)

func validRepoPart(s string) bool {
	return repoNamePart.MatchString(s) && s != "." && s != ".."
}

// RepoStats статистика репозитория, через кэш, если он настроен.
func (s *IntegrationService) RepoStats(ctx context.Context, owner, repo string) (*domain.RepoStats, error) {
	if s.github == nil {
		return nil, fmt.Errorf("repo stats: %w: GitHub token is not configured", domain.ErrConfiguration)
	}
	if !validRepoPart(owner) || !validRepoPart(repo) {
		return nil, fmt.Errorf("repo stats: %w: invalid repository %q/%q", domain.ErrInvalidInput, owner, repo)
	}

	if s.cache != nil {
		if stats, ok := s.cache.Get(ctx, owner, repo); ok {
			return &stats, nil
		}
	}

	stats, err := s.github.RepoStats(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("repo stats %s/%s: %w", owner, repo, err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, owner, repo, stats)
	}
	return &stats, nil
}

// Enabled какие интеграции настроены; отдаётся в /health.
func (s *IntegrationService) Enabled() map[string]bool {
	return map[string]bool{
		"openai": s.llm != nil,
		"github": s.github != nil,
		"cache":  s.cache != nil,
	}
}
