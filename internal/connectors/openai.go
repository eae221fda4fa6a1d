package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message одна реплика в формате chat completions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// OpenAIClient клиент chat completions API (или совместимого).
type OpenAIClient struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
	guard      *Guard
}

func NewOpenAIClient(cfg infra.OpenAIConfig, guard *Guard) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: api key is not set", domain.ErrConfiguration)
	}
	return &OpenAIClient{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		guard: guard,
	}, nil
}

// Complete отправляет диалог и возвращает текст первого варианта ответа.
func (c *OpenAIClient) Complete(ctx context.Context, operation string, messages []Message) (string, error) {
	var answer string
	err := c.guard.Do(ctx, operation, c.model, func(ctx context.Context) error {
		var err error
		answer, err = c.complete(ctx, messages)
		return err
	})
	return answer, err
}

func (c *OpenAIClient) complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := readResponse("openai", resp, time.Now())
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("openai: %w: failed to parse response: %v", domain.ErrUpstream, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: no choices in response", domain.ErrUpstream)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
