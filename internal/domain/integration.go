package domain

import (
	"encoding/json"
	"time"
)

// ChatTurn одна пара вопрос/ответ из истории диалога.
type ChatTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type ChatRequest struct {
	Question string     `json:"question"`
	History  []ChatTurn `json:"history"`
}

type ChatResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

type InsightRequest struct {
	Topic   string `json:"topic"`
	Context string `json:"context"`
}

type InsightResponse struct {
	Topic     string    `json:"topic"`
	Insight   string    `json:"insight"`
	Timestamp time.Time `json:"timestamp"`
}

// RepoStats статистика репозитория из системы контроля версий.
// Поля передаются клиенту как есть, без интерпретации.
type RepoStats struct {
	CommitActivity json.RawMessage `json:"commitActivity"`
	CodeFrequency  json.RawMessage `json:"codeFrequency"`
	Participation  json.RawMessage `json:"participation"`

	// Pending: GitHub ещё считает статистику (202), часть полей может быть пустой
	Pending bool `json:"pending,omitempty"`
}

// RealtimeUpdate синтетическое обновление для websocket-клиентов.
// Значения Metrics это шум поверх последних значений рядов, а не реальные данные.
type RealtimeUpdate struct {
	Timestamp   time.Time          `json:"timestamp"`
	Metrics     map[string]float64 `json:"metrics"`
	NewActivity Activity           `json:"newActivity"`
	Synthetic   bool               `json:"synthetic"`
}
