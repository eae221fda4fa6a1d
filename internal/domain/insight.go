package domain

import (
	"fmt"
	"time"
)

// Status жизненного цикла инсайтов и рекомендаций.
// open -> in_progress -> resolved; closed как альтернативное терминальное состояние.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusResolved, StatusClosed},
}

// ParseStatus нормализует статус из запроса.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// CanTransitionTo проверяет правила конечного автомата.
// Переход в то же состояние допустим и ничего не меняет.
func (s Status) CanTransitionTo(next Status) error {
	if s == next {
		return nil
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
}

type InsightType string

const (
	InsightQuality       InsightType = "quality"
	InsightProcess       InsightType = "process"
	InsightPerformance   InsightType = "performance"
	InsightRisk          InsightType = "risk"
	InsightCollaboration InsightType = "collaboration"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Insight struct {
	ID             int         `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Type           InsightType `json:"type"`
	Severity       Severity    `json:"severity"`
	Confidence     float64     `json:"confidence"` // 0-100
	RelatedTeam    string      `json:"relatedTeam,omitempty"`
	RelatedProject string      `json:"relatedProject,omitempty"`
	Metrics        []string    `json:"metrics,omitempty"`
	Actions        []string    `json:"recommendations,omitempty"`
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
	LevelUrgent Level = "urgent"
)

type Recommendation struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Type          string    `json:"type"` // process, tool, practice, training
	Priority      Level     `json:"priority"`
	Effort        Level     `json:"effort"`
	Impact        Level     `json:"impact"`
	Status        Status    `json:"status"`
	Progress      float64   `json:"progress"` // 0-100
	EstimatedDays int       `json:"estimatedDays"`
	RelatedTeam   string    `json:"relatedTeam,omitempty"`
	InsightID     int       `json:"insightId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Prediction прогноз метрики на горизонт HorizonDays, построенный по ряду.
type Prediction struct {
	Metric         string        `json:"metric"`
	MetricType     string        `json:"metricType"` // dora, flow
	CurrentValue   float64       `json:"currentValue"`
	PredictedValue float64       `json:"predictedValue"`
	Confidence     float64       `json:"confidence"` // 0-100
	HorizonDays    int           `json:"horizonDays"`
	Trend          Direction     `json:"trend"`
	ChangeRate     float64       `json:"changeRate"`
	Series         []MetricPoint `json:"series"`
}
