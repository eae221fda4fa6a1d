package domain

import "time"

// DashboardSummary сводный ответ для главной страницы.
type DashboardSummary struct {
	Metrics         map[string]float64       `json:"metrics"`
	Changes         map[string]Change        `json:"changes"`
	Trends          map[string][]MetricPoint `json:"trends"`
	TeamPerformance []TeamPerformance        `json:"teamPerformance"`
	TeamRanking     []NamedValue             `json:"teamRanking"`
	RecentActivity  []Activity               `json:"recentActivity"`
	GeneratedAt     time.Time                `json:"generatedAt"`
}

type TeamPerformance struct {
	Name       string  `json:"name"`
	Efficiency float64 `json:"efficiency"`
	Velocity   float64 `json:"velocity"`
}

// Analytics полный набор рядов и роллапов для страницы аналитики.
type Analytics struct {
	DoraMetrics    map[string][]MetricPoint `json:"doraMetrics"`
	FlowMetrics    map[string][]MetricPoint `json:"flowMetrics"`
	QualityMetrics QualityRollup            `json:"qualityMetrics"`
	TeamMetrics    TeamRollup               `json:"teamMetrics"`
	Filter         Filter                   `json:"filter"`
}

type QualityRollup struct {
	CodeQuality  []NamedValue `json:"codeQuality"`
	TestCoverage []NamedValue `json:"testCoverage"`
	BugRate      []NamedValue `json:"bugRate"`
}

type TeamRollup struct {
	Efficiency   []NamedValue `json:"efficiency"`
	Velocity     []NamedValue `json:"velocity"`
	Satisfaction []NamedValue `json:"satisfaction"`
}

// Filter применённые фильтры запроса. Пустое поле означает "все".
type Filter struct {
	TimeRange string `json:"timeRange,omitempty"`
	Team      string `json:"team,omitempty"`
	Project   string `json:"project,omitempty"`
}
