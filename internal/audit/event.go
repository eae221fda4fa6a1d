package audit

import "time"

// Event одна запись журнала обращений к внешним интеграциям.
type Event struct {
	ID         string    `json:"id"`        // UUID события
	TraceID    string    `json:"trace_id"`  // Сквозной ID запроса
	Upstream   string    `json:"upstream"`  // openai, github
	Operation  string    `json:"operation"` // chat, generate_insight, repo_stats
	Target     string    `json:"target"`    // owner/repo, модель и т.п.
	Status     string    `json:"status"`    // SUCCESS, FAILED, REJECTED
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

const (
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
	StatusRejected = "REJECTED" // отбит лимитером или открытым предохранителем
)
