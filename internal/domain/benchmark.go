package domain

import "time"

// Tier уровень эффективности поставки по классификации DORA.
type Tier string

const (
	TierElite  Tier = "elite"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Tiers от лучшего к худшему.
var Tiers = []Tier{TierElite, TierHigh, TierMedium, TierLow}

// Benchmark положение одной метрики относительно границ уровней.
type Benchmark struct {
	Metric        string  `json:"metric"`
	Value         float64 `json:"value"`
	Tier          Tier    `json:"tier"`
	NextTier      Tier    `json:"nextTier,omitempty"`
	NextThreshold float64 `json:"nextThreshold,omitempty"` // граница, которую нужно пройти до NextTier
}

// BenchmarkReport Overall это худший уровень среди метрик.
type BenchmarkReport struct {
	Overall     Tier        `json:"overall,omitempty"`
	Metrics     []Benchmark `json:"metrics"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// TeamComparison рейтинги выбранных команд, лучшие первыми.
type TeamComparison struct {
	Teams    []Team                  `json:"teams"`
	Rankings map[string][]NamedValue `json:"rankings"`
	Leaders  map[string]string       `json:"leaders"`
}
