package domain

import "fmt"

// MetricPoint одна точка временного ряда. Period хранится строкой (YYYY-MM),
// порядок точек в ряду совпадает с хронологическим.
type MetricPoint struct {
	Period string  `json:"date"`
	Value  float64 `json:"value"`
}

// MetricSeries именованный ряд значений метрики.
type MetricSeries struct {
	Name   string        `json:"name"`
	Points []MetricPoint `json:"points"`
}

// Direction направление изменения метрики между двумя последними периодами.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Trend результат сравнения двух последних точек ряда.
type Trend struct {
	PercentChange float64   `json:"percentChange"`
	Direction     Direction `json:"direction"`
}

// Change это Trend, дополненный оценкой "хорошо/плохо" по таблице направлений.
type Change struct {
	Trend
	Improving bool `json:"improving"`
}

// NamedValue одна строка проекции скалярной метрики по сущностям.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Имена канонических рядов DORA и Flow.
const (
	MetricDeploymentFrequency = "deploymentFrequency"
	MetricLeadTime            = "leadTime"
	MetricChangeFailureRate   = "changeFailureRate"
	MetricTimeToRestore       = "timeToRestore"

	MetricFlowEfficiency = "flowEfficiency"
	MetricWIP            = "wipTrend"
	MetricCycleTime      = "cycleTime"
	MetricThroughput     = "throughput"
)

// DoraMetrics и FlowMetrics фиксируют порядок вывода в дашборде.
var (
	DoraMetrics = []string{MetricDeploymentFrequency, MetricLeadTime, MetricChangeFailureRate, MetricTimeToRestore}
	FlowMetrics = []string{MetricFlowEfficiency, MetricWIP, MetricCycleTime, MetricThroughput}
)

// Clone возвращает глубокую копию ряда.
func (s MetricSeries) Clone() MetricSeries {
	points := make([]MetricPoint, len(s.Points))
	copy(points, s.Points)
	return MetricSeries{Name: s.Name, Points: points}
}

// Tail возвращает копию ряда с последними n точками. n <= 0 означает весь ряд.
func (s MetricSeries) Tail(n int) MetricSeries {
	if n <= 0 || n >= len(s.Points) {
		return s.Clone()
	}
	points := make([]MetricPoint, n)
	copy(points, s.Points[len(s.Points)-n:])
	return MetricSeries{Name: s.Name, Points: points}
}

// Validate проверяет инвариант: периоды строго возрастают, дубликатов нет.
func (s MetricSeries) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: series without a name", ErrInvalidInput)
	}
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].Period <= s.Points[i-1].Period {
			return fmt.Errorf("%w: series %q: period %q does not follow %q",
				ErrInvalidInput, s.Name, s.Points[i].Period, s.Points[i-1].Period)
		}
	}
	return nil
}
