package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка HTTP запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Upstream: время и исходы вызовов внешних API (openai, github)
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - закрыт, 1 - полуоткрыт, 2 - открыт)
	CircuitBreakerState *prometheus.GaugeVec

	// Realtime: активные websocket-подключения
	RealtimeConnections prometheus.Gauge

	// Ingest: принятые и отброшенные события активности
	IngestedActivities *prometheus.CounterVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge

	// Cache: попадания и промахи кэша статистики
	CacheRequests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpulse_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_http_requests_total",
			Help: "Total number of processed HTTP requests.",
		}, []string{"route", "method"}),

		UpstreamDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devpulse_upstream_duration_seconds",
			Help:    "Latency of calls to external integrations.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"upstream", "operation"}),

		UpstreamErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_upstream_errors_total",
			Help: "Failed calls to external integrations by type.",
		}, []string{"upstream", "type"}), // типы: rate_limit, circuit_open, throttled, failed

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "devpulse_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"upstream"}),

		RealtimeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "devpulse_realtime_connections",
			Help: "Number of connected realtime clients.",
		}),

		IngestedActivities: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_ingested_activities_total",
			Help: "Activities consumed from the event stream.",
		}, []string{"result"}), // accepted, rejected

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "devpulse_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),

		CacheRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devpulse_cache_requests_total",
			Help: "Repository stats cache lookups.",
		}, []string{"result"}), // hit, miss, error
	}
}
