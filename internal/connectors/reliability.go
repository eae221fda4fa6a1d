package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/devpulse/internal/audit"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

// GuardSettings параметры защиты одного внешнего API.
type GuardSettings struct {
	RateLimit   float64 // запросов в секунду
	RateBurst   int
	MaxRequests uint32 // пропускная способность в half-open
	Interval    time.Duration
	Timeout     time.Duration // через сколько открытый предохранитель попробует закрыться
	MaxFailures uint32        // подряд, после которых предохранитель открывается
}

func SettingsFromConfig(c infra.UpstreamConfig) GuardSettings {
	return GuardSettings{
		RateLimit:   c.RateLimit,
		RateBurst:   c.RateBurst,
		MaxRequests: c.CBMaxRequests,
		Interval:    c.CBInterval,
		Timeout:     c.CBTimeout,
		MaxFailures: c.CBMaxFailures,
	}
}

// Guard оборачивает вызовы внешнего API: лимитер, предохранитель, метрики, аудит.
// Повторов нет.
type Guard struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *infra.Metrics
	auditor audit.Auditor
	logger  *zap.Logger
}

func NewGuard(name string, s GuardSettings, metrics *infra.Metrics, auditor audit.Auditor, logger *zap.Logger) *Guard {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	g := &Guard{
		name:    name,
		metrics: metrics,
		auditor: auditor,
		logger:  logger.Named(name),
	}

	// Настройка предохранителя
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		// Ответы "не найдено" говорят о запросе, а не о здоровье внешнего API
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			g.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	// Настройка лимитера
	limit := rate.Limit(s.RateLimit)
	if s.RateLimit <= 0 {
		limit = rate.Inf
	}
	g.limiter = rate.NewLimiter(limit, max(s.RateBurst, 1))

	g.metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return g
}

// Do выполняет fn под защитой. target попадает в аудит (owner/repo, модель).
func (g *Guard) Do(ctx context.Context, operation, target string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := g.do(ctx, fn)
	elapsed := time.Since(start)

	g.metrics.UpstreamDuration.WithLabelValues(g.name, operation).Observe(elapsed.Seconds())

	event := audit.Event{
		ID:         uuid.New().String(),
		TraceID:    infra.TraceID(ctx),
		Upstream:   g.name,
		Operation:  operation,
		Target:     target,
		Status:     audit.StatusSuccess,
		Timestamp:  start,
		DurationMs: elapsed.Milliseconds(),
	}
	if err != nil {
		event.Status = audit.StatusFailed
		event.Error = err.Error()

		kind := classify(err)
		if kind == "rate_limit" || kind == "circuit_open" {
			event.Status = audit.StatusRejected
		}
		g.metrics.UpstreamErrors.WithLabelValues(g.name, kind).Inc()
		g.logger.Error("upstream call failed",
			zap.String("operation", operation),
			zap.String("target", target),
			zap.String("trace_id", event.TraceID),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	}
	if g.auditor != nil {
		g.auditor.Log(event)
	}
	return err
}

func (g *Guard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	// 1. Rate Limiter: не ждём дольше, чем позволяет контекст запроса
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w: %v", g.name, domain.ErrUpstream, errRateLimited, err)
	}

	// 2. Circuit Breaker
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", g.name, domain.ErrUpstream, err)
	}
	return err
}

var errRateLimited = errors.New("rate limit exceeded")

func classify(err error) string {
	var tErr *ThrottleError
	switch {
	case errors.Is(err, errRateLimited):
		return "rate_limit"
	case errors.As(err, &tErr):
		return "throttled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "failed"
}
