package audit

/*
Recorder собирает журнал обращений к внешним интеграциям (LLM, GitHub).

- Log не блокирует вызывающего: событие кладётся в буферизованный канал,
  при переполнении отбрасывается с записью в лог (load shedding).
- Воркер копит события и пишет их пачкой по таймеру или по достижении BatchSize.
- Stop закрывает вход, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Sink определяет, куда физически сохраняются события
type Sink interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

type Auditor interface {
	Log(event Event)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// BufferFill опционально: текущая длина очереди
	BufferFill prometheus.Gauge
}

type Recorder struct {
	ch     chan Event
	sink   Sink
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup

	// mu защищает closed и закрытие ch: Log под RLock, Stop под Lock
	mu     sync.RWMutex
	closed bool
}

func NewRecorder(sink Sink, opts Options, logger *zap.Logger) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Recorder{
		ch:     make(chan Event, opts.BufferSize),
		sink:   sink,
		opts:   opts,
		logger: logger.Named("audit"),
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("recorder stopped gracefully")
}

func (r *Recorder) Log(event Event) {
	// Убеждаемся, что таймстемп всегда проставлен
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("audit event dropped: recorder is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case r.ch <- event:
		if r.opts.BufferFill != nil {
			r.opts.BufferFill.Set(float64(len(r.ch)))
		}
	default:
		// Буфер переполнен (Backpressure): не блокируем запрос, оставляем след в логе
		r.logger.Error("audit_buffer_overflow",
			zap.String("upstream", event.Upstream),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]Event, 0, r.opts.BatchSize)
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст к моменту flush может быть уже закрыт
		if err := r.sink.WriteBatch(context.Background(), batch); err != nil {
			r.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
		if r.opts.BufferFill != nil {
			r.opts.BufferFill.Set(float64(len(r.ch)))
		}
	}

	for {
		select {
		case event, ok := <-r.ch:
			if !ok {
				// Канал закрыт в Stop: остаток уже вычитан, финальный сброс
				flush()
				r.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= r.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// LogSink пишет события в zap. Используется, когда база не настроена.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit-sink")}
}

func (s *LogSink) WriteBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		s.logger.Info("integration call",
			zap.String("id", e.ID),
			zap.String("trace_id", e.TraceID),
			zap.String("upstream", e.Upstream),
			zap.String("operation", e.Operation),
			zap.String("target", e.Target),
			zap.String("status", e.Status),
			zap.Int64("duration_ms", e.DurationMs),
			zap.String("error", e.Error),
			zap.Time("timestamp", e.Timestamp),
		)
	}
	return nil
}
