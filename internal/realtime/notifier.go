package realtime

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/aggregate"
	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/store"
)

// DefaultInterval период синтетических обновлений.
const DefaultInterval = 30 * time.Second

// noiseBounds амплитуда шума поверх последнего значения ряда.
var noiseBounds = []struct {
	metric string
	bound  float64
}{
	{domain.MetricDeploymentFrequency, 0.25},
	{domain.MetricLeadTime, 0.15},
	{domain.MetricFlowEfficiency, 1.0},
}

var syntheticTypes = []domain.ActivityType{
	domain.ActivityDeployment, domain.ActivityCode, domain.ActivityTest, domain.ActivityIncident,
}

// Emitter доставляет обновление одному клиенту.
type Emitter interface {
	Emit(ctx context.Context, u domain.RealtimeUpdate) error
}

// EmitterFunc адаптер функции к Emitter.
type EmitterFunc func(ctx context.Context, u domain.RealtimeUpdate) error

func (f EmitterFunc) Emit(ctx context.Context, u domain.RealtimeUpdate) error { return f(ctx, u) }

type Options struct {
	Interval time.Duration
	Gauge    prometheus.Gauge

	// Random источник равномерных чисел в [0,1). Должен быть безопасен для конкурентного вызова.
	Random func() float64
	Now    func() time.Time
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Notifier держит по одной горутине на подключение. Значения в обновлениях
// синтетические и никогда не пишутся в Store.
type Notifier struct {
	store    *store.Store
	logger   *zap.Logger
	interval time.Duration
	gauge    prometheus.Gauge
	random   func() float64
	now      func() time.Time

	mu    sync.Mutex
	conns map[string]*task
}

func NewNotifier(st *store.Store, opts Options, logger *zap.Logger) *Notifier {
	n := &Notifier{
		store:    st,
		logger:   logger.Named("realtime"),
		interval: opts.Interval,
		gauge:    opts.Gauge,
		random:   opts.Random,
		now:      opts.Now,
		conns:    make(map[string]*task),
	}
	if n.interval <= 0 {
		n.interval = DefaultInterval
	}
	if n.random == nil {
		n.random = rand.Float64
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Connect регистрирует подключение и запускает его таймер.
func (n *Notifier) Connect(id string, emitter Emitter) error {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	n.mu.Lock()
	if _, exists := n.conns[id]; exists {
		n.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: connection %q is already registered", domain.ErrInvalidInput, id)
	}
	n.conns[id] = t
	n.updateGauge()
	n.mu.Unlock()

	go n.run(ctx, id, t, emitter)

	n.logger.Debug("client connected", zap.String("conn_id", id))
	return nil
}

// Disconnect отменяет таймер подключения и дожидается выхода горутины.
// Неизвестный id игнорируется.
func (n *Notifier) Disconnect(id string) {
	n.mu.Lock()
	t, ok := n.conns[id]
	if ok {
		delete(n.conns, id)
		n.updateGauge()
	}
	n.mu.Unlock()

	if !ok {
		return
	}
	t.cancel()
	<-t.done
	n.logger.Debug("client disconnected", zap.String("conn_id", id))
}

// Close отключает всех клиентов.
func (n *Notifier) Close() {
	n.mu.Lock()
	ids := make([]string, 0, len(n.conns))
	for id := range n.conns {
		ids = append(ids, id)
	}
	n.mu.Unlock()

	for _, id := range ids {
		n.Disconnect(id)
	}
}

func (n *Notifier) ActiveConnections() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

func (n *Notifier) run(ctx context.Context, id string, t *task, emitter Emitter) {
	defer close(t.done)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := emitter.Emit(ctx, n.Update()); err != nil {
				if ctx.Err() != nil {
					return
				}
				n.logger.Warn("emit failed, dropping connection", zap.String("conn_id", id), zap.Error(err))
				n.drop(id, t)
				return
			}
		}
	}
}

// drop снимает подключение из самой горутины. Disconnect мог успеть раньше.
func (n *Notifier) drop(id string, t *task) {
	n.mu.Lock()
	if n.conns[id] == t {
		delete(n.conns, id)
		n.updateGauge()
	}
	n.mu.Unlock()
	t.cancel()
}

func (n *Notifier) updateGauge() {
	if n.gauge != nil {
		n.gauge.Set(float64(len(n.conns)))
	}
}

// Update собирает одно синтетическое обновление.
func (n *Notifier) Update() domain.RealtimeUpdate {
	now := n.now().UTC()
	u := domain.RealtimeUpdate{
		Timestamp: now,
		Metrics:   make(map[string]float64, len(noiseBounds)),
		Synthetic: true,
	}

	for _, nb := range noiseBounds {
		ser, err := n.store.Series(nb.metric)
		if err != nil {
			continue
		}
		latest, err := aggregate.Latest(ser)
		if err != nil {
			continue
		}
		u.Metrics[nb.metric] = latest + (n.random()*2-1)*nb.bound
	}

	u.NewActivity = domain.Activity{
		ID:          now.UnixMilli(),
		Type:        syntheticTypes[n.pick(len(syntheticTypes))],
		Description: "New activity update",
		Timestamp:   now,
		Status:      "success",
	}
	if projects := n.store.Projects(); len(projects) > 0 {
		u.NewActivity.Project = projects[n.pick(len(projects))].Name
	}
	if teams := n.store.Teams(); len(teams) > 0 {
		u.NewActivity.Actor = teams[n.pick(len(teams))].Lead
	}
	return u
}

func (n *Notifier) pick(size int) int {
	return min(int(n.random()*float64(size)), size-1)
}
