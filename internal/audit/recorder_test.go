package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memorySink struct {
	mu      sync.Mutex
	batches [][]Event
}

func (s *memorySink) WriteBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Event(nil), events...))
	return nil
}

func (s *memorySink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestRecorderFlushesOnStop(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, Options{BufferSize: 100, BatchSize: 10, FlushInterval: time.Hour}, zap.NewNop())
	r.Start()

	for i := 0; i < 25; i++ {
		r.Log(Event{ID: fmt.Sprint(i), Upstream: "github"})
	}
	r.Stop()

	assert.Equal(t, 25, sink.total())
	for _, b := range sink.batches {
		assert.LessOrEqual(t, len(b), 10)
	}
	assert.False(t, sink.batches[0][0].Timestamp.IsZero())
}

func TestRecorderFlushesOnTicker(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, Options{BufferSize: 10, BatchSize: 100, FlushInterval: 10 * time.Millisecond}, zap.NewNop())
	r.Start()
	defer r.Stop()

	r.Log(Event{ID: "1"})
	assert.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorderDropsAfterStop(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, Options{}, zap.NewNop())
	r.Start()
	r.Stop()
	r.Stop() // повторный Stop безопасен

	require.NotPanics(t, func() { r.Log(Event{ID: "late"}) })
	assert.Equal(t, 0, sink.total())
}

func TestRecorderShedsLoadWhenFull(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := &memorySink{}
	// Воркер не запущен: канал никто не читает
	r := NewRecorder(sink, Options{BufferSize: 2}, zap.New(core))

	for i := 0; i < 5; i++ {
		r.Log(Event{ID: fmt.Sprint(i)})
	}
	assert.Equal(t, 3, logs.FilterMessage("audit_buffer_overflow").Len())
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSink(zap.New(core))

	require.NoError(t, s.WriteBatch(context.Background(), []Event{{ID: "a", Upstream: "openai", Status: StatusSuccess}}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "openai", logs.All()[0].ContextMap()["upstream"])
}
