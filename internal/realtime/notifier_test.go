package realtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/fixtures"
	"github.com/xela07ax/devpulse/internal/store"
)

func newNotifier(t *testing.T, opts Options) *Notifier {
	t.Helper()
	st, err := store.New(fixtures.Snapshot())
	require.NoError(t, err)
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Millisecond
	}
	n := NewNotifier(st, opts, zap.NewNop())
	t.Cleanup(n.Close)
	return n
}

type counter struct{ n atomic.Int64 }

func (c *counter) Emit(context.Context, domain.RealtimeUpdate) error {
	c.n.Add(1)
	return nil
}

func TestUpdateStaysWithinBounds(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999999} {
		n := newNotifier(t, Options{Random: func() float64 { return r }})
		u := n.Update()

		assert.True(t, u.Synthetic)
		assert.InDelta(t, 15.2, u.Metrics[domain.MetricDeploymentFrequency], 0.25+1e-9)
		assert.InDelta(t, 2.2, u.Metrics[domain.MetricLeadTime], 0.15+1e-9)
		assert.InDelta(t, 68, u.Metrics[domain.MetricFlowEfficiency], 1.0+1e-9)
		require.NoError(t, u.NewActivity.Validate())
		assert.NotEmpty(t, u.NewActivity.Project)
		assert.NotEmpty(t, u.NewActivity.Actor)
	}
}

func TestUpdateDoesNotTouchStore(t *testing.T) {
	n := newNotifier(t, Options{Random: func() float64 { return 0.99 }})
	_ = n.Update()

	ser, err := n.store.Series(domain.MetricDeploymentFrequency)
	require.NoError(t, err)
	assert.Equal(t, 15.2, ser.Points[len(ser.Points)-1].Value)
	assert.Len(t, n.store.Journal().Activities(0), 5)
}

func TestDisconnectStopsEmissions(t *testing.T) {
	n := newNotifier(t, Options{})
	c := &counter{}

	require.NoError(t, n.Connect("a", c))
	assert.Eventually(t, func() bool { return c.n.Load() >= 2 }, time.Second, time.Millisecond)

	n.Disconnect("a")
	after := c.n.Load()
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, after, c.n.Load())
	assert.Equal(t, 0, n.ActiveConnections())

	// Повторный вызов безопасен
	n.Disconnect("a")
}

func TestConnectRejectsDuplicateID(t *testing.T) {
	n := newNotifier(t, Options{})
	require.NoError(t, n.Connect("a", &counter{}))
	assert.ErrorIs(t, n.Connect("a", &counter{}), domain.ErrInvalidInput)
	assert.Equal(t, 1, n.ActiveConnections())
}

func TestEmitFailureDropsConnection(t *testing.T) {
	n := newNotifier(t, Options{})
	var calls atomic.Int64
	failing := EmitterFunc(func(context.Context, domain.RealtimeUpdate) error {
		calls.Add(1)
		return errors.New("broken pipe")
	})

	require.NoError(t, n.Connect("a", failing))
	assert.Eventually(t, func() bool { return n.ActiveConnections() == 0 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), calls.Load())
}

func TestNoGoroutineGrowthAfterDisconnects(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	n := newNotifier(t, Options{})
	for i := 0; i < 50; i++ {
		require.NoError(t, n.Connect(fmt.Sprintf("conn-%d", i), &counter{}))
	}
	assert.Equal(t, 50, n.ActiveConnections())

	// Половина уходит по одной, остальные разом
	for i := 0; i < 25; i++ {
		n.Disconnect(fmt.Sprintf("conn-%d", i))
	}
	assert.Equal(t, 25, n.ActiveConnections())

	n.Close()
	assert.Equal(t, 0, n.ActiveConnections())
}

func TestWebsocketDelivery(t *testing.T) {
	n := newNotifier(t, Options{})
	srv := httptest.NewServer(Handler(n, time.Second, zap.NewNop()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var u domain.RealtimeUpdate
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&u))
	assert.True(t, u.Synthetic)
	assert.Contains(t, u.Metrics, domain.MetricLeadTime)
	assert.Equal(t, 1, n.ActiveConnections())

	// Закрытие клиента снимает подписку на сервере
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	assert.Eventually(t, func() bool { return n.ActiveConnections() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketWriteFailureClosesSocket(t *testing.T) {
	n := newNotifier(t, Options{})
	// Дедлайн записи истекает раньше, чем начнётся запись
	srv := httptest.NewServer(Handler(n, time.Nanosecond, zap.NewNop()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	// Сервер закрыл сокет сам: клиент видит обрыв, а не собственный таймаут чтения
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "socket stayed open: %v", err)
	}
	assert.Eventually(t, func() bool { return n.ActiveConnections() == 0 }, time.Second, 5*time.Millisecond)
}
