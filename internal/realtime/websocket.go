package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler поднимает websocket и подписывает его на Notifier.
// GET /ws
func Handler(n *Notifier, writeTimeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	logger = logger.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		id := uuid.New().String()

		// Пишет только горутина Notifier'а этого подключения.
		// После ошибки записи Notifier снимает подписку, а закрытие сокета будит цикл чтения ниже.
		emit := EmitterFunc(func(_ context.Context, u domain.RealtimeUpdate) error {
			if writeTimeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if err := conn.WriteJSON(u); err != nil {
				_ = conn.Close()
				return err
			}
			return nil
		})
		if err := n.Connect(id, emit); err != nil {
			logger.Error("connect failed", zap.Error(err))
			return
		}
		defer n.Disconnect(id)

		logger.Info("client connected", zap.String("conn_id", id), zap.String("remote", r.RemoteAddr))

		// Входящие сообщения не нужны: читаем только для обнаружения закрытия
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("connection closed unexpectedly", zap.String("conn_id", id), zap.Error(err))
				}
				return
			}
		}
	}
}
