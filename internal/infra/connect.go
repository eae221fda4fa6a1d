package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

// WaitReady повторяет проверку доступности зависимости (Ping) с экспоненциальной паузой.
// Используется только при старте: запросы к внешним API не повторяются.
func WaitReady(ctx context.Context, logger *zap.Logger, name string, attempts uint, ping func(ctx context.Context) error) error {
	var n uint
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(retry.BackOffDelay),
	)

	err := r.Do(func() error {
		n++
		pCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		if err := ping(pCtx); err != nil {
			logger.Warn("dependency not ready",
				zap.String("dependency", name), zap.Uint("attempt", n), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s unreachable after %d attempts: %w", name, n, err)
	}

	logger.Info("dependency ready", zap.String("dependency", name))
	return nil
}
