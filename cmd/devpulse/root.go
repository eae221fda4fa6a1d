package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/fixtures"
	"github.com/xela07ax/devpulse/internal/infra"
	"github.com/xela07ax/devpulse/internal/repository/postgres"
	"github.com/xela07ax/devpulse/internal/store"
)

// configFile путь из флага --config; пустой: config.yaml в . или ./configs.
var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "devpulse",
		Short:         "Engineering effectiveness dashboard backend (DORA and flow metrics)",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")

	root.AddCommand(newServeCmd(), newSummaryCmd())
	return root
}

// openDatabase подключает Postgres, если он настроен. Без URL возвращает nil.
func openDatabase(ctx context.Context, cfg *infra.Config, logger *zap.Logger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}
	db, err := postgres.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := infra.WaitReady(ctx, logger, "postgres", 5, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// loadStore строит Store из источника, выбранного в source.kind.
func loadStore(ctx context.Context, cfg *infra.Config, db *sql.DB) (*store.Store, error) {
	var src store.Source
	switch cfg.Source.Kind {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("source %q requires a database connection", cfg.Source.Kind)
		}
		src = postgres.NewSource(db)
	default:
		src = fixtures.Source{}
	}
	return store.Load(ctx, src)
}
