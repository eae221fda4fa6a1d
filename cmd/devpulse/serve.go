package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/audit"
	"github.com/xela07ax/devpulse/internal/cache"
	"github.com/xela07ax/devpulse/internal/connectors"
	"github.com/xela07ax/devpulse/internal/console/handler"
	"github.com/xela07ax/devpulse/internal/console/server"
	"github.com/xela07ax/devpulse/internal/console/service"
	"github.com/xela07ax/devpulse/internal/infra"
	"github.com/xela07ax/devpulse/internal/ingest"
	"github.com/xela07ax/devpulse/internal/realtime"
	"github.com/xela07ax/devpulse/internal/repository/postgres"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime websocket and optional ingestion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := infra.LoadConfig(configFile)
			if err != nil {
				return err
			}
			logger, err := infra.NewLogger(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("server exited with error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *infra.Config, logger *zap.Logger) error {
	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infra.NewMetrics(reg)

	// 2. Данные: Postgres (если настроен) и Store
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	st, err := loadStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	logger.Info("store loaded", zap.String("source", cfg.Source.Kind), zap.Int("series", len(st.SeriesNames())))

	// 3. Журнал вызовов интеграций: в базу, если она есть, иначе в лог
	var sink audit.Sink = audit.NewLogSink(logger)
	if db != nil {
		sink = postgres.NewAuditRepo(db)
	}
	recorder := audit.NewRecorder(sink, audit.Options{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
		BufferFill:    metrics.AuditBufferFill,
	}, logger)
	recorder.Start()
	defer recorder.Stop()

	// 4. Внешние интеграции: каждая включается только при наличии настройки
	integrations, closeIntegrations, err := buildIntegrations(ctx, cfg, metrics, recorder, logger)
	if err != nil {
		return err
	}
	defer closeIntegrations()

	// 5. Сервисы и HTTP
	metricsSvc := service.NewMetricsService(st, logger)
	insightSvc := service.NewInsightService(st, logger)
	integrationSvc := service.NewIntegrationService(integrations, logger)

	notifier := realtime.NewNotifier(st, realtime.Options{
		Interval: cfg.Realtime.Interval,
		Gauge:    metrics.RealtimeConnections,
	}, logger)
	defer notifier.Close()

	api := server.NewAPIServer(server.Deps{
		Logger:             logger,
		Metrics:            metrics,
		Gatherer:           reg,
		CORSOrigins:        cfg.Server.CORSOrigins,
		MetricsHandler:     handler.NewMetricsHandler(metricsSvc, logger),
		InsightHandler:     handler.NewInsightHandler(insightSvc, logger),
		IntegrationHandler: handler.NewIntegrationHandler(integrationSvc, logger),
		Realtime:           realtime.Handler(notifier, cfg.Realtime.WriteTimeout, logger),
		Integrations:       integrationSvc.Enabled,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 3)
	go func() {
		logger.Info("HTTP server started", zap.String("addr", srv.Addr), zap.Any("integrations", integrationSvc.Enabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http listen: %w", err)
		}
	}()

	// 6. gRPC health
	var health *server.HealthServer
	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		health = server.NewHealthServer(logger)
		go func() {
			if err := health.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	// 7. Поток событий активности
	var consumer *ingest.ActivityConsumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer, err = ingest.NewActivityConsumer(cfg.Kafka, metricsSvc, metrics, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// 8. Graceful Shutdown
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if health != nil {
		health.SetServing(false)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	// Hijack'нутые websocket-соединения Shutdown не ждёт: гасим их таймеры явно
	notifier.Close()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Warn("kafka reader close failed", zap.Error(err))
		}
	}
	if health != nil {
		health.Stop(shutdownCtx)
	}

	logger.Info("devpulse exited properly")
	return runErr
}

func buildIntegrations(ctx context.Context, cfg *infra.Config, metrics *infra.Metrics, auditor audit.Auditor, logger *zap.Logger) (service.Integrations, func(), error) {
	var in service.Integrations
	closer := func() {}
	settings := connectors.SettingsFromConfig(cfg.Upstream)

	if cfg.OpenAI.APIKey != "" {
		llm, err := connectors.NewOpenAIClient(cfg.OpenAI, connectors.NewGuard("openai", settings, metrics, auditor, logger))
		if err != nil {
			return in, closer, err
		}
		in.LLM = llm
	} else {
		logger.Warn("OpenAI API key is not set, AI chat is disabled")
	}

	if cfg.GitHub.Token != "" {
		gh, err := connectors.NewGitHubClient(cfg.GitHub, connectors.NewGuard("github", settings, metrics, auditor, logger))
		if err != nil {
			return in, closer, err
		}
		in.GitHub = gh
	} else {
		logger.Warn("GitHub token is not set, repository stats are disabled")
	}

	// Redis нужен только как кэш, без него сервис работает
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if err := infra.WaitReady(ctx, logger, "redis", 3, ping); err != nil {
			logger.Warn("repo stats cache disabled", zap.Error(err))
			_ = rdb.Close()
		} else {
			in.Cache = cache.NewRepoStats(rdb, cfg.Cache.TTL, metrics, logger)
			closer = func() {
				if err := rdb.Close(); err != nil {
					logger.Warn("redis close failed", zap.Error(err))
				}
			}
		}
	}
	return in, closer, nil
}
