package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer gRPC grpc.health.v1 для оркестраторов. Только health, без бизнес-сервисов.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

func NewHealthServer(logger *zap.Logger) *HealthServer {
	s := grpc.NewServer(grpc.ConnectionTimeout(10 * time.Second))
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &HealthServer{server: s, health: hs, logger: logger.Named("grpc-health")}
}

// Serve блокируется до Stop. Ошибку listen возвращает сразу.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server started", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop сначала переводит статус в NOT_SERVING, затем мягко останавливает сервер.
func (s *HealthServer) Stop(ctx context.Context) {
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.logger.Info("gRPC health server stopped")
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warn("gRPC health server forced to stop")
	}
}

// SetServing позволяет снять сервис с балансировки до остановки.
func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}
