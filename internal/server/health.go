package server

import (
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService exposes the standard gRPC health protocol next to the HTTP API.
type HealthService struct {
	srv    *grpc.Server
	hs     *health.Server
	lis    net.Listener
	logger *slog.Logger
}

// StartHealthService listens on addr and serves grpc.health.v1 in the background.
// The service starts NOT_SERVING.
func StartHealthService(addr string, logger *slog.Logger) (*HealthService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	// Reflection for grpcurl
	reflection.Register(srv)

	h := &HealthService{srv: srv, hs: hs, lis: lis, logger: logger}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc.health.serve_failed", "error", err)
		}
	}()
	logger.Info("grpc.health.listening", "addr", lis.Addr().String())
	return h, nil
}

func (h *HealthService) Addr() string {
	return h.lis.Addr().String()
}

func (h *HealthService) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus("", status)
}

// Stop marks every service NOT_SERVING and drains open streams.
func (h *HealthService) Stop() {
	h.hs.Shutdown()
	h.srv.GracefulStop()
}
