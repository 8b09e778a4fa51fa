// Package rpc exposes the service's gRPC surface. Today that is the standard
// health service, which orchestrators probe alongside GET /health.
package rpc

import (
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type Server struct {
	grpc    *grpc.Server
	health  *health.Server
	service string
	logger  *zap.Logger
}

// NewServer builds a gRPC server reporting SERVING for both the overall
// server and serviceName.
func NewServer(serviceName string, logger *zap.Logger) *Server {
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{
		grpc:    grpcServer,
		health:  healthServer,
		service: serviceName,
		logger:  logger,
	}
}

// Serve blocks until the server stops.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server started", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}
	return nil
}

// Listen opens addr and serves on it.
func (s *Server) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	return s.Serve(lis)
}

// Drain flips every status to NOT_SERVING so probes stop routing traffic
// while in-flight requests finish.
func (s *Server) Drain() {
	s.health.Shutdown()
	s.logger.Info("gRPC health set to NOT_SERVING", zap.String("service", s.service))
}

func (s *Server) Stop() {
	s.Drain()
	s.grpc.GracefulStop()
	s.logger.Info("gRPC server stopped gracefully")
}
