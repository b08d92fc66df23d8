// Package grpcserver runs the gRPC side of the service: the standard health
// service, reporting whether the storage answers, and server reflection.
package grpcserver

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/patric-chuzhbe/tinyapp/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

// ServiceName is the health service entry of the URL shortener.
const ServiceName = "tinyapp.Shortener"

type pinger interface {
	Ping(ctx context.Context) error
}

// Server wraps the grpc.Server together with its health state.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	db     pinger
}

// New builds the server. Call Refresh to publish the first health status.
func New(db pinger) *Server {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(healthpb.Health_Check_FullMethodName),
		),
		grpc.ChainStreamInterceptor(
			interceptor.StreamLoggingInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	return &Server{
		grpc:   server,
		health: healthServer,
		db:     db,
	}
}

// Refresh pings the storage and publishes SERVING or NOT_SERVING.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.db.Ping(ctx); err != nil {
		logger.Log.Errorln("Error calling the `s.db.Ping()`: ", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)

	return status
}

// Listen opens a TCP listener on addr.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve blocks serving lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Shutdown marks every service NOT_SERVING and stops gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
