// Package grpc publishes the backend's liveness over the standard gRPC
// health checking protocol.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health service names. The empty name is the overall server status.
const (
	ServiceOverall = ""
	ServiceRedis   = "redis"
	ServiceDB      = "db"
)

type StatusChecker interface {
	Status(ctx context.Context) services.Status
}

type GRPCServer struct {
	address  string
	status   StatusChecker
	health   *health.Server
	interval time.Duration
	logger   logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, status StatusChecker, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GRPCServer{
		address:  a,
		status:   status,
		health:   health.NewServer(),
		interval: interval,
		logger:   l.With("module", "grpc_server"),
	}
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// refresh checks the backends once and publishes the result.
func (s *GRPCServer) refresh(ctx context.Context) services.Status {
	st := s.status.Status(ctx)
	s.health.SetServingStatus(ServiceRedis, servingStatus(st.Redis))
	s.health.SetServingStatus(ServiceDB, servingStatus(st.DB))
	s.health.SetServingStatus(ServiceOverall, servingStatus(st.Redis && st.DB))
	return st
}

func (s *GRPCServer) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := s.refresh(ctx)
			if !st.Redis || !st.DB {
				s.logger.Warn(ctx, "backend unhealthy", "redis", st.Redis, "db", st.DB)
			}
		}
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.refresh(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
