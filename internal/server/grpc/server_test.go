package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeStatus struct {
	mu sync.Mutex
	st services.Status
}

func (f *fakeStatus) Status(context.Context) services.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

func (f *fakeStatus) set(st services.Status) {
	f.mu.Lock()
	f.st = st
	f.mu.Unlock()
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRefresh_PublishesStatuses(t *testing.T) {
	status := &fakeStatus{st: services.Status{Redis: true, DB: false}}
	s := NewGRPCServer("127.0.0.1:0", logging.Nop{}, status, time.Hour)
	ctx := context.Background()

	s.refresh(ctx)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.Status
	}
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceRedis))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(ServiceDB))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(ServiceOverall))

	status.set(services.Status{Redis: true, DB: true})
	s.refresh(ctx)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(ServiceOverall))
}

func TestRun_ServesHealthAndStops(t *testing.T) {
	addr := freeAddr(t)
	s := NewGRPCServer(addr, logging.Nop{}, &fakeStatus{st: services.Status{Redis: true, DB: true}}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		callCtx, callCancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer callCancel()
		resp, err := client.Check(callCtx, &healthpb.HealthCheckRequest{Service: ServiceDB})
		return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
	}, 3*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, &fakeStatus{}, time.Hour)

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}
}
