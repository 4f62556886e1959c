package health

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakeStore struct {
	down atomic.Bool
}

func (f *fakeStore) Ping(context.Context) error {
	if f.down.Load() {
		return errors.New("database is locked")
	}
	return nil
}

func startBufServer(t *testing.T, m *Monitor) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ServeListener(ctx, lis, m); err != nil {
			t.Errorf("ServeListener: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func TestProbeFollowsStore(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	m := NewMonitor(store, time.Hour, nil)
	dialer := startBufServer(t, m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := Probe(ctx, "passthrough:///bufnet", LeaderboardService, dialer)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status before first check = %s", status)
	}

	if got := m.Check(ctx); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Check = %s", got)
	}
	for _, svc := range []string{"", LeaderboardService} {
		status, err := Probe(ctx, "passthrough:///bufnet", svc, dialer)
		if err != nil || status != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("service %q: status %s, err %v", svc, status, err)
		}
	}

	store.down.Store(true)
	m.Check(ctx)
	status, err = Probe(ctx, "passthrough:///bufnet", LeaderboardService, dialer)
	if err != nil || status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("after outage: status %s, err %v", status, err)
	}
}

func TestProbeUnknownService(t *testing.T) {
	t.Parallel()

	m := NewMonitor(&fakeStore{}, time.Hour, nil)
	dialer := startBufServer(t, m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := Probe(ctx, "passthrough:///bufnet", "arena.Unknown", dialer); err == nil {
		t.Fatal("expected NotFound error for unregistered service")
	}
}
