// Package health exposes the standard gRPC health service, driven by
// periodic pings of the leaderboard store.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// LeaderboardService is the service name reported for the leaderboard store.
const LeaderboardService = "arena.Leaderboard"

const (
	defaultInterval    = 15 * time.Second
	defaultPingTimeout = 5 * time.Second
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor keeps the health status of the server ("") and the leaderboard in
// step with the store.
type Monitor struct {
	hs       *health.Server
	store    Pinger
	interval time.Duration
	logger   *slog.Logger
}

// NewMonitor creates a monitor. Both services start as NOT_SERVING until the first check.
func NewMonitor(store Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(LeaderboardService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Monitor{hs: hs, store: store, interval: interval, logger: logger}
}

// Check pings the store once and updates both statuses.
func (m *Monitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("Leaderboard store ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.hs.SetServingStatus("", status)
	m.hs.SetServingStatus(LeaderboardService, status)
	return status
}

// Start checks immediately, then on every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)
	ticker := time.NewTicker(m.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Check(ctx)
			case <-ctx.Done():
				m.hs.Shutdown()
				return
			}
		}
	}()
}

// Register adds the health service to s.
func (m *Monitor) Register(s grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, m.hs)
}

// Serve listens on addr and serves the health service until ctx is done.
func Serve(ctx context.Context, addr string, m *Monitor) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health: listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, lis, m)
}

// ServeListener serves the health service on lis until ctx is done.
func ServeListener(ctx context.Context, lis net.Listener, m *Monitor) error {
	srv := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		MaxConnectionIdle: 5 * time.Minute,
		Time:              2 * time.Minute,
		Timeout:           10 * time.Second,
	}))
	m.Register(srv)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	m.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health: serve: %w", err)
	}
	return nil
}

// Probe asks the health service at addr for the status of service.
func Probe(ctx context.Context, addr, service string, opts ...grpc.DialOption) (healthpb.HealthCheckResponse_ServingStatus, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health: connect to %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetStatus(), nil
}
