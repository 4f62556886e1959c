package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/arguewith/arena/internal/health"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the server's gRPC health endpoint",
		RunE:  runHealth,
	}
	cmd.Flags().String("addr", "localhost:50051", "gRPC health address")
	cmd.Flags().String("service", health.LeaderboardService, "Service name to check (empty for overall)")
	cmd.Flags().Duration("timeout", 5*time.Second, "Probe timeout")
	return cmd
}

func runHealth(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	service, _ := cmd.Flags().GetString("service")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	status, err := health.Probe(ctx, addr, service)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), status.String())
	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service %q is %s", service, status)
	}
	return nil
}
