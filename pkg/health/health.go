// Package health reports liveness and readiness over HTTP and the standard
// grpc.health.v1 service.
package health

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmehra2102/storefront/pkg/httpx"
)

type Check func(ctx context.Context) error

type Checker struct {
	log    *slog.Logger
	checks map[string]Check
	grpc   *grpchealth.Server
}

func NewChecker(log *slog.Logger, checks map[string]Check) *Checker {
	return &Checker{log: log, checks: checks, grpc: grpchealth.NewServer()}
}

// Ready runs every check and returns the failures keyed by name.
func (c *Checker) Ready(ctx context.Context) map[string]string {
	failed := map[string]string{}
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if failed := c.Ready(ctx); len(failed) > 0 {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Watch keeps the gRPC serving status in step with the checks until ctx ends.
func (c *Checker) Watch(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if failed := c.Ready(ctx); len(failed) > 0 {
			c.log.Warn("readiness check failed", "failed", failed)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		c.grpc.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return nil
		case <-t.C:
		}
	}
}

// Serve listens on addr and serves grpc.health.v1 until the server is
// stopped.
func (c *Checker) Serve(addr string) (*grpc.Server, func() error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, c.grpc)
	return gs, func() error { return gs.Serve(lis) }, nil
}
