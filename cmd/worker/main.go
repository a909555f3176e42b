// Command worker runs the scheduler engine with no HTTP management API:
// it loads configuration, builds the lifecycle.Engine, starts the cron
// scheduler, and serves only a metrics and health-check surface, the same
// split the teacher draws between cmd/worker (background cron + metrics +
// health server) and cmd/api (the user-facing HTTP façade).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vodcast/internal/lifecycle"
)

func main() {
	configPath := flag.String("config", envOr("VODCAST_CONFIG", "./vodcast.toml"), "path to the TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := lifecycle.Build(ctx, *configPath)
	if err != nil {
		slog.Error("worker: failed to build engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer engine.Close()

	health := lifecycle.NewHealthServer(envOr("HEALTH_ADDR", ":9091"), engine.Logger)
	go func() {
		if err := health.Start(ctx); err != nil && err != http.ErrServerClosed {
			engine.Logger.Error("worker: health server failed", slog.Any("error", err))
		}
	}()

	metricsSrv := startMetricsServer(ctx, engine.Logger)
	defer shutdownMetricsServer(metricsSrv, engine.Logger)

	engine.Scheduler.Start(ctx)
	health.SetReady(true)
	engine.Logger.Info("worker started", slog.Int("feeds", len(engine.Config.Feeds)))

	select {
	case <-ctx.Done():
		engine.Logger.Info("worker: shutting down")
	case <-engine.Shutdown:
		engine.Logger.Info("worker: restart requested via management API")
	}
	health.SetReady(false)
}

// startMetricsServer serves Prometheus metrics on METRICS_ADDR (default
// :9090), grounded on the teacher's original cmd/worker/metrics_server.go
// (promhttp.Handler behind its own *http.Server, started in a goroutine,
// shut down with a bounded timeout).
func startMetricsServer(ctx context.Context, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         envOr("METRICS_ADDR", ":9090"),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker: metrics server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker: metrics server failed", slog.Any("error", err))
		}
	}()
	return srv
}

func shutdownMetricsServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker: metrics server shutdown failed", slog.Any("error", err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
