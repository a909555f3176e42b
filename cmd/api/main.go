// Command api is the thin façade entrypoint (spec.md §6): it builds the same
// lifecycle.Engine cmd/worker does, additionally starts the scheduler so a
// single-process deployment needs only this binary, and serves the
// management API over HTTP until a signal arrives or the API's own
// POST /config/restart handler closes engine.Shutdown.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"vodcast/internal/lifecycle"
	"vodcast/internal/observability/slo"
)

// sloEvalInterval is how often the accumulated request window is reduced to
// the SLO gauges (slo.Run). cmd/worker does not start this loop since it
// serves no HTTP traffic for the ratios to measure.
const sloEvalInterval = time.Minute

func main() {
	configPath := flag.String("config", envOr("VODCAST_CONFIG", "./vodcast.toml"), "path to the TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := lifecycle.Build(ctx, *configPath)
	if err != nil {
		slog.Error("api: failed to build engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer engine.Close()

	engine.Scheduler.Start(ctx)
	go slo.Run(ctx, sloEvalInterval)

	addr := net.JoinHostPort(engine.Config.Server.BindAddr, portString(engine.Config.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine.Router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	if engine.Config.Server.TLS.Enabled {
		go func() {
			engine.Logger.Info("api: server starting", slog.String("addr", addr), slog.Bool("tls", true))
			if err := srv.ListenAndServeTLS(engine.Config.Server.TLS.CertFile, engine.Config.Server.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				engine.Logger.Error("api: server failed", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	} else {
		go func() {
			engine.Logger.Info("api: server starting", slog.String("addr", addr), slog.Bool("tls", false))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				engine.Logger.Error("api: server failed", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}

	select {
	case <-ctx.Done():
		engine.Logger.Info("api: shutting down")
	case <-engine.Shutdown:
		engine.Logger.Info("api: restart requested via management API")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		engine.Logger.Error("api: server shutdown failed", slog.Any("error", err))
	}
	engine.Logger.Info("api: server stopped")
}

func portString(port int) string {
	if port == 0 {
		port = 8080
	}
	return strconv.Itoa(port)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
