// Package lifecycle wires together every engine package into one running
// process and tears it back down again (spec.md §2's Lifecycle row).
// Grounded on the teacher's cmd/worker/main.go boot sequence
// (initLogger -> initDatabase -> service wiring -> startCronWorker) and
// cmd/api/main.go's setupServer/runServer split between "build the
// collaborators" and "run until a signal arrives" — generalized from a
// single global crawl job to one scheduler entry per configured feed, and
// from an RSS-source repository to the Storage Gateway.
//
// cmd/worker and cmd/api both call Build to construct the same Engine; only
// their Run loops differ (§ engine-agnostic requirement that both binaries
// observe the same feed state).
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"vodcast/internal/artifact"
	"vodcast/internal/config"
	"vodcast/internal/downloader"
	"vodcast/internal/feedupdate"
	"vodcast/internal/feedxml"
	vodhttp "vodcast/internal/handler/http"
	"vodcast/internal/handler/http/middleware"
	"vodcast/internal/history"
	"vodcast/internal/hooks"
	"vodcast/internal/observability/logging"
	"vodcast/internal/progress"
	"vodcast/internal/provider"
	"vodcast/internal/repository"
	"vodcast/internal/repository/bolt"
	"vodcast/internal/repository/postgres"
	"vodcast/internal/scheduler"
	"vodcast/pkg/ratelimit"
	"vodcast/pkg/security/csp"
)

// Engine bundles every long-lived collaborator the two entrypoints share:
// the scheduler driving feed updates, the HTTP router serving the
// management API, and the storage handle both need closed on shutdown.
type Engine struct {
	Config    *config.Config
	ConfigPath string
	Logger    *slog.Logger
	Storage   repository.Gateway
	Scheduler *scheduler.Scheduler
	Router    http.Handler
	Shutdown  chan struct{}
}

// Build loads configuration from path, opens the configured Storage
// Gateway backend, and constructs every engine package in the teacher's
// dependency order: storage -> artifact store -> provider registry ->
// download driver -> hook runner -> progress tracker -> history recorder
// -> feed renderer -> updater -> scheduler -> HTTP router. It also installs
// a process-global OpenTelemetry TracerProvider, per
// internal/observability/tracing's doc comment, before returning.
func Build(ctx context.Context, path string) (*Engine, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: load config: %w", err)
	}

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	installTracerProvider()

	storage, err := openStorage(*cfg)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: open storage: %w", err)
	}

	artifacts, err := artifact.New(ctx, artifactConfigFrom(cfg.Storage))
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("lifecycle: open artifact store: %w", err)
	}

	providers := provider.NewRegistry(provider.NewPacedClient(), cfg.Tokens)

	driver, err := downloader.New(ctx, cfg.Downloader)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("lifecycle: init download driver: %w", err)
	}

	hookRunner := hooks.New(cfg.Hooks)
	tracker := progress.New()
	historyRecorder := history.New(storage, cfg.History.Enabled)
	renderer := feedxml.New(serverBaseURL(cfg.Server))

	updater := feedupdate.New(storage, artifacts, providers, driver, hookRunner, tracker, historyRecorder, renderer)
	sched := scheduler.New(updater, cfg.Feeds)

	shutdown := make(chan struct{})
	router := vodhttp.NewRouter(vodhttp.Handlers{
		Feeds:    vodhttp.FeedsHandler{Storage: storage, Scheduler: sched},
		Episodes: vodhttp.EpisodesHandler{Storage: storage, Ops: updater},
		Progress: vodhttp.ProgressHandler{Tracker: tracker},
		History:  vodhttp.HistoryHandler{History: historyRecorder, RetentionDays: cfg.History.RetentionDays, MaxEntries: cfg.History.MaxEntries},
		Config:   vodhttp.NewConfigHandler(cfg, path, shutdown),
	}, vodhttp.AuthConfigFrom(cfg.Server.BasicAuth), corsConfigFrom(logger), logger, newCSPMiddleware(), newIPRateLimiter(logger))

	return &Engine{
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		Storage:    storage,
		Scheduler:  sched,
		Router:     router,
		Shutdown:   shutdown,
	}, nil
}

// Close releases the storage gateway. Safe to call once per Engine.
func (e *Engine) Close() error {
	return e.Storage.Close()
}

func openStorage(cfg config.Config) (repository.Gateway, error) {
	if cfg.Database.Dir == "" {
		return nil, fmt.Errorf("database.dir is required")
	}
	if isPostgresDSN(cfg.Database.Dir) {
		return postgres.Open(cfg.Database.Dir)
	}
	return bolt.Open(cfg.Database.Dir + "/vodcast.db")
}

// isPostgresDSN distinguishes a Postgres connection string from a local
// directory path: a DSN carries a scheme ("://"). config.Validate only
// checks that database.dir is non-empty.
func isPostgresDSN(dir string) bool {
	for i := 0; i+2 < len(dir); i++ {
		if dir[i:i+3] == "://" {
			return true
		}
	}
	return false
}

func artifactConfigFrom(s config.Storage) artifact.Config {
	backend := artifact.BackendLocal
	if s.Type == config.StorageTypeRemoteObject {
		backend = artifact.BackendRemoteObject
	}
	return artifact.Config{
		Type:    backend,
		DataDir: s.DataDir,
		S3: artifact.S3Config{
			Region:    s.Region,
			Bucket:    s.Bucket,
			Prefix:    s.Prefix,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			Endpoint:  s.EndpointURL,
		},
	}
}

func serverBaseURL(s config.Server) string {
	scheme := "http"
	if s.TLS.Enabled {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, s.Hostname, s.BasePath)
}

func corsConfigFrom(logger *slog.Logger) middleware.CORSConfig {
	cfg, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Warn("lifecycle: failed to load CORS config from environment, using a deny-by-default whitelist", slog.Any("error", err))
		return middleware.CORSConfig{Validator: middleware.NewWhitelistValidator(nil), Logger: &middleware.SlogAdapter{Logger: logger}}
	}
	cfg.Logger = &middleware.SlogAdapter{Logger: logger}
	return *cfg
}

// newCSPMiddleware applies a strict Content-Security-Policy to every
// management-API response, grounded on the teacher's applyMiddleware
// (cmd/api/main.go), which builds one CSPMiddleware from csp.StrictPolicy
// and wires it ahead of routing. There is no separate Swagger UI surface
// in this façade, so PathPolicies stays empty.
func newCSPMiddleware() *middleware.CSPMiddleware {
	return middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
		Enabled:       true,
		DefaultPolicy: csp.StrictPolicy(),
	})
}

// newIPRateLimiter builds a per-IP sliding-window limiter over the teacher's
// pkg/ratelimit store, grounded on cmd/api/main.go's setupServer: an
// in-memory store bounded by MaxKeys, a SlidingWindowAlgorithm keyed
// off the system clock, Prometheus metrics, and a circuit breaker that
// fails open if the limiter itself starts erroring.
func newIPRateLimiter(logger *slog.Logger) *middleware.IPRateLimiter {
	store := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{MaxKeys: 10_000})
	algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
	metrics := ratelimit.NewPrometheusMetrics()
	breaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: 10,
		RecoveryTimeout:  30 * time.Second,
		Metrics:          metrics,
		LimiterType:      "ip",
	})
	return middleware.NewIPRateLimiter(
		middleware.DefaultIPRateLimiterConfig(),
		&middleware.RemoteAddrExtractor{},
		store,
		algorithm,
		metrics,
		breaker,
	)
}

// installTracerProvider installs a process-global SDK TracerProvider so
// spans created via tracing.GetTracer are recorded instead of discarded.
// Grounded on the teacher's own tracing tests
// (internal/observability/tracing/middleware_test.go), which construct a
// bare sdktrace.NewTracerProvider() with no exporter for the same reason:
// exporter wiring (OTLP, Jaeger) is an operational choice left to the
// deployment environment, not a compile-time dependency.
func installTracerProvider() {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
}
