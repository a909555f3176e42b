package http

import (
	"log/slog"
	"net/http"
	"time"

	"vodcast/internal/config"
	"vodcast/internal/handler/http/auth"
	"vodcast/internal/handler/http/middleware"
	"vodcast/internal/handler/http/requestid"
)

// requestTimeout bounds every route except the SSE stream, which is
// long-lived by design (spec.md §6's GET /progress/stream).
const requestTimeout = 30 * time.Second

// sseStreamPath is exempt from requestTimeout: Timeout would otherwise
// sever the progress stream's connection after requestTimeout has elapsed,
// even though the client is still reading frames.
const sseStreamPath = "/progress/stream"

// Handlers bundles every façade handler router.go needs to register a route
// group for. Each field is already the narrow interface the corresponding
// handler struct depends on, wired by the entrypoint (cmd/api) against the
// concrete repository.Gateway, scheduler.Scheduler, progress.Tracker, and
// history.Recorder instances it constructed.
type Handlers struct {
	Feeds    FeedsHandler
	Episodes EpisodesHandler
	Progress ProgressHandler
	History  HistoryHandler
	Config   *ConfigHandler
}

// NewRouter assembles the management API's *http.ServeMux (spec.md §6) and
// wraps it with the same middleware chain the teacher's cmd/worker health
// server applies, in the same order: request ID, then logging, then a
// request timeout, then recovery closest to the mux so a panicking handler
// still gets logged and given an ID. The timeout layer exempts
// GET /progress/stream, since that route is a long-lived SSE connection by
// design rather than a stuck handler. InputValidation wraps that chain and
// rejects oversized headers/paths/bodies before request-ID, logging and
// routing run. IP rate limiting, CSP, Basic Auth, and CORS wrap everything
// else, InputValidation included, so they run before it, since any of them
// may short-circuit a request before it reaches routing. csp and rateLimit are optional (nil skips that layer) since
// neither is required to exercise the other handlers in tests.
func NewRouter(h Handlers, authCfg auth.Config, corsCfg middleware.CORSConfig, logger *slog.Logger, csp *middleware.CSPMiddleware, rateLimit *middleware.IPRateLimiter) http.Handler {
	mux := http.NewServeMux()

	RegisterFeedRoutes(mux, h.Feeds)
	RegisterEpisodeRoutes(mux, h.Episodes)
	RegisterProgressRoutes(mux, h.Progress)
	RegisterHistoryRoutes(mux, h.History)
	RegisterConfigRoutes(mux, h.Config)

	var handler http.Handler = mux
	handler = Recover(logger)(handler)
	handler = exemptSSEStream(Timeout(requestTimeout))(handler)
	handler = Logging(logger)(handler)
	handler = requestid.Middleware(handler)
	handler = InputValidation()(handler)
	handler = auth.Middleware(authCfg, handler)
	if csp != nil {
		handler = csp.Middleware()(handler)
	}
	if rateLimit != nil {
		handler = rateLimit.Middleware()(handler)
	}
	handler = middleware.CORS(corsCfg)(handler)
	return handler
}

// AuthConfigFrom adapts config.BasicAuth onto auth.Config.
func AuthConfigFrom(cfg config.BasicAuth) auth.Config {
	return auth.Config{
		Enabled:      cfg.Enabled,
		Username:     cfg.Username,
		Password:     cfg.Password,
		BearerSecret: cfg.BearerSecret,
	}
}
