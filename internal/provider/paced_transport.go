package provider

import (
	"net/http"
	"time"

	"vodcast/pkg/ratelimit"
)

// defaultProviderRateLimit and defaultProviderRateWindow bound how often the
// registry's adapters may call any one provider host, independent of the
// per-key quota YouTube/Vimeo/SoundCloud/Twitch enforce server-side: a feed
// update cycle that fans out across many feeds on the same provider should
// not burst past what a single API key can sustain.
const (
	defaultProviderRateLimit  = 60
	defaultProviderRateWindow = time.Minute
)

// pacedTransport rate-limits outbound provider API calls per host, reusing
// the same sliding-window algorithm and in-memory store cmd/api's per-IP
// rate limiter is built from (see internal/lifecycle.newIPRateLimiter).
// Unlike that limiter, an over-limit request here waits for the window to
// reset instead of being rejected: a scheduled feed refresh has nowhere
// else to send a 429, so it paces itself instead of failing the cycle.
type pacedTransport struct {
	next      http.RoundTripper
	store     ratelimit.RateLimitStore
	algorithm ratelimit.RateLimitAlgorithm
	metrics   ratelimit.RateLimitMetrics
	limit     int
	window    time.Duration
}

// NewPacedClient returns an *http.Client whose Transport paces requests to
// each provider host to at most defaultProviderRateLimit calls per
// defaultProviderRateWindow. Intended for internal/lifecycle to hand to
// NewRegistry in place of http.DefaultClient.
func NewPacedClient() *http.Client {
	return &http.Client{Transport: newPacedTransport(http.DefaultTransport, defaultProviderRateLimit, defaultProviderRateWindow)}
}

func newPacedTransport(next http.RoundTripper, limit int, window time.Duration) *pacedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &pacedTransport{
		next:      next,
		store:     ratelimit.NewInMemoryRateLimitStore(ratelimit.DefaultInMemoryStoreConfig()),
		algorithm: ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{}),
		metrics:   ratelimit.NewPrometheusMetrics(),
		limit:     limit,
		window:    window,
	}
}

// RoundTrip blocks until the sliding window admits req's host, then
// delegates to next. A limiter error fails open: a broken rate limiter must
// never be the reason a scheduled download is lost.
func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	key := req.URL.Host

	for {
		decision, err := t.algorithm.IsAllowed(ctx, key, t.store, t.limit, t.window)
		if err != nil {
			break
		}
		if decision.IsAllowed() {
			t.metrics.RecordAllowed("provider", key)
			break
		}
		t.metrics.RecordDenied("provider", key)

		wait := time.Until(time.Unix(decision.ResetAtUnix(), 0))
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return t.next.RoundTrip(req)
}
