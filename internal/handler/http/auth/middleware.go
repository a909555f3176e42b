// Package auth implements HTTP Basic Auth for the management API (spec.md
// §6), with an optional single-secret bearer-token mode for operators who
// front the API with a token rather than a username/password.
package auth

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vodcast/internal/handler/http/requestid"
	"vodcast/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

// PublicEndpoints are reachable without credentials.
//
// Matching logic mirrors IsPublicEndpoint: endpoints ending in "/" use
// prefix matching, everything else requires an exact path (trailing slash
// or query string notwithstanding) so "/progress" doesn't also expose a
// hypothetical "/progress-internal".
var PublicEndpoints = []string{
	"/progress/stream",
}

// IsPublicEndpoint reports whether path may be served without credentials.
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if strings.HasSuffix(endpoint, "/") {
			if strings.HasPrefix(path, endpoint) {
				return true
			}
			continue
		}
		if path == endpoint || path == endpoint+"/" || strings.HasPrefix(path, endpoint+"?") {
			return true
		}
	}
	return false
}

// Config holds the credentials BasicAuth checks requests against. Either
// Username/Password or BearerSecret may be set (or both, in which case a
// request satisfying either is accepted). The middleware is a no-op only
// when Enabled is false (config.Server.BasicAuth.Enabled == false); when it
// is enabled with neither set, every non-public request is rejected.
type Config struct {
	Enabled      bool
	Username     string
	Password     string
	BearerSecret string // HS256 signing key for single-secret bearer mode
}

// Middleware returns an http.Handler wrapping next with Basic Auth (and,
// when BearerSecret is set, an alternate Bearer-token path), grounded on the
// teacher's Authz public-endpoint allowlist shape but narrowed from a
// multi-user JWT/role system down to spec.md's single shared credential.
func Middleware(cfg Config, next http.Handler) http.Handler {
	if !cfg.Enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicEndpoint(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if ok := checkBasic(r, cfg); ok {
			next.ServeHTTP(w, r)
			return
		}
		if cfg.BearerSecret != "" && checkBearer(r, cfg.BearerSecret) == nil {
			next.ServeHTTP(w, r)
			return
		}

		requestID := requestid.FromContext(r.Context())
		slog.Warn("unauthorized request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		w.Header().Set("WWW-Authenticate", `Basic realm="vodcast"`)
		respond.SafeError(w, http.StatusUnauthorized, errors.New("unauthorized: invalid credentials"))
	})
}

// checkBasic validates the request's Basic Auth header with constant-time
// comparisons, the same defense the teacher's BasicAuthProvider uses against
// timing attacks.
func checkBasic(r *http.Request, cfg Config) bool {
	if cfg.Username == "" && cfg.Password == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
	return userMatch && passMatch
}

// checkBearer validates a "Bearer <token>" Authorization header against a
// single HS256 secret, grounded on the teacher's validateJWT but stripped
// down to one static claim ("sub") with no role system, since spec.md has
// no concept of multiple users or permission tiers.
func checkBearer(r *http.Request, secret string) error {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, prefix) {
		return errors.New("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authz, prefix)
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	if exp, ok := claims["exp"].(float64); ok && int64(exp) < time.Now().Unix() {
		return errors.New("token expired")
	}
	if _, ok := claims["sub"].(string); !ok {
		return errors.New("invalid sub claim")
	}
	return nil
}
