package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Disabled_AllowsAllRequests(t *testing.T) {
	h := Middleware(Config{Enabled: false}, okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feeds", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_PublicEndpoint_BypassesCredentials(t *testing.T) {
	h := Middleware(Config{Enabled: true, Username: "admin", Password: "secret"}, okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress/stream", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_ValidBasicAuth_Allows(t *testing.T) {
	h := Middleware(Config{Enabled: true, Username: "admin", Password: "secret"}, okHandler())
	req := httptest.NewRequest(http.MethodGet, "/feeds", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_InvalidBasicAuth_Rejects(t *testing.T) {
	h := Middleware(Config{Enabled: true, Username: "admin", Password: "secret"}, okHandler())
	req := httptest.NewRequest(http.MethodGet, "/feeds", nil)
	req.SetBasicAuth("admin", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddleware_ValidBearerToken_Allows(t *testing.T) {
	secret := "shh"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	h := Middleware(Config{Enabled: true, BearerSecret: secret}, okHandler())
	req := httptest.NewRequest(http.MethodGet, "/feeds", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddleware_ExpiredBearerToken_Rejects(t *testing.T) {
	secret := "shh"
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	h := Middleware(Config{Enabled: true, BearerSecret: secret}, okHandler())
	req := httptest.NewRequest(http.MethodGet, "/feeds", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestIsPublicEndpoint(t *testing.T) {
	cases := map[string]bool{
		"/progress/stream":       true,
		"/progress/stream?x=1":   true,
		"/progress":              false,
		"/feeds":                 false,
	}
	for path, want := range cases {
		if got := IsPublicEndpoint(path); got != want {
			t.Errorf("IsPublicEndpoint(%q) = %v, want %v", path, got, want)
		}
	}
}
