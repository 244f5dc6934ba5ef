package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"seatline/internal/shared/config"

	"github.com/gin-gonic/gin"
)

func TestGetRateLimitType(t *testing.T) {
	tests := map[string]RateLimitType{
		"/health":                            RateLimitTypeHealth,
		"/ping":                              RateLimitTypeHealth,
		"/api/v1/tickets/batch":              RateLimitTypeSync,
		"/api/v1/tickets":                    RateLimitTypeSync,
		"/api/v1/reservations/:id/board":     RateLimitTypeLifecycle,
		"/api/v1/trips/:tripId/reservations": RateLimitTypeLifecycle,
		"/api/v1/pricing/quote":              RateLimitTypeDefault,
	}
	for path, want := range tests {
		if got := getRateLimitType(path); got != want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestMiddlewareWithoutRedisAllows(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(nil, config.RateLimitConfig{Enabled: true, SyncRequests: 1})
	r := gin.New()
	r.Use(Middleware(limiter))
	r.POST("/api/v1/tickets/batch", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets/batch", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "1" {
			t.Fatalf("limit header = %q", w.Header().Get("X-RateLimit-Limit"))
		}
	}
}

func TestGetClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := getClientIP(c); ip != "203.0.113.9" {
		t.Fatalf("ip = %s", ip)
	}
	c.Request.Header.Del("X-Forwarded-For")
	c.Request.RemoteAddr = "192.0.2.4:5555"
	if ip := getClientIP(c); ip != "192.0.2.4" {
		t.Fatalf("ip = %s", ip)
	}
}
