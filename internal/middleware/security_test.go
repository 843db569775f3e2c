package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestPostGuardBlocksNonAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.POST("/report/download", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodPost, "/report/download", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for non-API POST, got %d", w.Code)
	}
}

func TestPostGuardAllowsAPIAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.POST("/api/login", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/login", func(c *gin.Context) { c.JSON(http.StatusTeapot, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected API POST to succeed (200), got %d", w.Code)
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w2.Code != http.StatusTeapot {
		t.Fatalf("expected /login POST to reach handler (418), got %d", w2.Code)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if w.Header().Get(h) == "" {
			t.Fatalf("expected %s header", h)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP")
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/api/report", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodOptions, "/api/report", nil)
	req.Header.Set("Origin", "http://example.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.test" {
		t.Fatalf("expected origin echo, got %q", got)
	}
}

func TestRateLimiterBlocksBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(rate.Every(time.Hour), 2)
	defer rl.Stop()
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestRateLimiterSweepDropsIdleClients(t *testing.T) {
	rl := PerMinute(60, 1)
	defer rl.Stop()
	rl.getLimiter("10.0.0.1")
	rl.sweep(time.Now().Add(2 * limiterIdleTTL))
	rl.mu.Lock()
	n := len(rl.limiters)
	rl.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle limiter to be swept, %d remain", n)
	}
	rl.Stop() // second Stop must not panic
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get(RequestIDHeader)
	if len(id) != 36 || w.Body.String() != id {
		t.Fatalf("expected generated uuid echoed, got header=%q body=%q", id, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("expected inbound request id to be kept")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id with spaces")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) == "bad id with spaces" {
		t.Fatalf("expected malformed request id to be replaced")
	}
}
