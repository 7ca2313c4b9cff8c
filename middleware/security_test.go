package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestAuthRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter()
	router := gin.New()
	router.POST("/login", AuthRateLimitMiddleware(rl), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", w.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	rl.GetLimiterWithConfig("a", rate.Every(time.Second), 1)
	rl.GetLimiterWithConfig("b", rate.Every(time.Second), 1)
	if rl.Len() != 2 {
		t.Fatalf("expected 2 limiters, got %d", rl.Len())
	}

	if removed := rl.Cleanup(time.Hour); removed != 0 {
		t.Fatalf("expected nothing idle, removed %d", removed)
	}

	rl.lastSeen["a"] = time.Now().Add(-2 * time.Hour)
	if removed := rl.Cleanup(time.Hour); removed != 1 {
		t.Fatalf("expected 1 idle limiter removed, got %d", removed)
	}
	if rl.Len() != 1 {
		t.Fatalf("expected 1 limiter left, got %d", rl.Len())
	}
}

func TestInputValidationMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(InputValidationMiddleware(), SecurityHeadersMiddleware(), AuditLogMiddleware())
	router.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("json accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatal("expected a request id")
		}
		if w.Header().Get("X-Frame-Options") != "DENY" {
			t.Fatal("expected security headers")
		}
	})

	t.Run("unsupported content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("hello"))
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected 415, got %d", w.Code)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = 11 * 1024 * 1024
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})

	t.Run("request id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Header().Get("X-Request-ID") != "abc-123" {
			t.Fatalf("expected abc-123, got %q", w.Header().Get("X-Request-ID"))
		}
	})
}
