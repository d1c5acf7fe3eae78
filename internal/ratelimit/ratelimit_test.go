package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, BurstSize: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("client") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if l.Allow("client") {
		t.Error("request beyond burst should be denied")
	}
}

func TestAllowIsolatesClients(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("first request for a should be allowed")
	}
	if l.Allow("a") {
		t.Error("second request for a should be denied")
	}
	if !l.Allow("b") {
		t.Error("b has its own bucket and should be allowed")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	l.Allow("client")
	if l.Allow("client") {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.Allow("client") {
		t.Error("bucket should have refilled")
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	l := New(Config{RequestsPerSecond: 1, BurstSize: 2, CleanupInterval: time.Minute})
	defer l.Stop()

	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(200, "ok")
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request should be limited, got %d", codes[2])
	}
}
