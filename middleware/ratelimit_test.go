package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitExhaustsAndRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetRateLimitConfig(time.Hour, 3, 2)

	r := gin.New()
	r.GET("/limited", RateLimit(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after bucket drained, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}

func TestAcquireUserSlotBounds(t *testing.T) {
	SetRateLimitConfig(time.Hour, 100, 1)

	release := AcquireUserSlot("slot-user")
	acquired := make(chan struct{})
	go func() {
		r2 := AcquireUserSlot("slot-user")
		close(acquired)
		r2()
	}()

	select {
	case <-acquired:
		t.Fatalf("second slot acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("second slot never acquired after release")
	}
}
