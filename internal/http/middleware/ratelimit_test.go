package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(rps, burst, KeyByUserOrIP())
	r.GET("/ping", rl.Handler(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiter_AllowsWithinBurstThenRejects(t *testing.T) {
	r := newLimitedRouter(0, 2) // zero refill: exactly the burst is allowed

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests must pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %v", codes)
	}
}

func TestRateLimiter_RetryAfterHeader(t *testing.T) {
	r := newLimitedRouter(0, 1)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRateLimiter_SeparateBucketsPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r.GET("/ping", func(c *gin.Context) {
		c.Set("userID", c.Query("as"))
		c.Next()
	}, rl.Handler(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	hit := func(as string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping?as="+as, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if hit("u1") != http.StatusOK {
		t.Fatal("first u1 request must pass")
	}
	if hit("u1") != http.StatusTooManyRequests {
		t.Fatal("second u1 request must be limited")
	}
	// A different user has a fresh bucket.
	if hit("u2") != http.StatusOK {
		t.Fatal("u2 must not share u1's bucket")
	}
}

func TestRateLimiter_ReplayBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	r.GET("/ping", func(c *gin.Context) {
		c.Set(ctxKeyRateBypass, true)
		c.Next()
	}, rl.Handler(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("replay %d must bypass limiting, got %d", i, w.Code)
		}
	}
}
