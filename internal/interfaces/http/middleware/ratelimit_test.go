package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("caller1"), "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("caller2"))
		}

		assert.False(t, limiter.Allow("caller2"))
	})

	t.Run("separate windows per key", func(t *testing.T) {
		limiter := NewRateLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("callerA"))
		assert.True(t, limiter.Allow("callerA"))
		assert.False(t, limiter.Allow("callerA"))

		assert.True(t, limiter.Allow("callerB"))
		assert.True(t, limiter.Allow("callerB"))
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 50*time.Millisecond)

		assert.True(t, limiter.Allow("caller3"))
		assert.True(t, limiter.Allow("caller3"))
		assert.False(t, limiter.Allow("caller3"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, limiter.Allow("caller3"))
	})

	t.Run("remaining reflects consumed tokens", func(t *testing.T) {
		limiter := NewRateLimiter(5, time.Minute)

		assert.Equal(t, 5, limiter.Remaining("fresh"))

		limiter.Allow("fresh")
		limiter.Allow("fresh")

		assert.Equal(t, 3, limiter.Remaining("fresh"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		allowed := 0
		var mu sync.Mutex

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("concurrent-caller") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/v1/entries", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("allows requests within limit", func(t *testing.T) {
		router := newRouter(NewRateLimiter(3, time.Minute))

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest("GET", "/v1/entries", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})

	t.Run("returns 429 when limit exceeded", func(t *testing.T) {
		router := newRouter(NewRateLimiter(2, time.Minute))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("GET", "/v1/entries", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest("GET", "/v1/entries", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := newRouter(NewRateLimiter(5, time.Minute))

		req := httptest.NewRequest("GET", "/v1/entries", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("scopes the key by tenant", func(t *testing.T) {
		router := newRouter(NewRateLimiter(1, time.Minute))

		req1 := httptest.NewRequest("GET", "/v1/entries", nil)
		req1.Header.Set("X-Tenant-ID", "tenant-acme")
		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)

		req2 := httptest.NewRequest("GET", "/v1/entries", nil)
		req2.Header.Set("X-Tenant-ID", "tenant-acme")
		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusTooManyRequests, w2.Code)

		// A different tenant behind the same IP keeps its own window
		req3 := httptest.NewRequest("GET", "/v1/entries", nil)
		req3.Header.Set("X-Tenant-ID", "tenant-globex")
		w3 := httptest.NewRecorder()
		router.ServeHTTP(w3, req3)
		assert.Equal(t, http.StatusOK, w3.Code)
	})
}
