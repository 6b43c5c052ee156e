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

func newLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	l := NewRateLimiter(limit, window)
	t.Cleanup(l.Stop)
	return l
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := newLimiter(t, 3, time.Minute)
		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("client"))
		assert.Equal(t, 0, limiter.Remaining("client"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := newLimiter(t, 1, time.Minute)
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
		assert.Equal(t, 1, limiter.Remaining("unknown"))
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter := newLimiter(t, 1, 30*time.Millisecond)
		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))
		time.Sleep(40 * time.Millisecond)
		assert.True(t, limiter.Allow("client"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := newLimiter(t, 50, time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, allowed)
	})
}

func postFrom(router http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(newLimiter(t, 2, time.Minute)))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := postFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	postFrom(router, "10.0.0.1")
	w = postFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.2").Code)
}

func TestAuthRateLimit(t *testing.T) {
	limiter := newLimiter(t, 1, time.Minute)
	router := gin.New()
	router.Use(AuthRateLimit(limiter))
	router.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.1").Code)

	w := postFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeAuthRateLimited)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// The auth limiter keys are namespaced.
	assert.True(t, limiter.Allow("10.0.0.1"))
}
