// ===============================
// internal/middleware/ratelimit.go - Per-IP fixed window rate limiting
// ===============================

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type visitor struct {
	requests    int
	windowStart time.Time
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	visitors map[string]*visitor
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the
// current window, along with the requests left.
func (rl *RateLimiter) Allow(key string, limit int, window time.Duration) (bool, int) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.windowStart) > window {
		rl.visitors[key] = &visitor{requests: 1, windowStart: now}
		return true, limit - 1
	}

	if v.requests >= limit {
		return false, 0
	}
	v.requests++
	return true, limit - v.requests
}

// Cleanup forgets visitors idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, v := range rl.visitors {
		if v.windowStart.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// RunCleanup prunes idle visitors every five minutes until ctx is done.
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(10 * time.Minute)
		}
	}
}

func limitFor(method, path string) int {
	switch {
	case strings.HasPrefix(path, "/api/v1/auth/register"), strings.HasPrefix(path, "/api/v1/auth/reset-password"):
		return 10
	case strings.HasSuffix(path, "/payment-proof") && method == http.MethodPost:
		return 5
	case strings.HasPrefix(path, "/api/v1/admin"):
		return 500
	default:
		return 200
	}
}

// NotificationsSocketPath is the websocket route. Long-lived connections
// there are not counted.
const NotificationsSocketPath = "/api/v1/ws/notifications"

// RateLimit limits each client IP per minute.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.FullPath() == NotificationsSocketPath && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}

		limit := limitFor(c.Request.Method, c.Request.URL.Path)
		allowed, remaining := rl.Allow(c.ClientIP()+"|"+strconv.Itoa(limit), limit, time.Minute)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", "60")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests, please try again later",
				"limit":   limit,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
