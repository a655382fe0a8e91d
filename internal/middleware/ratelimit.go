// Package middleware provides HTTP middleware for the admin/status API.
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ruvnet/swimguard/internal/config"
	"github.com/ruvnet/swimguard/internal/errors"
)

// RateLimiter holds rate limiting configuration and state, one token bucket
// per client key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   config.RateLimitConfig
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(
		rate.Limit(rl.config.RequestsPerMinute)/60,
		rl.config.Burst,
	)
	rl.limiters[key] = limiter

	go func() {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		delete(rl.limiters, key)
		rl.mu.Unlock()
	}()

	return limiter
}

// RateLimit applies rate limiting per client IP to the admin API.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	rl := NewRateLimiter(cfg)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := rl.getLimiter(clientIP)

		if !limiter.Allow() {
			retryAfter := time.Second
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.Header("X-Rate-Limit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
			c.Header("X-Rate-Limit-Remaining", "0")
			c.Header("X-Rate-Limit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))

			apiErr := errors.NewRateLimitError(
				fmt.Sprintf("rate limit exceeded: %d requests per minute", cfg.RequestsPerMinute))
			c.JSON(http.StatusTooManyRequests, apiErr)
			c.Abort()
			return
		}

		c.Header("X-Rate-Limit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-Rate-Limit-Remaining", strconv.Itoa(cfg.Burst-1))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

		c.Next()
	}
}

// EndpointRateLimit applies a distinct limit per method+route, for endpoints
// like ForceSuspect that should be throttled harder than read-only ones.
func EndpointRateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	cfg := config.RateLimitConfig{RequestsPerMinute: requestsPerMinute, Burst: burst}
	rl := NewRateLimiter(cfg)

	return func(c *gin.Context) {
		key := fmt.Sprintf("endpoint:%s:%s", c.Request.Method, c.FullPath())
		limiter := rl.getLimiter(key)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, errors.NewRateLimitError("endpoint rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}
