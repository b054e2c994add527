package middleware

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/metrics"
	"github.com/wattrewards/wattrewards/pkg/response"
)

// RateLimitConfig configures the HTTP limiter.
type RateLimitConfig struct {
	Store    RateStore
	Requests int
	Window   time.Duration
	// KeyPrefix namespaces counters so several limiters can share one store.
	KeyPrefix string
}

// RateLimit returns a middleware that limits requests per (clientIP, route) within a fixed window.
// Counters live in the injected store so multiple instances can share them via Redis.
// Store errors fail open: the request proceeds and a warning is logged.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "ratelimit:http"
	}

	return func(c *gin.Context) {
		if cfg.Store == nil || cfg.Requests <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", prefix, c.ClientIP(), route)

		count, ttl, err := cfg.Store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.WithModule("ratelimit").Warn("rate store unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := cfg.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := int(math.Ceil(ttl.Seconds()))

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

		if count > cfg.Requests {
			metrics.RateLimitRejections.WithLabelValues("http").Inc()
			response.Error(c, errors.NewRateLimit(errors.ErrRateLimit.Message, ttl))
			c.Abort()
			return
		}

		c.Next()
	}
}
