package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"expiring-cache-api/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware admits at most limit requests per client address and
// route in each window of the store.
func RateLimitMiddleware(store *ratelimit.CounterStore, limit int64, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		decision, err := store.Allow(c.ClientIP(), route, limit)
		if err != nil {
			logger.Error("rate limit unavailable", slog.String("route", route), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Rate limiter unavailable",
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}
