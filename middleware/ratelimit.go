package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/creator-insights/cache"
)

// RateLimit applies limiter per actor, falling back to the client IP for
// anonymous requests. Keys are prefixed with scope so route groups do not
// share buckets.
func RateLimit(limiter *cache.RateLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor := ActorFrom(c); actor != nil {
			key = "user:" + actor.ID
		}

		ok, wait := limiter.Allow(scope + "|" + key)
		if !ok {
			retryAfter := int(math.Ceil(wait.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate_limited",
				"retryAfter": retryAfter,
			})
			return
		}
		c.Next()
	}
}
