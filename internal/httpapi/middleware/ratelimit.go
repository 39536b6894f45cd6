package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lumenops/aicore/internal/common"
)

// Limiter is the fixed-window counter behind the chat rate limit.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit caps chat requests per tenant+user per minute. It is fail-open: a
// redis outage must not take the chat path down with it.
func RateLimit(limiter Limiter, limit int, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("chat:%s:%s", c.GetString(TenantIDKey), c.GetString(UserIDKey))

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, failing open")
			c.Next()
			return
		}
		if !allowed {
			common.Fail(c, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
