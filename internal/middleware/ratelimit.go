package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/crewcal-dev/crewcal/internal/ratelimit"
	"github.com/crewcal-dev/crewcal/internal/types"
	"github.com/gin-gonic/gin"
)

// Rate limit tiers. Auth endpoints get a strict budget because they are the
// target of credential stuffing; the general API tier is sized for a busy
// calendar UI.
const (
	AuthTierName  = "auth"
	AuthTierLimit = 5

	APITierName  = "api"
	APITierLimit = 100

	rateLimitWindow = time.Minute
)

// RateLimit enforces a fixed-window cap per client address and tier. Counters
// live in the injected store, so limits are only as global as the store is.
func RateLimit(store ratelimit.Store, tier string, limit int) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := fmt.Sprintf("%s:%s", ctx.ClientIP(), tier)

		count, resetAt := store.Increment(key, rateLimitWindow)

		ctx.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))

		if count > limit {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			ctx.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			ctx.Header("X-RateLimit-Remaining", "0")
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Error:   types.ErrRateLimited,
				Message: fmt.Sprintf("Too many requests, retry in %d seconds", retryAfter),
			})
			return
		}

		ctx.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-count))
		ctx.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))

		ctx.Next()
	}
}
