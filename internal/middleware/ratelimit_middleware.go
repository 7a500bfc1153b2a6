package middleware

import (
	"context"
	"net/http"
	"strconv"

	"chatbridge/internal/redis"
	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type RateLimiter interface {
	AllowAuth(ctx context.Context, ip string) (*redis.RateLimitResult, error)
	AllowChat(ctx context.Context, userID string) (*redis.RateLimitResult, error)
}

type RateLimitRecorder interface {
	RateLimitHit(route string)
}

// AuthRateLimitMiddleware limits register/login attempts per client IP.
func AuthRateLimitMiddleware(limiter RateLimiter, recorder RateLimitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowAuth(c.Request.Context(), c.ClientIP())
		applyLimit(c, result, err, recorder)
	}
}

// ChatRateLimitMiddleware limits chatbot calls per user. Must run after AuthMiddleware.
func ChatRateLimitMiddleware(limiter RateLimiter, recorder RateLimitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowChat(c.Request.Context(), userID)
		applyLimit(c, result, err, recorder)
	}
}

func applyLimit(c *gin.Context, result *redis.RateLimitResult, err error, recorder RateLimitRecorder) {
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Internal server error", "INTERNAL_ERROR"))
		return
	}

	setRateLimitHeaders(c, result)

	if !result.Allowed {
		if recorder != nil {
			recorder.RateLimitHit(c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("Too many requests", "RATE_LIMITED"))
		return
	}

	c.Next()
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
