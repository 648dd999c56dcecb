package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gizmodojp/line-contact-api/logger"
	"github.com/gizmodojp/line-contact-api/services"
)

// RateLimitConfig holds configuration for the inquiry rate limiter.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed per window
	RequestsPerWindow int
	// Window is the duration of the fixed counting window
	Window time.Duration
}

// InquiryRateLimiter limits submissions per client IP using a fixed window
// counter in Redis. The contact form is anonymous, so the client IP is the
// only available identifier. Redis errors fail open: an unavailable limiter
// must not take the contact form down with it.
func InquiryRateLimiter(rateLimiter services.RateLimiterInterface, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("inquiry:%s", c.ClientIP())

		allowed, retryAfter, err := rateLimiter.CheckLimit(
			c.Request.Context(),
			key,
			cfg.RequestsPerWindow,
			cfg.Window,
		)
		if err != nil {
			logger.GetLogger().Warnw("Rate limit check failed, allowing request",
				"error", err, "client_ip", c.ClientIP())
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      false,
				"message": "送信回数が上限に達しました。しばらくしてから再度お試しください。",
			})
			return
		}

		c.Next()
	}
}
