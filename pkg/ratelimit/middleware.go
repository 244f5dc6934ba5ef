package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"seatline/internal/shared/utils/response"
	"seatline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware limits requests per client IP and route class. Redis failures
// let the request through; drivers must not be locked out by the limiter.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			logger.GetDefault().WarnContext(c.Request.Context(), "rate limit check failed", "error", err, "path", c.FullPath())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	// Batch sync and single ticket issue
	case strings.Contains(path, "/tickets"):
		return RateLimitTypeSync

	case strings.Contains(path, "/reservations"):
		return RateLimitTypeLifecycle

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP prefers proxy headers, then the socket address
func getClientIP(c *gin.Context) string {
	if xForwardedFor := c.GetHeader("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(ips[0]); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); xRealIP != "" && net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}
