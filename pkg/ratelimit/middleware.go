package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"tiquetera/internal/shared/utils/response"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
)

// rate limiting middleware
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get client IP
		clientIP := getClientIP(c)

		// Determine rate limit type from route
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		limitType := getRateLimitType(c.Request.Method, path)

		// Check rate limit
		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			log.ErrorWithContext(c.Request.Context(), "Rate limit check failed", err, nil)
			response.AbortDetail(c, http.StatusInternalServerError, "No se pudo verificar el límite de peticiones.")
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

		// Check if rate limited
		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, path)
			c.Header("Retry-After", fmt.Sprintf("%d", int(rateLimiter.config.WindowDuration.Seconds())))
			response.AbortDetail(c, http.StatusTooManyRequests, "Solicitud fue regulada. Intenta más tarde.")
			return
		}

		c.Next()
	}
}

// route matching, most specific first
func getRateLimitType(method, path string) RateLimitType {
	switch {
	// Health/monitoring endpoints
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	// Authentication endpoints
	case strings.Contains(path, "/users/login"),
		strings.Contains(path, "/users/register"),
		strings.Contains(path, "/users/verify-email"),
		strings.Contains(path, "/users/resend-verification-email"):
		return RateLimitTypeAuth

	// Purchase flow, including the gateway
	case strings.HasSuffix(path, "/buy/"),
		strings.HasSuffix(path, "/pay/"),
		strings.Contains(path, "/payments/"),
		strings.HasPrefix(path, "/gateway/"):
		return RateLimitTypePurchase

	// Reference data
	case strings.Contains(path, "/departments"),
		strings.Contains(path, "/cities"),
		strings.Contains(path, "/catalogs/"):
		return RateLimitTypeCatalog

	// User-specific endpoints
	case strings.Contains(path, "/users/"),
		strings.Contains(path, "/events/my"):
		return RateLimitTypeUser

	// Public browsing endpoints
	case method == http.MethodGet && strings.Contains(path, "/events"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// extracts real client IP
func getClientIP(c *gin.Context) string {
	// Check X-Forwarded-For header
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	// Check X-Real-IP header
	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return ip
}
