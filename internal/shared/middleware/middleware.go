package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tiquetera/internal/shared/utils/response"
	"tiquetera/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the auth middleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextToken    = "token"
)

// Principal is the user an access token belongs to.
type Principal struct {
	UserID   int
	Username string
	Email    string
}

// TokenResolver looks up the owner of an access token.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (Principal, bool)
}

// RequestLogger logs every request after it has been served and tags the
// request with an id, reusing X-Request-ID when the caller sent one.
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Next()
		l.WithRequestID(requestID).LogHTTPRequest(c, time.Since(start))
	}
}

// CORS allows every origin, with the rate limit headers exposed.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// TokenAuth requires an "Authorization: Token <key>" header naming a live
// token.
func TokenAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AbortDetail(c, http.StatusUnauthorized, "Las credenciales de autenticación no se proveyeron.")
			return
		}

		token, ok := parseToken(authHeader)
		if !ok {
			response.AbortDetail(c, http.StatusUnauthorized, "Encabezado de token inválido.")
			return
		}

		principal, ok := resolver.ResolveToken(c.Request.Context(), token)
		if !ok {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), "unknown token", c.ClientIP())
			response.AbortDetail(c, http.StatusUnauthorized, "Token inválido.")
			return
		}

		setPrincipal(c, principal, token)
		c.Next()
	}
}

// OptionalAuth sets the principal when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := parseToken(c.GetHeader("Authorization")); ok {
			if principal, ok := resolver.ResolveToken(c.Request.Context(), token); ok {
				setPrincipal(c, principal, token)
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, if any.
func CurrentUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

func setPrincipal(c *gin.Context, p Principal, token string) {
	c.Set(ContextUserID, p.UserID)
	c.Set(ContextUsername, p.Username)
	c.Set(ContextToken, token)
}

func parseToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Token" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
