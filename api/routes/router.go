// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"tiquetera/internal/sandbox"
	"tiquetera/internal/shared/config"
	"tiquetera/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Version is reported by /ping and /status.
const Version = "v1"

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	sandbox *sandbox.Sandbox
	redis   cache.Service // nil when Redis is not configured
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, sb *sandbox.Sandbox, redis cache.Service) *Router {
	return &Router{
		config:  cfg,
		sandbox: sb,
		redis:   redis,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Backend API and the simulated gateway
	r.sandbox.Register(engine)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.redis != nil {
			if err := r.redis.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "tiquetera-sandbox",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"service":    "tiquetera-sandbox",
			"settlement": r.sandbox.Settlement.GetJobStatus(),
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": Version,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": Version,
			"api_prefix":  r.config.Server.APIPrefix,
			"public_url":  r.config.GetPublicURL(),
			"timestamp":   time.Now(),
		})
	})
}
