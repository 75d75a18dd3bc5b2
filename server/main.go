package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tiquetera/api/routes"
	"tiquetera/internal/sandbox"
	"tiquetera/internal/shared/config"
	"tiquetera/internal/shared/middleware"
	"tiquetera/pkg/cache"
	"tiquetera/pkg/logger"
	"tiquetera/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.Server.GinMode)

	// Redis is optional; the limiter falls back to memory without it
	var redisClient *redis.Client
	var redisService cache.Service
	if cfg.RateLimit.Enabled {
		client, err := cache.Connect(cache.Config{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Error("Redis unavailable, using in-memory rate limiting", slog.Any("error", err))
		} else {
			redisClient = client
			redisService = cache.NewService(client)
			defer client.Close()
		}
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			CatalogRequests:  cfg.RateLimit.CatalogRequests,
			AuthRequests:     cfg.RateLimit.AuthRequests,
			PurchaseRequests: cfg.RateLimit.PurchaseRequests,
			UserRequests:     cfg.RateLimit.UserRequests,
			HealthRequests:   cfg.RateLimit.HealthRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		}

		if redisClient != nil {
			rateLimiter = ratelimit.NewRateLimiter(redisClient, rateLimiterConfig)
		} else {
			rateLimiter = ratelimit.NewMemoryRateLimiter(rateLimiterConfig)
		}
		appLogger.Info("Rate limiter initialized",
			slog.Bool("redis", redisClient != nil),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Fixtures
	fixtures := sandbox.DefaultFixtures()
	if cfg.Server.FixturesPath != "" {
		loaded, err := sandbox.LoadFixtures(cfg.Server.FixturesPath)
		if err != nil {
			appLogger.Error("Failed to load fixtures", slog.String("path", cfg.Server.FixturesPath), slog.Any("error", err))
			os.Exit(1)
		}
		fixtures = loaded
		appLogger.Info("Fixtures loaded", slog.String("path", cfg.Server.FixturesPath))
	}

	sb, err := sandbox.New(sandbox.Options{
		Fixtures: fixtures,
		Gateway: sandbox.GatewayConfig{
			MerchantID: cfg.Server.MerchantID,
			AccountID:  cfg.Server.AccountID,
			APIKey:     cfg.Server.APIKey,
			PublicURL:  cfg.GetPublicURL(),
		},
		Settlement: &sandbox.SettlementJobConfig{
			Delay:         cfg.Server.SettlementDelay,
			CheckInterval: time.Second,
		},
		APIPrefix: cfg.Server.APIPrefix,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error("Failed to build sandbox", slog.Any("error", err))
		os.Exit(1)
	}

	// Settlement job runs until shutdown
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	sb.Start(jobCtx)
	defer sb.Stop()

	// Setup router with rate limiter
	router := setupRouter(cfg, sb, redisService, rateLimiter, appLogger)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Sandbox running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("%s/health", cfg.GetPublicURL())),
			slog.String("api_base", cfg.GetPublicURL()+cfg.Server.APIPrefix),
			slog.Duration("settlement_delay", cfg.Server.SettlementDelay),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("build_time", BuildTime),
			slog.Bool("rate_limiting", rateLimiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, sb *sandbox.Sandbox, redisService cache.Service, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	// Logs requests + recovers from panics
	engine.Use(middleware.RequestLogger(appLogger), gin.Recovery())
	engine.Use(middleware.CORS())

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, sb, redisService)
	appRouter.SetupRoutes(engine)

	return engine
}
