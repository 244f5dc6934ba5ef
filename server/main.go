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

	"seatline/api/routes"
	"seatline/internal/notifications"
	"seatline/internal/shared/config"
	"seatline/internal/shared/database"
	"seatline/internal/shared/middleware"
	"seatline/pkg/logger"
	"seatline/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
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

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Gin mode decides the log format, so rebuild the logger after setting it
	gin.SetMode(cfg.GinMode)
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := notifications.NewPublisher(cfg.Events)
	if err != nil {
		appLogger.Error("Failed to initialize event publisher, continuing without events",
			slog.String("broker", cfg.Events.Broker), slog.Any("error", err))
		publisher = notifications.Noop()
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing event publisher", slog.Any("error", err))
		}
	}()

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.Redis != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, cfg.RateLimit)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, db, publisher, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("redis", db.Redis != nil),
			slog.String("event_broker", cfg.Events.Broker),
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

func setupRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(middleware.RequestID(), RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID", "X-Device-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter := routes.NewRouter(cfg, db, publisher)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
