// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"seatline/api"
	"seatline/internal/auth"
	"seatline/internal/notifications"
	"seatline/internal/pricing"
	"seatline/internal/reservations"
	"seatline/internal/shared/config"
	"seatline/internal/shared/database"
	"seatline/internal/shared/middleware"
	"seatline/internal/tickets"
	"seatline/internal/trips"
	"seatline/pkg/cache"
	"seatline/pkg/logger"
	"seatline/pkg/redislock"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
	cache     cache.Service
	auth      gin.HandlerFunc
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher) *Router {
	r := &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		cache:     cache.Noop(),
		auth:      middleware.JWTAuthWithConfig(cfg),
	}
	if db.Redis != nil {
		r.cache = cache.NewService(db.Redis)
	}
	if r.publisher == nil {
		r.publisher = notifications.Noop()
	}
	return r
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)
	r.setupDocsRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		tripRepo := trips.NewRepository(r.db.PostgreSQL)
		reservationRepo := reservations.NewRepository(r.db.PostgreSQL)
		r.setupAuthRoutes(api)
		pricingService := r.setupPricingRoutes(api)
		r.setupReservationRoutes(api, reservationRepo)
		r.setupTicketRoutes(api, reservationRepo, tripRepo, pricingService)
	}
}

func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "seatline",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "seatline",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "operational",
			"api_version":  r.config.APIVersion,
			"redis":        r.db.Redis != nil,
			"event_broker": r.config.Events.Broker,
			"timestamp":    time.Now(),
		})
	})
}

// setupDocsRoutes serves the embedded OpenAPI document and the swagger UI
func (r *Router) setupDocsRoutes(engine *gin.Engine) {
	engine.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", api.OpenAPI)
	})
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.json")))
}

func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.PostgreSQL)
	authService := auth.NewService(authRepo, r.config.JWT, nil)
	authController := auth.NewController(authService)

	auth.SetupAuthRoutes(rg, authController, r.auth)
}

func (r *Router) setupPricingRoutes(rg *gin.RouterGroup) pricing.Service {
	pricingRepo := pricing.NewRepository(r.db.PostgreSQL)
	pricingService := pricing.NewService(pricingRepo, r.cache, r.config.Redis.PriceQuoteTTL)
	pricingController := pricing.NewController(pricingService)

	pricing.SetupPricingRoutes(rg, pricingController,
		r.auth, middleware.RequireRoles(middleware.RoleDriver, middleware.RoleAgent, middleware.RoleAdmin))
	return pricingService
}

func (r *Router) setupReservationRoutes(rg *gin.RouterGroup, repo reservations.Repository) {
	reservationService := reservations.NewService(repo, reservations.Options{
		VersionRetries: r.config.Tickets.VersionRetries,
		ManifestTTL:    r.config.Redis.ManifestTTL,
		Publisher:      r.publisher,
		Cache:          r.cache,
		Logger:         logger.GetDefault(),
	})
	reservationController := reservations.NewController(reservationService)

	reservations.SetupReservationRoutes(rg, reservationController,
		r.auth, middleware.RequireRoles(middleware.RoleDriver, middleware.RoleAgent, middleware.RoleAdmin))
}

func (r *Router) setupTicketRoutes(rg *gin.RouterGroup, reservationRepo reservations.Repository, tripRepo trips.Repository, pricingService pricing.Service) {
	ticketRepo := tickets.NewRepository(r.db.PostgreSQL, reservationRepo, tripRepo)
	ticketService := tickets.NewService(ticketRepo, tickets.Options{
		DefaultCurrency:   r.config.Tickets.DefaultCurrency,
		DefaultCategoryID: r.config.Tickets.DefaultCategoryID,
		MaxBatchSize:      r.config.Tickets.MaxBatchSize,
		BatchLockTTL:      r.config.Redis.BatchLockTTL,
		Pricing:           pricingService,
		Locker:            redislock.New(r.db.Redis),
		Cache:             r.cache,
		Publisher:         r.publisher,
		Logger:            logger.GetDefault(),
	})
	ticketController := tickets.NewController(ticketService)

	tickets.SetupTicketRoutes(rg, ticketController,
		r.auth, middleware.RequireRoles(middleware.RoleDriver, middleware.RoleAdmin))
}
