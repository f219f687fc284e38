package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/application/usecases"
	"github.com/nicklaros/stockengine/internal/infrastructure/config"
	"github.com/nicklaros/stockengine/internal/infrastructure/metrics"
	"github.com/nicklaros/stockengine/pkg/logger"
)

// Server is the REST adapter (C4): it decodes JSON bodies into engine
// requests, maps engine errors to status codes, and shapes every response
// as {data, meta?, movement?, reservation_id?}.
type Server struct {
	config  *config.Config
	engine  *usecases.InventoryEngine
	query   *usecases.InventoryQueryService
	db      ports.DatabasePort
	logger  logger.Logger
	router  *gin.Engine
	server  *http.Server
	health  *metrics.HealthChecker
}

// NewServer wires the router, middleware chain and route table.
// Authentication is deliberately absent: this service trusts its caller
// and delegates authentication to an upstream gateway.
func NewServer(cfg *config.Config, engine *usecases.InventoryEngine, query *usecases.InventoryQueryService, db ports.DatabasePort, log logger.Logger) *Server {
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s := &Server{
		config: cfg,
		engine: engine,
		query:  query,
		db:     db,
		logger: log,
		router: router,
		health: metrics.NewHealthChecker(log),
	}

	router.Use(gin.Recovery())
	router.Use(s.errorRecoveryMiddleware())
	router.Use(s.requestTrackingMiddleware())
	router.Use(s.securityHeadersMiddleware())
	router.Use(corsMiddleware())
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(metrics.GinMiddleware())

	s.registerHealthChecks()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server on port " + s.config.Server.Port)
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.livenessCheck)
	s.router.GET("/health/live", s.livenessCheck)
	s.router.GET("/health/ready", s.readinessCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		inventory := v1.Group("/inventory")
		{
			inventory.GET("", s.listInventory)
			inventory.POST("", s.createInventoryItem)
			inventory.GET("/low_stock", s.listLowStock)
			inventory.GET("/locations", s.listLocations)
			inventory.POST("/bulk_adjust", s.bulkAdjust)
			inventory.GET("/:sku", s.getInventoryItem)
			inventory.PATCH("/:sku", s.updateInventoryItem)
			inventory.DELETE("/:sku", s.deleteInventoryItem)
			inventory.POST("/:sku/adjust", s.adjustInventoryItem)
			inventory.POST("/:sku/reserve", s.reserveInventoryItem)
			inventory.POST("/:sku/release", s.releaseInventoryItem)
			inventory.POST("/:sku/commit", s.commitInventoryItem)
			inventory.GET("/:sku/movements", s.listItemMovements)
		}

		movements := v1.Group("/stock_movements")
		{
			movements.GET("", s.listMovements)
			movements.GET("/:id", s.getMovement)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.ExposeHeaders = []string{"X-Request-ID", "X-Total-Count", "X-Page", "X-Per-Page"}
	return cors.New(cfg)
}

func (s *Server) registerHealthChecks() {
	s.health.RegisterCheck("database", func() metrics.HealthCheck {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.db.Health(ctx); err != nil {
			return metrics.HealthCheck{Name: "database", Status: metrics.HealthStatusUnhealthy, Message: err.Error()}
		}
		return metrics.HealthCheck{Name: "database", Status: metrics.HealthStatusHealthy}
	})
}

func (s *Server) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readinessCheck(c *gin.Context) {
	checks := s.health.RunChecks()
	if s.health.IsHealthy() {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
}
