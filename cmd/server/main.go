package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/application/usecases"
	"github.com/nicklaros/stockengine/internal/infrastructure/cache"
	"github.com/nicklaros/stockengine/internal/infrastructure/config"
	"github.com/nicklaros/stockengine/internal/infrastructure/database"
	"github.com/nicklaros/stockengine/internal/infrastructure/events"
	httpInfra "github.com/nicklaros/stockengine/internal/infrastructure/http"
	"github.com/nicklaros/stockengine/internal/infrastructure/metrics"
	infraRepos "github.com/nicklaros/stockengine/internal/infrastructure/repositories"
	"github.com/nicklaros/stockengine/internal/infrastructure/rpc"
	"github.com/nicklaros/stockengine/internal/infrastructure/tracing"
	"github.com/nicklaros/stockengine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	log.Info("starting inventory service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal("failed to initialize tracing: " + err.Error())
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown error: " + err.Error())
		}
	}()

	metrics.Init()

	if err := database.Migrate(cfg.Database); err != nil {
		log.Fatal("failed to apply migrations: " + err.Error())
	}

	db, err := database.NewPostgresDatabase(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	defer db.Close()

	itemRepo := infraRepos.NewPostgresInventoryItemRepository(db.DB())
	movementRepo := infraRepos.NewPostgresStockMovementRepository(db.DB())

	sink := buildEventSink(cfg.Event, log)
	engine := usecases.NewInventoryEngine(itemRepo, movementRepo, db, sink, log)

	cachePort := buildCache(cfg.Cache, log)
	query := usecases.NewInventoryQueryService(itemRepo, movementRepo, cachePort, cfg.Cache.TTL, log)
	engine.AttachCacheInvalidator(query)

	httpServer := httpInfra.NewServer(cfg, engine, query, db, log)

	rpcService := rpc.NewInventoryService(engine, query, log)
	rpcServer, err := rpc.NewServer(cfg.RPC.Port, cfg.RPC.MaxConcurrentStreams, rpcService, log)
	if err != nil {
		log.Fatal("failed to initialize rpc server: " + err.Error())
	}

	go func() {
		log.Info("http server listening on port " + cfg.Server.Port)
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed: " + err.Error())
		}
	}()

	go func() {
		if err := rpcServer.Start(); err != nil {
			log.Fatal("rpc server failed: " + err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown: " + err.Error())
	}
	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		log.Error("rpc server forced to shutdown: " + err.Error())
	}
	if closer, ok := sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn("event sink close error: " + err.Error())
		}
	}

	log.Info("inventory service exited")
}

func buildEventSink(cfg config.EventConfig, log logger.Logger) ports.EventSinkPort {
	if cfg.Sink == "kafka" {
		log.Info("using kafka event sink")
		return events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	log.Info("using logging event sink")
	return events.NewLoggingSink(log)
}

func buildCache(cfg config.CacheConfig, log logger.Logger) ports.CachePort {
	if !cfg.Enabled {
		log.Info("read-through cache disabled")
		return nil
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, continuing without cache: " + err.Error())
		return nil
	}
	log.Info("read-through cache enabled at " + cfg.RedisAddr)
	return redisCache
}
