package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytevault/server/internal/billing"
	"github.com/bytevault/server/internal/config"
	"github.com/bytevault/server/internal/gateway"
	"github.com/bytevault/server/internal/notifications"
	"github.com/bytevault/server/internal/scheduler"
	"github.com/bytevault/server/internal/sharing"
	"github.com/bytevault/server/internal/storage"
	"github.com/bytevault/server/pkg/cache"
	"github.com/bytevault/server/pkg/database"
	"github.com/bytevault/server/pkg/events"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting ByteVault server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to database")

	// Bootstrap schema
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	migrateCancel()
	logger.Info("database schema ready")

	// Initialize Redis cache
	redisCache, err := cache.NewCache(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()
	logger.Info("connected to Redis")

	// Initialize event bus
	eventBus := events.NewBus(logger)

	// Initialize notification service
	if cfg.Webhook.URL != "" {
		webhook := notifications.NewWebhookAdapter(cfg.Webhook.URL, cfg.Webhook.Secret, logger)
		notifications.NewService(webhook, logger).Register(eventBus)
		logger.Info("initialized webhook notifications", zap.String("url", cfg.Webhook.URL))
	}

	// Initialize domain services
	storageSvc := storage.NewService(storage.NewPostgresStore(db), eventBus, logger)
	sharingSvc := sharing.NewService(sharing.NewPostgresStore(db), storageSvc, eventBus, logger)

	// Initialize billing engine
	billingEngine := billing.NewEngine(
		billing.NewPostgresStores(db),
		redisCache,
		eventBus,
		logger,
		billing.RunConfig{
			Concurrency: cfg.Billing.Concurrency,
			UserTimeout: cfg.Billing.UserTimeout,
			MaxRetries:  cfg.Billing.MaxRetries,
		},
		cfg.Billing.RunLockTTL,
	)
	logger.Info("initialized billing engine")

	// Start the monthly billing schedule
	billingScheduler := scheduler.NewScheduler(billingEngine, logger)
	if err := billingScheduler.Start(cfg.Billing.CronSpec); err != nil {
		logger.Fatal("failed to start billing scheduler", zap.Error(err))
	}
	defer billingScheduler.Stop()

	// Initialize API gateway
	authenticator := gateway.NewAuthenticator(
		gateway.NewPostgresKeyStore(db),
		redisCache,
		cfg.Security.APIKeyCacheTTL,
		logger,
	)
	gw := gateway.NewGateway(gateway.Deps{
		DB:            db,
		Cache:         redisCache,
		Logger:        logger,
		Authenticator: authenticator,
		Storage:       storageSvc,
		Sharing:       sharingSvc,
		Engine:        billingEngine,
		AdminToken:    cfg.Security.AdminAPIToken,
	})
	logger.Info("initialized API gateway")

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      gw,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
