package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/staffhub/backend/internal/application/billing"
	appidentity "github.com/staffhub/backend/internal/application/identity"
	appprovisioning "github.com/staffhub/backend/internal/application/provisioning"
	"github.com/staffhub/backend/internal/infrastructure/auth"
	infrabilling "github.com/staffhub/backend/internal/infrastructure/billing"
	"github.com/staffhub/backend/internal/infrastructure/cache"
	"github.com/staffhub/backend/internal/infrastructure/config"
	"github.com/staffhub/backend/internal/infrastructure/event"
	"github.com/staffhub/backend/internal/infrastructure/logger"
	"github.com/staffhub/backend/internal/infrastructure/persistence"
	"github.com/staffhub/backend/internal/infrastructure/scheduler"
	"github.com/staffhub/backend/internal/interfaces/http/handler"
	"github.com/staffhub/backend/internal/interfaces/http/middleware"
	"github.com/staffhub/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	orgUnitRepo := persistence.NewGormOrgUnitRepository(db.DB)
	eventRepo := persistence.NewGormBillingEventRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	usageRepo := persistence.NewGormUsageMetricRepository(db.DB)

	// Event bus for domain events raised by lifecycle transitions
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eventBus.Stop(stopCtx)
	}()

	// Redis-backed idempotency fast path; falls back to in-memory when Redis
	// is unreachable (the inbox unique index still catches duplicates)
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Stripe adapter is optional in development; without credentials the
	// provisioning flow skips customer creation and the sweep skips the
	// provider comparison
	var stripeAdapter *infrabilling.StripeAdapter
	if cfg.Billing.StripeAPIKey != "" {
		stripeAdapter, err = infrabilling.NewStripeAdapter(&infrabilling.StripeConfig{
			SecretKey:       cfg.Billing.StripeAPIKey,
			WebhookSecret:   cfg.Billing.StripeWebhookSecret,
			IsTestMode:      cfg.App.Env != "production",
			DefaultCurrency: "usd",
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
		}
	} else {
		log.Warn("No Stripe API key configured, provider calls are disabled")
	}

	// Initialize application services
	alertService := appbilling.NewAlertService(alertRepo, log)
	tenantService := appidentity.NewTenantService(tenantRepo, eventBus, log)
	lifecycleService := appidentity.NewLifecycleService(tenantRepo, alertService, eventBus, log)
	usageService := appbilling.NewUsageService(usageRepo, alertService, appbilling.UsageThresholds{
		APIRequests:  cfg.Usage.APIRequestThreshold,
		Employees:    cfg.Usage.EmployeeThreshold,
		StorageBytes: cfg.Usage.StorageThreshold,
	}, log)

	verifiers := infrabilling.NewVerifierRegistry(
		infrabilling.NewStripeWebhookVerifier(cfg.Billing.StripeWebhookSecret),
	)
	webhookService := appbilling.NewWebhookService(appbilling.WebhookServiceConfig{
		Verifiers:        verifiers,
		EventRepo:        eventRepo,
		SubscriptionRepo: subscriptionRepo,
		Lifecycle:        lifecycleService,
		Alerts:           alertService,
		Idempotency:      idempotencyStore,
		Logger:           log,
		Config: appbilling.WebhookConfig{
			GracePeriodDays: cfg.Billing.GracePeriodDays,
			IdempotencyTTL:  cfg.Billing.IdempotencyTTL,
		},
	})

	var fetcher appbilling.SubscriptionFetcher
	if stripeAdapter != nil {
		fetcher = stripeAdapter
	}
	reconciliationService := appbilling.NewReconciliationService(
		eventRepo,
		subscriptionRepo,
		fetcher,
		webhookService,
		lifecycleService,
		alertService,
		log,
		appbilling.ReconciliationConfig{
			StaleWindow:     cfg.Billing.StaleWindow,
			BatchSize:       cfg.Billing.SweepBatchSize,
			GracePeriodDays: cfg.Billing.GracePeriodDays,
		},
	)

	var customers appprovisioning.BillingCustomerCreator
	if stripeAdapter != nil {
		customers = stripeAdapter
	}
	provisioningService := appprovisioning.NewProvisioningService(
		tenantRepo,
		userRepo,
		orgUnitRepo,
		customers,
		alertService,
		log,
		appprovisioning.Config{
			MaxAttempts:  cfg.Provisioning.MaxAttempts,
			RetryBackoff: cfg.Provisioning.RetryBackoff,
			StepTimeout:  cfg.Provisioning.StepTimeout,
			BatchSize:    cfg.Provisioning.BatchSize,
		},
	)

	// Background workers
	provisioningWorker := scheduler.NewProvisioningWorker(provisioningService, log, scheduler.ProvisioningWorkerConfig{
		Enabled:      true,
		PollInterval: cfg.Provisioning.PollInterval,
		RunTimeout:   2 * time.Minute,
	})
	if err := provisioningWorker.Start(context.Background()); err != nil {
		log.Fatal("Failed to start provisioning worker", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provisioningWorker.Stop(stopCtx); err != nil {
			log.Error("Failed to stop provisioning worker", zap.Error(err))
		}
	}()

	reconciliationScheduler := scheduler.NewReconciliationScheduler(reconciliationService, log, scheduler.ReconciliationSchedulerConfig{
		Enabled:      cfg.Billing.ReconcileEnabled,
		Interval:     cfg.Billing.ReconcileInterval,
		SweepTimeout: 10 * time.Minute,
	})
	if err := reconciliationScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := reconciliationScheduler.Stop(stopCtx); err != nil {
			log.Error("Failed to stop reconciliation scheduler", zap.Error(err))
		}
	}()

	// Initialize HTTP layer
	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine := router.New(router.Config{
		Logger:         log,
		JWTService:     jwtService,
		Directory:      tenantService,
		Usage:          usageService,
		CORS:           &corsConfig,
		SystemHandler:  handler.NewSystemHandler(db.DB),
		TenantHandler:  handler.NewTenantHandler(tenantService, lifecycleService),
		BillingHandler: handler.NewBillingHandler(webhookService, reconciliationService, alertService, usageService),
	})

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
