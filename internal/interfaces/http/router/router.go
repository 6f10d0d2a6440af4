package router

import (
	"github.com/gin-gonic/gin"
	"github.com/staffhub/backend/internal/infrastructure/auth"
	"github.com/staffhub/backend/internal/infrastructure/logger"
	"github.com/staffhub/backend/internal/interfaces/http/handler"
	"github.com/staffhub/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Config carries everything the router needs to wire the HTTP surface
type Config struct {
	Logger *zap.Logger

	JWTService *auth.JWTService
	Directory  middleware.TenantDirectory
	Usage      middleware.UsageRecorder

	CORS *middleware.CORSConfig

	SystemHandler  *handler.SystemHandler
	TenantHandler  *handler.TenantHandler
	BillingHandler *handler.BillingHandler
}

// New builds the gin engine with all middleware and routes registered
func New(cfg Config) *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(logger.Recovery(cfg.Logger))
	if cfg.CORS != nil {
		engine.Use(middleware.CORSWithConfig(*cfg.CORS))
	} else {
		engine.Use(middleware.CORS())
	}
	engine.Use(middleware.Secure())

	// Liveness endpoints sit outside the API group
	engine.GET("/health", cfg.SystemHandler.Health)
	engine.GET("/ping", cfg.SystemHandler.Ping)

	api := engine.Group("/api/v1")

	// Public surface: signup, provisioning-status polling, webhook ingestion.
	// Webhooks authenticate via provider signature, not JWT.
	api.POST("/tenants", cfg.TenantHandler.Register)
	api.GET("/tenants/:id/status", cfg.TenantHandler.GetStatus)
	api.POST("/billing/webhooks/:provider", cfg.BillingHandler.Webhook)

	authMW := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: cfg.JWTService,
		Logger:     cfg.Logger,
	})
	resolveMW := middleware.TenantResolver(middleware.TenantResolverConfig{
		Directory: cfg.Directory,
		Logger:    cfg.Logger,
	})

	// Tenant-scoped surface: requires a session, a resolved tenant, and a
	// subscription that permits serving. Every call counts against usage.
	tenantAPI := api.Group("")
	tenantAPI.Use(authMW, resolveMW)
	tenantAPI.Use(middleware.SubscriptionGuard(middleware.SubscriptionGuardConfig{
		Directory: cfg.Directory,
		Logger:    cfg.Logger,
	}))
	if cfg.Usage != nil {
		tenantAPI.Use(middleware.UsageCounter(cfg.Usage))
	}
	{
		tenantAPI.GET("/billing/usage", cfg.BillingHandler.GetUsage)
		tenantAPI.GET("/billing/alerts", cfg.BillingHandler.ListAlerts)
	}

	// Operator surface: platform operators only
	adminAPI := api.Group("/admin")
	adminAPI.Use(authMW, resolveMW, middleware.RequirePlatformOperator())
	{
		adminAPI.GET("/tenants", cfg.TenantHandler.List)
		adminAPI.GET("/tenants/stats", cfg.TenantHandler.Stats)
		adminAPI.GET("/tenants/:id", cfg.TenantHandler.Get)
		adminAPI.POST("/tenants/:id/suspend", cfg.TenantHandler.Suspend)
		adminAPI.POST("/tenants/:id/resume", cfg.TenantHandler.Resume)
		adminAPI.POST("/tenants/:id/cancel", cfg.TenantHandler.Cancel)
		adminAPI.DELETE("/tenants/:id", cfg.TenantHandler.Delete)

		adminAPI.GET("/billing/events", cfg.BillingHandler.ListEvents)
		adminAPI.POST("/billing/reconcile", cfg.BillingHandler.Reconcile)
		adminAPI.POST("/billing/alerts/:id/acknowledge", cfg.BillingHandler.AcknowledgeAlert)
		adminAPI.POST("/billing/alerts/:id/resolve", cfg.BillingHandler.ResolveAlert)
	}

	return engine
}
