package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Tenant context keys and headers
const (
	TenantIDKey = "tenant_id"
	// OperatorTenantHeader lets platform operators act on behalf of a tenant
	OperatorTenantHeader = "X-Operator-Tenant"
)

// TenantDirectory resolves tenants for incoming requests
type TenantDirectory interface {
	// ResolveDomain maps a request host or subdomain to a tenant ID
	ResolveDomain(ctx context.Context, domain string) (uuid.UUID, error)
	// SubscriptionActive reports whether the tenant may be served
	SubscriptionActive(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// TenantResolverConfig holds configuration for the tenant resolver middleware
type TenantResolverConfig struct {
	Directory TenantDirectory
	Logger    *zap.Logger
}

// TenantResolver resolves the tenant for each request and enforces isolation.
// Resolution order: the X-Operator-Tenant header (operator sessions only),
// then the session's tenant claim, then the request host.
func TenantResolver(cfg TenantResolverConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := resolveTenant(c, cfg)
		if !ok {
			return
		}

		if tenantID == uuid.Nil {
			// Operator session without a target tenant. Admin endpoints
			// work tenant-free; tenant-scoped handlers reject via MustGetTenantUUID.
			c.Next()
			return
		}

		// A tenant-bound session may only act on its own tenant.
		if claimed := GetJWTTenantID(c); claimed != "" && !IsPlatformOperator(c) {
			if claimed != tenantID.String() {
				abortTenant(c, http.StatusForbidden, "ISOLATION_VIOLATION",
					"Session tenant does not match the requested tenant")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithTenantID(ctx, log, tenantID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// resolveTenant determines the target tenant. The bool result is false when
// the request has already been aborted.
func resolveTenant(c *gin.Context, cfg TenantResolverConfig) (uuid.UUID, bool) {
	// Operators may explicitly target a tenant via header.
	if override := c.GetHeader(OperatorTenantHeader); override != "" {
		if !IsPlatformOperator(c) {
			abortTenant(c, http.StatusForbidden, "ISOLATION_VIOLATION",
				"Tenant override requires a platform operator session")
			return uuid.Nil, false
		}
		id, err := uuid.Parse(override)
		if err != nil {
			abortTenant(c, http.StatusBadRequest, "INVALID_TENANT_ID",
				"Tenant override header is not a valid UUID")
			return uuid.Nil, false
		}
		return id, true
	}

	// Tenant-bound sessions carry their tenant in the claims.
	if claimed := GetJWTTenantID(c); claimed != "" {
		id, err := uuid.Parse(claimed)
		if err != nil {
			abortTenant(c, http.StatusUnauthorized, "INVALID_TOKEN",
				"Session tenant claim is not a valid UUID")
			return uuid.Nil, false
		}
		return id, true
	}

	// Operator sessions without an override resolve to no tenant.
	if IsPlatformOperator(c) {
		return uuid.Nil, true
	}

	// Anonymous or host-scoped access resolves via the request host.
	if cfg.Directory != nil {
		id, err := cfg.Directory.ResolveDomain(c.Request.Context(), c.Request.Host)
		if err == nil {
			return id, true
		}
		if cfg.Logger != nil {
			cfg.Logger.Debug("host did not resolve to a tenant",
				zap.String("host", c.Request.Host),
				zap.Error(err))
		}
	}

	abortTenant(c, http.StatusUnauthorized, "UNAUTHORIZED",
		"Request could not be resolved to a tenant")
	return uuid.Nil, false
}

// RequirePlatformOperator restricts an endpoint to platform operator sessions
func RequirePlatformOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsPlatformOperator(c) {
			abortTenant(c, http.StatusForbidden, "FORBIDDEN",
				"Platform operator access required")
			return
		}
		c.Next()
	}
}

// SubscriptionGuardConfig holds configuration for the subscription guard
type SubscriptionGuardConfig struct {
	Directory TenantDirectory
	Logger    *zap.Logger
}

// SubscriptionGuard rejects requests for tenants whose subscription does not
// permit serving traffic. Lookup failures fail open so a billing outage does
// not take tenants down with it.
func SubscriptionGuard(cfg SubscriptionGuardConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := GetTenantUUID(c)
		if tenantID == uuid.Nil {
			c.Next()
			return
		}

		active, err := cfg.Directory.SubscriptionActive(c.Request.Context(), tenantID)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Error("subscription check failed, failing open",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
			}
			c.Next()
			return
		}

		if !active {
			abortTenant(c, http.StatusForbidden, "SUBSCRIPTION_INACTIVE",
				"Tenant subscription does not permit this request")
			return
		}

		c.Next()
	}
}

func abortTenant(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetTenantUUID retrieves the resolved tenant ID, or uuid.Nil if none
func GetTenantUUID(c *gin.Context) uuid.UUID {
	if tenantID, exists := c.Get(TenantIDKey); exists {
		if id, ok := tenantID.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// MustGetTenantUUID retrieves the resolved tenant ID, aborting with 401 if missing
func MustGetTenantUUID(c *gin.Context) (uuid.UUID, bool) {
	id := GetTenantUUID(c)
	if id == uuid.Nil {
		abortTenant(c, http.StatusUnauthorized, "UNAUTHORIZED",
			"Request is not scoped to a tenant")
		return uuid.Nil, false
	}
	return id, true
}
