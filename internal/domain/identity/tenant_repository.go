package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByDomain finds a tenant by its routing domain
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)

	// FindByIdempotencyToken finds a tenant by its creation idempotency token
	FindByIdempotencyToken(ctx context.Context, token string) (*Tenant, error)

	// FindAll finds all tenants matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)

	// FindByStatus finds tenants by status
	FindByStatus(ctx context.Context, status TenantStatus, filter shared.Filter) ([]Tenant, error)

	// FindPendingProvisioning finds tenants awaiting provisioning with fewer
	// than maxAttempts recorded attempts, oldest first
	FindPendingProvisioning(ctx context.Context, maxAttempts, limit int) ([]Tenant, error)

	// Save creates or updates a tenant
	Save(ctx context.Context, tenant *Tenant) error

	// Count counts tenants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts tenants by status
	CountByStatus(ctx context.Context, status TenantStatus) (int64, error)

	// ExistsByDomain checks if a tenant with the given domain exists
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}
