// Package tenant provides the GORM scope that confines queries on
// tenant-owned tables to a single tenant.
//
// Repositories for tenant-owned tables apply it to every lookup:
//
//	db.Scopes(tenant.TenantScope(tenantID)).Find(&orgUnits)
package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantScope filters a query to rows owned by one tenant
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}
