package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// OrgUnit represents an organizational unit within a tenant. The provisioning
// worker seeds a default set for every new tenant, keyed by the tenant ID so
// seeded rows always pass the isolation filter.
type OrgUnit struct {
	shared.TenantAggregateRoot
	Code     string `gorm:"type:varchar(50);not null"`
	Name     string `gorm:"type:varchar(200);not null"`
	ParentID *uuid.UUID
}

// TableName returns the table name for GORM
func (OrgUnit) TableName() string {
	return "org_units"
}

// NewOrgUnit creates an organizational unit scoped to a tenant
func NewOrgUnit(tenantID uuid.UUID, code, name string) (*OrgUnit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Org unit code must be 1-50 characters")
	}
	if strings.TrimSpace(name) == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Org unit name must be 1-200 characters")
	}

	return &OrgUnit{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
	}, nil
}

// SetParent sets the parent org unit
func (o *OrgUnit) SetParent(parentID uuid.UUID) {
	o.ParentID = &parentID
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// OrgUnitRepository defines the interface for org unit persistence
type OrgUnitRepository interface {
	// FindByCode finds an org unit by code within a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*OrgUnit, error)

	// CountForTenant counts org units belonging to a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Save creates or updates an org unit
	Save(ctx context.Context, unit *OrgUnit) error
}
