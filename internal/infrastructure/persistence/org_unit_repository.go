package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/staffhub/backend/internal/infrastructure/persistence/models"
	tenantscope "github.com/staffhub/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormOrgUnitRepository implements OrgUnitRepository using GORM
type GormOrgUnitRepository struct {
	db *gorm.DB
}

// NewGormOrgUnitRepository creates a new GormOrgUnitRepository
func NewGormOrgUnitRepository(db *gorm.DB) *GormOrgUnitRepository {
	return &GormOrgUnitRepository{db: db}
}

// FindByCode finds an org unit by code within a tenant
func (r *GormOrgUnitRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*identity.OrgUnit, error) {
	var model models.OrgUnitModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantscope.TenantScope(tenantID)).
		Where("code = ?", strings.ToUpper(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// CountForTenant counts org units belonging to a tenant
func (r *GormOrgUnitRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrgUnitModel{}).
		Scopes(tenantscope.TenantScope(tenantID)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an org unit
func (r *GormOrgUnitRepository) Save(ctx context.Context, unit *identity.OrgUnit) error {
	model := models.OrgUnitModelFromDomain(unit)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormOrgUnitRepository implements OrgUnitRepository
var _ identity.OrgUnitRepository = (*GormOrgUnitRepository)(nil)
