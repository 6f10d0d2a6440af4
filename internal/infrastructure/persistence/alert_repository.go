package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/staffhub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAlertRepository implements AlertRepository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by its ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByDedupKey finds an active alert carrying the dedup key. The
// dedup path refreshes this row instead of inserting a duplicate.
func (r *GormAlertRepository) FindActiveByDedupKey(ctx context.Context, dedupKey string) (*billing.Alert, error) {
	var model models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("dedup_key = ?", dedupKey).
		Where("status = ?", billing.AlertStatusActive).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByTenant lists a tenant's active alerts, newest first
func (r *GormAlertRepository) FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]billing.Alert, error) {
	var alertModels []models.AlertModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", billing.AlertStatusActive).
		Order("created_at DESC").
		Find(&alertModels).Error; err != nil {
		return nil, err
	}

	alerts := make([]billing.Alert, len(alertModels))
	for i, model := range alertModels {
		alerts[i] = *model.ToDomain()
	}

	return alerts, nil
}

// Save creates or updates an alert
func (r *GormAlertRepository) Save(ctx context.Context, alert *billing.Alert) error {
	model := models.AlertModelFromDomain(alert)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormAlertRepository implements AlertRepository
var _ billing.AlertRepository = (*GormAlertRepository)(nil)
