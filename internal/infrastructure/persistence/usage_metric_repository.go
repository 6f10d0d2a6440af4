package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUsageMetricRepository implements UsageMetricRepository using GORM.
// Increments are single atomic UPDATE statements so concurrent request paths
// never lose counts; the row is upserted lazily on first increment.
type GormUsageMetricRepository struct {
	db *gorm.DB
}

// NewGormUsageMetricRepository creates a new GormUsageMetricRepository
func NewGormUsageMetricRepository(db *gorm.DB) *GormUsageMetricRepository {
	return &GormUsageMetricRepository{db: db}
}

// FindByTenant returns the tenant's counters, zeroed if absent
func (r *GormUsageMetricRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.UsageMetric, error) {
	var model models.UsageMetricModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return billing.NewUsageMetric(tenantID), nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// IncrementAPIRequests adds delta to the API request counter
func (r *GormUsageMetricRepository) IncrementAPIRequests(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	return r.increment(ctx, tenantID, "api_request_count", delta)
}

// IncrementEmployees adds delta to the employee counter
func (r *GormUsageMetricRepository) IncrementEmployees(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	return r.increment(ctx, tenantID, "employee_count", delta)
}

// AddStorageBytes adds delta to the storage counter
func (r *GormUsageMetricRepository) AddStorageBytes(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	return r.increment(ctx, tenantID, "storage_bytes", delta)
}

// increment upserts the counter row and bumps one column atomically
func (r *GormUsageMetricRepository) increment(ctx context.Context, tenantID uuid.UUID, column string, delta int64) error {
	now := time.Now()

	row := map[string]interface{}{
		"tenant_id":         tenantID,
		"api_request_count": int64(0),
		"employee_count":    int64(0),
		"storage_bytes":     int64(0),
		"updated_at":        now,
	}
	row[column] = delta

	return r.db.WithContext(ctx).
		Model(&models.UsageMetricModel{}).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				column:       gorm.Expr(column+" + ?", delta),
				"updated_at": now,
			}),
		}).
		Create(row).Error
}

// Ensure GormUsageMetricRepository implements UsageMetricRepository
var _ billing.UsageMetricRepository = (*GormUsageMetricRepository)(nil)
