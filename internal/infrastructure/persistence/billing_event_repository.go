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

// GormBillingEventRepository implements the durable webhook inbox using GORM.
// The (provider, external_event_id) unique index makes Save the dedup point:
// whichever instance inserts first wins, every replay gets ErrAlreadyExists.
type GormBillingEventRepository struct {
	db *gorm.DB
}

// NewGormBillingEventRepository creates a new GormBillingEventRepository
func NewGormBillingEventRepository(db *gorm.DB) *GormBillingEventRepository {
	return &GormBillingEventRepository{db: db}
}

// FindByID finds an inbox row by its ID
func (r *GormBillingEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingEvent, error) {
	var model models.BillingEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalID finds an inbox row by its provider dedup key
func (r *GormBillingEventRepository) FindByExternalID(ctx context.Context, provider, externalEventID string) (*billing.BillingEvent, error) {
	var model models.BillingEventModel
	if err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Where("external_event_id = ?", externalEventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnprocessed returns unprocessed rows oldest first, for retry
func (r *GormBillingEventRepository) FindUnprocessed(ctx context.Context, limit int) ([]billing.BillingEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var eventModels []models.BillingEventModel
	if err := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("received_at ASC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]billing.BillingEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}

	return events, nil
}

// List returns inbox rows matching the filter, newest first
func (r *GormBillingEventRepository) List(ctx context.Context, filter billing.BillingEventFilter) (shared.Paginated[billing.BillingEvent], error) {
	var empty shared.Paginated[billing.BillingEvent]

	query := r.db.WithContext(ctx).Model(&models.BillingEventModel{})
	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return empty, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var eventModels []models.BillingEventModel
	if err := query.
		Order("received_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&eventModels).Error; err != nil {
		return empty, err
	}

	events := make([]billing.BillingEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}

	return shared.NewPaginated(events, total, page, pageSize), nil
}

// Save creates or updates an inbox row. Creating a row whose
// (provider, external_event_id) already exists returns ErrAlreadyExists.
func (r *GormBillingEventRepository) Save(ctx context.Context, event *billing.BillingEvent) error {
	model := models.BillingEventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// applyFilter applies filter options to the query
func (r *GormBillingEventRepository) applyFilter(query *gorm.DB, filter billing.BillingEventFilter) *gorm.DB {
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.Since != nil {
		query = query.Where("received_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("received_at <= ?", *filter.Until)
	}
	return query
}

// Ensure GormBillingEventRepository implements BillingEventRepository
var _ billing.BillingEventRepository = (*GormBillingEventRepository)(nil)
