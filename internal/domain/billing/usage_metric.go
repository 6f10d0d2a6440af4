package billing

import (
	"time"

	"github.com/google/uuid"
)

// UsageMetric holds the per-tenant usage counters. Rows are mutated by
// increments only; accuracy is eventual, these are metrics rather than
// financial state.
type UsageMetric struct {
	TenantID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	APIRequestCount int64     `gorm:"not null;default:0"`
	EmployeeCount   int64     `gorm:"not null;default:0"`
	StorageBytes    int64     `gorm:"not null;default:0"`
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (UsageMetric) TableName() string {
	return "usage_metrics"
}

// NewUsageMetric creates a zeroed counter row for a tenant
func NewUsageMetric(tenantID uuid.UUID) *UsageMetric {
	return &UsageMetric{
		TenantID:  tenantID,
		UpdatedAt: time.Now(),
	}
}
