package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UsageThresholds are the per-tenant soft limits. Crossing one raises an
// overage alert; nothing is blocked.
type UsageThresholds struct {
	APIRequests  int64
	Employees    int64
	StorageBytes int64
}

// DefaultUsageThresholds returns the default soft limits
func DefaultUsageThresholds() UsageThresholds {
	return UsageThresholds{
		APIRequests:  100000,
		Employees:    500,
		StorageBytes: 10 << 30,
	}
}

// UsageService maintains the per-tenant usage counters. Recording is
// best-effort: a failed increment is logged and dropped rather than failing
// the request that triggered it.
type UsageService struct {
	usageRepo  billing.UsageMetricRepository
	alerts     AlertSink
	thresholds UsageThresholds
	logger     *zap.Logger
}

// NewUsageService creates a new usage service
func NewUsageService(usageRepo billing.UsageMetricRepository, alerts AlertSink, thresholds UsageThresholds, logger *zap.Logger) *UsageService {
	return &UsageService{
		usageRepo:  usageRepo,
		alerts:     alerts,
		thresholds: thresholds,
		logger:     logger,
	}
}

// UsageDTO represents a tenant's usage counters in responses
type UsageDTO struct {
	TenantID        uuid.UUID `json:"tenant_id"`
	APIRequestCount int64     `json:"api_request_count"`
	EmployeeCount   int64     `json:"employee_count"`
	StorageBytes    int64     `json:"storage_bytes"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RecordAPIRequest bumps the API request counter by one
func (s *UsageService) RecordAPIRequest(ctx context.Context, tenantID uuid.UUID) {
	if err := s.usageRepo.IncrementAPIRequests(ctx, tenantID, 1); err != nil {
		s.logger.Warn("Failed to record API request",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}
	s.checkThresholds(ctx, tenantID)
}

// AddEmployees adjusts the employee counter. Delta may be negative.
func (s *UsageService) AddEmployees(ctx context.Context, tenantID uuid.UUID, delta int64) {
	if err := s.usageRepo.IncrementEmployees(ctx, tenantID, delta); err != nil {
		s.logger.Warn("Failed to record employee count change",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("delta", delta),
			zap.Error(err))
		return
	}
	if delta > 0 {
		s.checkThresholds(ctx, tenantID)
	}
}

// AddStorage adjusts the storage counter. Delta may be negative.
func (s *UsageService) AddStorage(ctx context.Context, tenantID uuid.UUID, delta int64) {
	if err := s.usageRepo.AddStorageBytes(ctx, tenantID, delta); err != nil {
		s.logger.Warn("Failed to record storage change",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("delta", delta),
			zap.Error(err))
		return
	}
	if delta > 0 {
		s.checkThresholds(ctx, tenantID)
	}
}

// GetUsage returns a tenant's counters, zeroed when nothing was recorded yet
func (s *UsageService) GetUsage(ctx context.Context, tenantID uuid.UUID) (*UsageDTO, error) {
	metric, err := s.usageRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to load usage metrics",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load usage metrics")
	}

	return &UsageDTO{
		TenantID:        metric.TenantID,
		APIRequestCount: metric.APIRequestCount,
		EmployeeCount:   metric.EmployeeCount,
		StorageBytes:    metric.StorageBytes,
		UpdatedAt:       metric.UpdatedAt,
	}, nil
}

// checkThresholds raises an overage alert for every counter at or past its
// soft limit. The alert dedup key absorbs the repeats that follow once a
// counter stays over.
func (s *UsageService) checkThresholds(ctx context.Context, tenantID uuid.UUID) {
	if s.alerts == nil {
		return
	}

	metric, err := s.usageRepo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Warn("Failed to load usage metrics for threshold check",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return
	}

	s.checkOne(ctx, tenantID, "api_requests", metric.APIRequestCount, s.thresholds.APIRequests)
	s.checkOne(ctx, tenantID, "employees", metric.EmployeeCount, s.thresholds.Employees)
	s.checkOne(ctx, tenantID, "storage_bytes", metric.StorageBytes, s.thresholds.StorageBytes)
}

func (s *UsageService) checkOne(ctx context.Context, tenantID uuid.UUID, metricName string, value, threshold int64) {
	if threshold <= 0 || value < threshold {
		return
	}

	err := s.alerts.Raise(ctx, tenantID, billing.AlertTypeOverage, billing.AlertSeverityWarning,
		fmt.Sprintf("Usage threshold exceeded: %s at %d (limit %d)", metricName, value, threshold),
		map[string]string{
			"metric":    metricName,
			"value":     strconv.FormatInt(value, 10),
			"threshold": strconv.FormatInt(threshold, 10),
		})
	if err != nil {
		s.logger.Warn("Failed to raise overage alert",
			zap.String("tenant_id", tenantID.String()),
			zap.String("metric", metricName),
			zap.Error(err))
	}
}
