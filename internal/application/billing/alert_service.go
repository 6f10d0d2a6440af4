package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AlertSink raises operator alerts. Satisfied by AlertService; the other
// services in this package take the interface so tests can observe raises.
type AlertSink interface {
	Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error
}

// AlertService owns the operator alert stream. Every component that detects a
// problem raises through here, so deduplication lives in exactly one place:
// an active alert with the same tenant, type, and day absorbs repeats instead
// of producing a second row.
type AlertService struct {
	alertRepo billing.AlertRepository
	logger    *zap.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(alertRepo billing.AlertRepository, logger *zap.Logger) *AlertService {
	return &AlertService{
		alertRepo: alertRepo,
		logger:    logger,
	}
}

// AlertDTO represents an alert in responses
type AlertDTO struct {
	ID         uuid.UUID         `json:"id"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	Type       string            `json:"type"`
	Severity   string            `json:"severity"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

func toAlertDTO(alert *billing.Alert) *AlertDTO {
	return &AlertDTO{
		ID:         alert.ID,
		TenantID:   alert.TenantID,
		Type:       string(alert.Type),
		Severity:   string(alert.Severity),
		Message:    alert.Message,
		Metadata:   alert.Metadata,
		Status:     string(alert.Status),
		CreatedAt:  alert.CreatedAt,
		UpdatedAt:  alert.UpdatedAt,
		ResolvedAt: alert.ResolvedAt,
	}
}

// Raise records an alert, deduplicating against the active alert carrying the
// same dedup key. A repeat refreshes the existing alert's metadata instead of
// inserting a new row.
func (s *AlertService) Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error {
	dedupKey := billing.DedupKeyFor(tenantID, alertType, time.Now())

	existing, err := s.alertRepo.FindActiveByDedupKey(ctx, dedupKey)
	if err == nil {
		return s.refresh(ctx, existing, metadata)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to look up alert for dedup",
			zap.String("dedup_key", dedupKey),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to look up alert")
	}

	alert, err := billing.NewAlert(tenantID, alertType, severity, message, metadata)
	if err != nil {
		return err
	}

	if err := s.alertRepo.Save(ctx, alert); err != nil {
		// A concurrent raise won the insert; fold this occurrence into it.
		if errors.Is(err, shared.ErrAlreadyExists) {
			winner, findErr := s.alertRepo.FindActiveByDedupKey(ctx, dedupKey)
			if findErr != nil {
				return shared.NewDomainError("INTERNAL_ERROR", "Failed to save alert")
			}
			return s.refresh(ctx, winner, metadata)
		}
		s.logger.Error("Failed to save alert",
			zap.String("tenant_id", tenantID.String()),
			zap.String("type", string(alertType)),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save alert")
	}

	s.logger.Info("Alert raised",
		zap.String("tenant_id", tenantID.String()),
		zap.String("type", string(alertType)),
		zap.String("severity", string(severity)))

	return nil
}

func (s *AlertService) refresh(ctx context.Context, alert *billing.Alert, metadata map[string]string) error {
	alert.RefreshMetadata(metadata)
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		s.logger.Error("Failed to refresh alert",
			zap.String("alert_id", alert.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to refresh alert")
	}
	return nil
}

// Acknowledge marks an alert as seen by an operator
func (s *AlertService) Acknowledge(ctx context.Context, alertID uuid.UUID) (*AlertDTO, error) {
	alert, err := s.load(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if err := alert.Acknowledge(); err != nil {
		return nil, err
	}
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save alert")
	}

	return toAlertDTO(alert), nil
}

// Resolve closes an alert
func (s *AlertService) Resolve(ctx context.Context, alertID uuid.UUID) (*AlertDTO, error) {
	alert, err := s.load(ctx, alertID)
	if err != nil {
		return nil, err
	}

	alert.Resolve()
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save alert")
	}

	return toAlertDTO(alert), nil
}

// ListActive lists a tenant's active alerts
func (s *AlertService) ListActive(ctx context.Context, tenantID uuid.UUID) ([]AlertDTO, error) {
	alerts, err := s.alertRepo.FindActiveByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Error("Failed to list alerts",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list alerts")
	}

	dtos := make([]AlertDTO, 0, len(alerts))
	for i := range alerts {
		dtos = append(dtos, *toAlertDTO(&alerts[i]))
	}
	return dtos, nil
}

func (s *AlertService) load(ctx context.Context, alertID uuid.UUID) (*billing.Alert, error) {
	alert, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ALERT_NOT_FOUND", "Alert not found")
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load alert")
	}
	return alert, nil
}
