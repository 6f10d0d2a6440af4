package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AlertSink raises operator alerts. Implemented by the billing alert service;
// the indirection keeps lifecycle logic free of the billing application layer.
type AlertSink interface {
	Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error
}

// LifecycleService is the single choke point for tenant state transitions.
// Operator endpoints and billing reconciliation both go through it, so the
// state machine is enforced in exactly one place.
type LifecycleService struct {
	tenantRepo identity.TenantRepository
	alerts     AlertSink
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	tenantRepo identity.TenantRepository,
	alerts AlertSink,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		tenantRepo: tenantRepo,
		alerts:     alerts,
		publisher:  publisher,
		logger:     logger,
	}
}

// Suspend disables a tenant's access and raises a deduplicated suspension
// alert. Suspending an already-suspended tenant is a no-op success.
func (s *LifecycleService) Suspend(ctx context.Context, tenantID uuid.UUID, reason string, graceDays int) error {
	tenant, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}

	wasSuspended := tenant.IsSuspended()

	var graceEnd *time.Time
	if graceDays > 0 {
		t := time.Now().AddDate(0, 0, graceDays)
		graceEnd = &t
	}

	if err := tenant.Suspend(reason, graceEnd); err != nil {
		return err
	}
	if wasSuspended {
		return nil
	}

	if err := s.save(ctx, tenant); err != nil {
		return err
	}

	s.raise(ctx, tenantID, billing.AlertTypeSuspension, billing.AlertSeverityWarning,
		fmt.Sprintf("Tenant %s suspended: %s", tenant.Name, reason),
		map[string]string{"reason": reason})

	s.logger.Info("Tenant suspended",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reason", reason),
		zap.Int("grace_days", graceDays))

	return nil
}

// Resume reactivates a suspended tenant. Resuming an active tenant is a
// no-op success.
func (s *LifecycleService) Resume(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}

	if tenant.IsActive() {
		return nil
	}
	if err := tenant.Resume(); err != nil {
		return err
	}
	if err := s.save(ctx, tenant); err != nil {
		return err
	}

	s.logger.Info("Tenant resumed", zap.String("tenant_id", tenantID.String()))
	return nil
}

// Activate ensures the tenant is active and records its billing reference.
// Driven by the billing path on payment recovery.
func (s *LifecycleService) Activate(ctx context.Context, tenantID uuid.UUID, billingRef string) error {
	tenant, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}

	if err := tenant.Activate(billingRef); err != nil {
		return err
	}
	if err := s.save(ctx, tenant); err != nil {
		return err
	}

	s.logger.Info("Tenant activated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("billing_ref", billingRef))
	return nil
}

// Cancel transitions the tenant to canceled. Idempotent.
func (s *LifecycleService) Cancel(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}

	wasCanceled := tenant.Status == identity.TenantStatusCanceled
	if err := tenant.Cancel(); err != nil {
		return err
	}
	if wasCanceled {
		return nil
	}
	if err := s.save(ctx, tenant); err != nil {
		return err
	}

	s.logger.Info("Tenant canceled", zap.String("tenant_id", tenantID.String()))
	return nil
}

// Delete soft-deletes the tenant; history is retained. Idempotent.
func (s *LifecycleService) Delete(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}

	wasDeleted := tenant.IsDeleted()
	if err := tenant.MarkDeleted(); err != nil {
		return err
	}
	if wasDeleted {
		return nil
	}
	if err := s.save(ctx, tenant); err != nil {
		return err
	}

	s.logger.Info("Tenant deleted", zap.String("tenant_id", tenantID.String()))
	return nil
}

func (s *LifecycleService) load(ctx context.Context, tenantID uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to load tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load tenant")
	}
	return tenant, nil
}

func (s *LifecycleService) save(ctx context.Context, tenant *identity.Tenant) error {
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to save tenant",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save tenant")
	}

	if s.publisher != nil {
		if events := tenant.GetDomainEvents(); len(events) > 0 {
			if err := s.publisher.Publish(ctx, events...); err != nil {
				s.logger.Warn("Failed to publish tenant events",
					zap.String("tenant_id", tenant.ID.String()),
					zap.Error(err))
			}
			tenant.ClearDomainEvents()
		}
	}

	return nil
}

// raise reports an alert; alert failures never fail the lifecycle operation
func (s *LifecycleService) raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Raise(ctx, tenantID, alertType, severity, message, metadata); err != nil {
		s.logger.Warn("Failed to raise alert",
			zap.String("tenant_id", tenantID.String()),
			zap.String("alert_type", string(alertType)),
			zap.Error(err))
	}
}
