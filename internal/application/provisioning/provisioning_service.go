package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/staffhub/backend/internal/infrastructure/auth"
	infraBilling "github.com/staffhub/backend/internal/infrastructure/billing"
	"go.uber.org/zap"
)

// defaultOrgUnits are seeded for every new tenant
var defaultOrgUnits = []struct {
	code string
	name string
}{
	{"HQ", "Headquarters"},
	{"UNASSIGNED", "Unassigned"},
}

// BillingCustomerCreator creates the billing provider customer for a tenant.
// Implemented by the Stripe adapter.
type BillingCustomerCreator interface {
	CreateCustomer(ctx context.Context, input infraBilling.CreateCustomerInput) (*infraBilling.CreateCustomerOutput, error)
}

// AlertSink raises operator alerts for terminal provisioning failures
type AlertSink interface {
	Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error
}

// Config holds provisioning behavior bounds
type Config struct {
	MaxAttempts  int           // Retry bound before the tenant is marked failed
	RetryBackoff time.Duration // Base backoff, doubled each attempt
	StepTimeout  time.Duration // Deadline for one tenant's provisioning attempt
	BatchSize    int           // Tenants picked up per polling pass
}

// DefaultConfig returns default provisioning bounds
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		RetryBackoff: 30 * time.Second,
		StepTimeout:  30 * time.Second,
		BatchSize:    10,
	}
}

// ProvisioningService creates the resources a newly accepted tenant needs:
// the admin user with a one-time setup credential, the default org units,
// and the billing provider customer. Every step is idempotent and keyed by
// the tenant ID, so a crashed attempt can be repeated safely.
type ProvisioningService struct {
	tenantRepo  identity.TenantRepository
	userRepo    identity.UserRepository
	orgUnitRepo identity.OrgUnitRepository
	customers   BillingCustomerCreator
	alerts      AlertSink
	logger      *zap.Logger
	config      Config
}

// NewProvisioningService creates a new provisioning service
func NewProvisioningService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	orgUnitRepo identity.OrgUnitRepository,
	customers BillingCustomerCreator,
	alerts AlertSink,
	logger *zap.Logger,
	config Config,
) *ProvisioningService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if config.StepTimeout <= 0 {
		config.StepTimeout = DefaultConfig().StepTimeout
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &ProvisioningService{
		tenantRepo:  tenantRepo,
		userRepo:    userRepo,
		orgUnitRepo: orgUnitRepo,
		customers:   customers,
		alerts:      alerts,
		logger:      logger,
		config:      config,
	}
}

// ProcessPending provisions one batch of waiting tenants. It returns how many
// tenants it attempted.
func (s *ProvisioningService) ProcessPending(ctx context.Context) (int, error) {
	tenants, err := s.tenantRepo.FindPendingProvisioning(ctx, s.config.MaxAttempts, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find pending tenants: %w", err)
	}

	processed := 0
	for i := range tenants {
		tenant := &tenants[i]
		if !s.eligibleForAttempt(tenant) {
			continue
		}

		if err := s.provisionTenant(ctx, tenant); err != nil {
			s.recordFailure(ctx, tenant, err)
		}
		processed++

		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
	}

	return processed, nil
}

// eligibleForAttempt applies exponential backoff between retries. The first
// attempt is always eligible.
func (s *ProvisioningService) eligibleForAttempt(tenant *identity.Tenant) bool {
	if tenant.ProvisionAttempts == 0 {
		return true
	}
	backoff := s.config.RetryBackoff << (tenant.ProvisionAttempts - 1)
	return time.Since(tenant.UpdatedAt) >= backoff
}

// provisionTenant runs all provisioning steps for one tenant under the step
// deadline and marks it active on success.
func (s *ProvisioningService) provisionTenant(ctx context.Context, tenant *identity.Tenant) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StepTimeout)
	defer cancel()

	s.logger.Info("Provisioning tenant",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Int("attempt", tenant.ProvisionAttempts+1))

	if err := s.ensureAdminUser(ctx, tenant); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if err := s.seedOrgUnits(ctx, tenant); err != nil {
		return fmt.Errorf("seed org units: %w", err)
	}
	if err := s.ensureBillingCustomer(ctx, tenant); err != nil {
		return fmt.Errorf("ensure billing customer: %w", err)
	}

	if err := tenant.MarkProvisioned(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return fmt.Errorf("save tenant: %w", err)
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))

	return nil
}

// ensureAdminUser creates the tenant admin with a one-time setup credential.
// An existing admin for the same email means a previous attempt already got
// this far; nothing to do.
func (s *ProvisioningService) ensureAdminUser(ctx context.Context, tenant *identity.Tenant) error {
	_, err := s.userRepo.FindByEmail(ctx, tenant.ID, tenant.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	setupToken, err := auth.NewSetupToken()
	if err != nil {
		return err
	}

	admin, err := identity.NewAdminUser(tenant.ID, tenant.AdminEmail, tenant.AdminName, setupToken)
	if err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, admin); err != nil {
		// Another worker got there first; the admin exists, which is the goal.
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil
		}
		return err
	}

	// TODO: deliver the setup token through the notification channel once
	// outbound email is wired up.
	s.logger.Info("Admin user created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("email", tenant.AdminEmail))

	return nil
}

// seedOrgUnits creates the default org units, skipping tenants that already
// have any.
func (s *ProvisioningService) seedOrgUnits(ctx context.Context, tenant *identity.Tenant) error {
	count, err := s.orgUnitRepo.CountForTenant(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var rootID uuid.UUID
	for i, def := range defaultOrgUnits {
		unit, err := identity.NewOrgUnit(tenant.ID, def.code, def.name)
		if err != nil {
			return err
		}
		if i > 0 {
			unit.SetParent(rootID)
		}
		if err := s.orgUnitRepo.Save(ctx, unit); err != nil {
			return err
		}
		if i == 0 {
			rootID = unit.ID
		}
	}

	return nil
}

// ensureBillingCustomer creates the provider-side customer once
func (s *ProvisioningService) ensureBillingCustomer(ctx context.Context, tenant *identity.Tenant) error {
	if s.customers == nil || tenant.ExternalBillingRef != "" {
		return nil
	}

	out, err := s.customers.CreateCustomer(ctx, infraBilling.CreateCustomerInput{
		TenantID:    tenant.ID,
		Email:       tenant.AdminEmail,
		Name:        tenant.Name,
		Description: "StaffHub tenant " + tenant.Name,
	})
	if err != nil {
		return err
	}

	tenant.ExternalBillingRef = out.CustomerID
	return nil
}

// recordFailure bumps the attempt counter and, at the bound, moves the tenant
// to the terminal failed status.
func (s *ProvisioningService) recordFailure(ctx context.Context, tenant *identity.Tenant, cause error) {
	s.logger.Warn("Provisioning attempt failed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Int("attempt", tenant.ProvisionAttempts+1),
		zap.Error(cause))

	if err := tenant.RecordProvisioningFailure(cause.Error()); err != nil {
		s.logger.Error("Failed to record provisioning failure",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
		return
	}

	if tenant.ProvisionAttempts >= s.config.MaxAttempts {
		if err := tenant.MarkProvisioningFailed(cause.Error()); err != nil {
			s.logger.Error("Failed to mark tenant as failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
		} else {
			s.logger.Error("Tenant provisioning failed terminally",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Int("attempts", tenant.ProvisionAttempts))
			s.raiseFailureAlert(ctx, tenant, cause)
		}
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to persist provisioning failure",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
	}
}

func (s *ProvisioningService) raiseFailureAlert(ctx context.Context, tenant *identity.Tenant, cause error) {
	if s.alerts == nil {
		return
	}
	err := s.alerts.Raise(ctx, tenant.ID, billing.AlertTypeError, billing.AlertSeverityCritical,
		fmt.Sprintf("Provisioning failed for tenant %s after %d attempts", tenant.Name, tenant.ProvisionAttempts),
		map[string]string{"cause": cause.Error()})
	if err != nil {
		s.logger.Warn("Failed to raise provisioning alert",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
	}
}
