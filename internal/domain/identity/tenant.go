package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle status of a tenant
type TenantStatus string

const (
	TenantStatusProvisioning TenantStatus = "provisioning" // Accepted, resources not yet created
	TenantStatusActive       TenantStatus = "active"
	TenantStatusSuspended    TenantStatus = "suspended" // Suspended due to payment/violation issues
	TenantStatusCanceled     TenantStatus = "canceled"
	TenantStatusDeleted      TenantStatus = "deleted"
	TenantStatusFailed       TenantStatus = "failed" // Provisioning failed terminally
)

// Tenant represents a customer account in the multi-tenant system.
// It is the aggregate root for tenant lifecycle operations and the
// source of truth for the isolation key used by all scoped queries.
type Tenant struct {
	shared.BaseAggregateRoot
	Name               string       `gorm:"type:varchar(200);not null"`
	Domain             string       `gorm:"type:varchar(200);uniqueIndex"` // Routing subdomain, optional
	Status             TenantStatus `gorm:"type:varchar(20);not null;default:'provisioning'"`
	AdminEmail         string       `gorm:"type:varchar(200);not null"`
	AdminName          string       `gorm:"type:varchar(100)"`
	IdempotencyToken   *string      `gorm:"type:varchar(100);uniqueIndex"` // Client creation token, nullable
	ProvisionedAt      *time.Time
	FailureReason      *string `gorm:"type:text"`
	ProvisionAttempts  int     `gorm:"not null;default:0"`
	SubscriptionActive bool    `gorm:"not null;default:false"`
	SuspensionReason   *string `gorm:"type:text"`
	GracePeriodEndsAt  *time.Time
	ExternalBillingRef string     `gorm:"type:varchar(200)"` // Billing provider customer reference
	DeletedAt          *time.Time `gorm:"index"`             // Soft delete, history retained
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a tenant in Provisioning status. The idempotency token,
// when supplied, makes creation replay-safe at the service layer.
func NewTenant(name, domain, adminEmail, adminName string, idempotencyToken *string) (*Tenant, error) {
	if err := validateTenantName(name); err != nil {
		return nil, err
	}
	if err := validateAdminEmail(adminEmail); err != nil {
		return nil, err
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if err := validateTenantDomain(domain); err != nil {
		return nil, err
	}
	if idempotencyToken != nil && (*idempotencyToken == "" || len(*idempotencyToken) > 100) {
		return nil, shared.NewDomainError("INVALID_IDEMPOTENCY_TOKEN", "Idempotency token must be 1-100 characters")
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Domain:            domain,
		Status:            TenantStatusProvisioning,
		AdminEmail:        strings.ToLower(strings.TrimSpace(adminEmail)),
		AdminName:         adminName,
		IdempotencyToken:  idempotencyToken,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// MarkProvisioned transitions the tenant from Provisioning to Active once
// the provisioning worker has created all dependent resources.
func (t *Tenant) MarkProvisioned() error {
	if t.Status != TenantStatusProvisioning {
		return shared.ErrInvalidState
	}

	now := time.Now()
	t.changeStatus(TenantStatusActive)
	t.ProvisionedAt = &now
	t.FailureReason = nil
	t.SubscriptionActive = true

	return nil
}

// RecordProvisioningFailure records a failed provisioning attempt. The tenant
// remains in Provisioning and is eligible for retry until the attempt bound.
func (t *Tenant) RecordProvisioningFailure(reason string) error {
	if t.Status != TenantStatusProvisioning {
		return shared.ErrInvalidState
	}

	t.ProvisionAttempts++
	t.FailureReason = &reason
	t.touch()

	return nil
}

// MarkProvisioningFailed transitions the tenant to the terminal Failed status
// after the retry bound is exhausted. Reachable only from Provisioning.
func (t *Tenant) MarkProvisioningFailed(reason string) error {
	if t.Status != TenantStatusProvisioning {
		return shared.ErrInvalidState
	}

	t.changeStatus(TenantStatusFailed)
	t.FailureReason = &reason

	return nil
}

// Suspend disables the tenant's access, recording a reason and an optional
// grace period. Suspending an already-suspended tenant is a no-op.
func (t *Tenant) Suspend(reason string, gracePeriodEndsAt *time.Time) error {
	if t.Status == TenantStatusSuspended {
		return nil
	}
	if t.Status != TenantStatusActive {
		return shared.ErrInvalidState
	}

	t.changeStatus(TenantStatusSuspended)
	t.SuspensionReason = &reason
	t.GracePeriodEndsAt = gracePeriodEndsAt
	t.SubscriptionActive = false

	t.AddDomainEvent(NewTenantSuspendedEvent(t, reason))

	return nil
}

// Resume reactivates a suspended tenant. Resuming an active tenant is a no-op.
func (t *Tenant) Resume() error {
	if t.Status == TenantStatusActive {
		return nil
	}
	if t.Status != TenantStatusSuspended {
		return shared.ErrInvalidState
	}

	t.changeStatus(TenantStatusActive)
	t.SuspensionReason = nil
	t.GracePeriodEndsAt = nil
	t.SubscriptionActive = true

	return nil
}

// Activate records the external billing reference and ensures the tenant is
// active. Driven by the billing reconciliation path on payment recovery.
func (t *Tenant) Activate(externalBillingRef string) error {
	switch t.Status {
	case TenantStatusActive:
		// Already active, just refresh the billing reference.
	case TenantStatusSuspended:
		if err := t.Resume(); err != nil {
			return err
		}
	default:
		return shared.ErrInvalidState
	}

	if externalBillingRef != "" {
		t.ExternalBillingRef = externalBillingRef
	}
	t.touch()

	return nil
}

// Cancel transitions the tenant to Canceled. Reachable from Active and
// Suspended; canceling a canceled tenant is a no-op.
func (t *Tenant) Cancel() error {
	if t.Status == TenantStatusCanceled {
		return nil
	}
	if t.Status != TenantStatusActive && t.Status != TenantStatusSuspended {
		return shared.ErrInvalidState
	}

	t.changeStatus(TenantStatusCanceled)
	t.SubscriptionActive = false

	return nil
}

// MarkDeleted soft-deletes the tenant. Reachable from any non-deleted status;
// Deleted is terminal. Deleting a deleted tenant is a no-op.
func (t *Tenant) MarkDeleted() error {
	if t.Status == TenantStatusDeleted {
		return nil
	}

	now := time.Now()
	t.changeStatus(TenantStatusDeleted)
	t.DeletedAt = &now
	t.SubscriptionActive = false

	t.AddDomainEvent(NewTenantDeletedEvent(t))

	return nil
}

func (t *Tenant) changeStatus(newStatus TenantStatus) {
	oldStatus := t.Status
	t.Status = newStatus
	t.touch()
	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, newStatus))
}

func (t *Tenant) touch() {
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsProvisioning returns true if the tenant has not finished provisioning
func (t *Tenant) IsProvisioning() bool {
	return t.Status == TenantStatusProvisioning
}

// IsDeleted returns true if the tenant has been soft-deleted
func (t *Tenant) IsDeleted() bool {
	return t.Status == TenantStatusDeleted
}

// CanServeRequests returns true if tenant-scoped endpoints should serve
// requests for this tenant.
func (t *Tenant) CanServeRequests() bool {
	return t.Status == TenantStatusActive && t.SubscriptionActive
}

// GraceExpired returns true if a suspension grace period has lapsed.
func (t *Tenant) GraceExpired() bool {
	if t.Status != TenantStatusSuspended || t.GracePeriodEndsAt == nil {
		return false
	}
	return time.Now().After(*t.GracePeriodEndsAt)
}

// GetTenantID returns the tenant ID
func (t *Tenant) GetTenantID() uuid.UUID {
	return t.ID
}

// Validation functions

func validateTenantName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

func validateAdminEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewDomainError("INVALID_ADMIN_EMAIL", "Admin email cannot be empty")
	}
	if len(email) > 200 || !strings.Contains(email, "@") {
		return shared.NewDomainError("INVALID_ADMIN_EMAIL", "Admin email is not a valid address")
	}
	return nil
}

func validateTenantDomain(domain string) error {
	if domain == "" {
		return nil
	}
	if len(domain) > 200 {
		return shared.NewDomainError("INVALID_DOMAIN", "Domain cannot exceed 200 characters")
	}
	for _, r := range domain {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '.') {
			return shared.NewDomainError("INVALID_DOMAIN", "Domain can only contain lowercase letters, numbers, hyphens, and dots")
		}
	}
	return nil
}
