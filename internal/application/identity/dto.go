package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
)

// TenantDTO represents tenant data transfer object
type TenantDTO struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Domain             string     `json:"domain,omitempty"`
	Status             string     `json:"status"`
	AdminEmail         string     `json:"admin_email"`
	AdminName          string     `json:"admin_name,omitempty"`
	ProvisionedAt      *time.Time `json:"provisioned_at,omitempty"`
	FailureReason      *string    `json:"failure_reason,omitempty"`
	ProvisionAttempts  int        `json:"provision_attempts"`
	SubscriptionActive bool       `json:"subscription_active"`
	SuspensionReason   *string    `json:"suspension_reason,omitempty"`
	GracePeriodEndsAt  *time.Time `json:"grace_period_ends_at,omitempty"`
	ExternalBillingRef string     `json:"external_billing_ref,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TenantStatusDTO is the public provisioning-status view. It exposes only
// what an unauthenticated poller may see.
type TenantStatusDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	ProvisionedAt *time.Time `json:"provisioned_at,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TenantFilter represents filter for querying tenants
type TenantFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts TenantFilter to shared.Filter
func (f TenantFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
	}
}

// TenantListResult represents paginated tenant list result
type TenantListResult struct {
	Tenants    []TenantDTO `json:"tenants"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// TenantStatsDTO summarizes tenant counts per lifecycle status
type TenantStatsDTO struct {
	Total        int64 `json:"total"`
	Provisioning int64 `json:"provisioning"`
	Active       int64 `json:"active"`
	Suspended    int64 `json:"suspended"`
	Canceled     int64 `json:"canceled"`
	Failed       int64 `json:"failed"`
}

func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:                 tenant.ID,
		Name:               tenant.Name,
		Domain:             tenant.Domain,
		Status:             string(tenant.Status),
		AdminEmail:         tenant.AdminEmail,
		AdminName:          tenant.AdminName,
		ProvisionedAt:      tenant.ProvisionedAt,
		FailureReason:      tenant.FailureReason,
		ProvisionAttempts:  tenant.ProvisionAttempts,
		SubscriptionActive: tenant.SubscriptionActive,
		SuspensionReason:   tenant.SuspensionReason,
		GracePeriodEndsAt:  tenant.GracePeriodEndsAt,
		ExternalBillingRef: tenant.ExternalBillingRef,
		CreatedAt:          tenant.CreatedAt,
		UpdatedAt:          tenant.UpdatedAt,
	}
}

func toTenantStatusDTO(tenant *identity.Tenant) *TenantStatusDTO {
	return &TenantStatusDTO{
		ID:            tenant.ID,
		Name:          tenant.Name,
		Status:        string(tenant.Status),
		ProvisionedAt: tenant.ProvisionedAt,
		FailureReason: tenant.FailureReason,
		CreatedAt:     tenant.CreatedAt,
	}
}
