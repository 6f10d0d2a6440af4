package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockTenantRepository is a mock implementation of identity.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByIdempotencyToken(ctx context.Context, token string) (*identity.Tenant, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByStatus(ctx context.Context, status identity.TenantStatus, filter shared.Filter) ([]identity.Tenant, error) {
	args := m.Called(ctx, status, filter)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindPendingProvisioning(ctx context.Context, maxAttempts, limit int) ([]identity.Tenant, error) {
	args := m.Called(ctx, maxAttempts, limit)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) CountByStatus(ctx context.Context, status identity.TenantStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	args := m.Called(ctx, domain)
	return args.Bool(0), args.Error(1)
}

// MockAlertSink is a mock implementation of AlertSink
type MockAlertSink struct {
	mock.Mock
}

func (m *MockAlertSink) Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error {
	args := m.Called(ctx, tenantID, alertType, severity, message, metadata)
	return args.Error(0)
}

// newActiveTenant builds an active tenant for transition tests
func newActiveTenant(name string) *identity.Tenant {
	tenant, err := identity.NewTenant(name, "", "admin@"+name+".test", "Admin", nil)
	if err != nil {
		panic(err)
	}
	if err := tenant.MarkProvisioned(); err != nil {
		panic(err)
	}
	return tenant
}

// suspendedAt returns a pointer to a grace deadline n days out
func graceDeadline(days int) *time.Time {
	t := time.Now().AddDate(0, 0, days)
	return &t
}
