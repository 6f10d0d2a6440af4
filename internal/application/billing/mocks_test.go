package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
	infraBilling "github.com/staffhub/backend/internal/infrastructure/billing"
	"github.com/stretchr/testify/mock"
)

// MockAlertRepository is a mock implementation of billing.AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindActiveByDedupKey(ctx context.Context, dedupKey string) (*billing.Alert, error) {
	args := m.Called(ctx, dedupKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Alert), args.Error(1)
}

func (m *MockAlertRepository) FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]billing.Alert, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]billing.Alert), args.Error(1)
}

func (m *MockAlertRepository) Save(ctx context.Context, alert *billing.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of billing.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*billing.Subscription, error) {
	args := m.Called(ctx, stripeCustomerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindStale(ctx context.Context, cutoff time.Time, limit int) ([]billing.Subscription, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, subscription *billing.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

// MockBillingEventRepository is a mock implementation of billing.BillingEventRepository
type MockBillingEventRepository struct {
	mock.Mock
}

func (m *MockBillingEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingEvent), args.Error(1)
}

func (m *MockBillingEventRepository) FindByExternalID(ctx context.Context, provider, externalEventID string) (*billing.BillingEvent, error) {
	args := m.Called(ctx, provider, externalEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingEvent), args.Error(1)
}

func (m *MockBillingEventRepository) FindUnprocessed(ctx context.Context, limit int) ([]billing.BillingEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]billing.BillingEvent), args.Error(1)
}

func (m *MockBillingEventRepository) List(ctx context.Context, filter billing.BillingEventFilter) (shared.Paginated[billing.BillingEvent], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[billing.BillingEvent]), args.Error(1)
}

func (m *MockBillingEventRepository) Save(ctx context.Context, event *billing.BillingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockUsageMetricRepository is a mock implementation of billing.UsageMetricRepository
type MockUsageMetricRepository struct {
	mock.Mock
}

func (m *MockUsageMetricRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.UsageMetric, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageMetric), args.Error(1)
}

func (m *MockUsageMetricRepository) IncrementAPIRequests(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	args := m.Called(ctx, tenantID, delta)
	return args.Error(0)
}

func (m *MockUsageMetricRepository) IncrementEmployees(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	args := m.Called(ctx, tenantID, delta)
	return args.Error(0)
}

func (m *MockUsageMetricRepository) AddStorageBytes(ctx context.Context, tenantID uuid.UUID, delta int64) error {
	args := m.Called(ctx, tenantID, delta)
	return args.Error(0)
}

// MockTenantLifecycle is a mock implementation of TenantLifecycle
type MockTenantLifecycle struct {
	mock.Mock
}

func (m *MockTenantLifecycle) Suspend(ctx context.Context, tenantID uuid.UUID, reason string, graceDays int) error {
	args := m.Called(ctx, tenantID, reason, graceDays)
	return args.Error(0)
}

func (m *MockTenantLifecycle) Activate(ctx context.Context, tenantID uuid.UUID, billingRef string) error {
	args := m.Called(ctx, tenantID, billingRef)
	return args.Error(0)
}

func (m *MockTenantLifecycle) Cancel(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MockAlertSink is a mock implementation of AlertSink
type MockAlertSink struct {
	mock.Mock
}

func (m *MockAlertSink) Raise(ctx context.Context, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) error {
	args := m.Called(ctx, tenantID, alertType, severity, message, metadata)
	return args.Error(0)
}

// MockSubscriptionFetcher is a mock implementation of SubscriptionFetcher
type MockSubscriptionFetcher struct {
	mock.Mock
}

func (m *MockSubscriptionFetcher) FetchSubscription(ctx context.Context, subscriptionID string) (*infraBilling.SubscriptionSnapshot, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infraBilling.SubscriptionSnapshot), args.Error(1)
}

// memoryIdempotencyStore is an in-memory shared.IdempotencyStore for tests
type memoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{seen: make(map[string]struct{})}
}

func (s *memoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}

func (s *memoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[eventID]
	return ok, nil
}

func (s *memoryIdempotencyStore) Close() error { return nil }
