package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// SubscriptionRepository defines the interface for subscription persistence
type SubscriptionRepository interface {
	// FindByID finds a subscription by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindActiveByTenant finds the tenant's current subscription
	FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// FindByStripeSubscriptionID correlates by the provider subscription id
	FindByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)

	// FindByStripeCustomerID correlates by the provider customer id
	FindByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*Subscription, error)

	// FindStale finds subscriptions not updated since the cutoff, for the
	// reconciliation sweep
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error)

	// Save creates or updates a subscription
	Save(ctx context.Context, subscription *Subscription) error
}

// BillingEventFilter narrows inbox queries for the audit endpoint
type BillingEventFilter struct {
	Processed *bool
	TenantID  *uuid.UUID
	EventType string
	Since     *time.Time
	Until     *time.Time
	Page      int
	PageSize  int
}

// BillingEventRepository defines the interface for the durable webhook inbox
type BillingEventRepository interface {
	// FindByID finds an inbox row by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*BillingEvent, error)

	// FindByExternalID finds an inbox row by its provider dedup key
	FindByExternalID(ctx context.Context, provider, externalEventID string) (*BillingEvent, error)

	// FindUnprocessed returns unprocessed rows oldest first, for retry
	FindUnprocessed(ctx context.Context, limit int) ([]BillingEvent, error)

	// List returns inbox rows matching the filter, newest first
	List(ctx context.Context, filter BillingEventFilter) (shared.Paginated[BillingEvent], error)

	// Save creates or updates an inbox row. Creating a row whose
	// (provider, external_event_id) already exists returns ErrAlreadyExists.
	Save(ctx context.Context, event *BillingEvent) error
}

// AlertRepository defines the interface for alert persistence
type AlertRepository interface {
	// FindByID finds an alert by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// FindActiveByDedupKey finds an active alert carrying the dedup key
	FindActiveByDedupKey(ctx context.Context, dedupKey string) (*Alert, error)

	// FindActiveByTenant lists a tenant's active alerts
	FindActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]Alert, error)

	// Save creates or updates an alert
	Save(ctx context.Context, alert *Alert) error
}

// UsageMetricRepository defines the interface for usage counters
type UsageMetricRepository interface {
	// FindByTenant returns the tenant's counters, zeroed if absent
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*UsageMetric, error)

	// IncrementAPIRequests adds delta to the API request counter
	IncrementAPIRequests(ctx context.Context, tenantID uuid.UUID, delta int64) error

	// IncrementEmployees adds delta to the employee counter
	IncrementEmployees(ctx context.Context, tenantID uuid.UUID, delta int64) error

	// AddStorageBytes adds delta to the storage counter
	AddStorageBytes(ctx context.Context, tenantID uuid.UUID, delta int64) error
}
