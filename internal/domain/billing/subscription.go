package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staffhub/backend/internal/domain/shared"
)

// SubscriptionStatus mirrors the billing provider's subscription states
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// BillingPeriod represents the billing cycle
type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

// Subscription is the local mirror of one provider subscription. It belongs
// to exactly one tenant; the external customer and subscription identifiers
// are the only reliable correlation keys from inbound webhook payloads.
//
// Once created, Status is owned by the reconciliation component: every write
// is an absolute state taken from a provider event or from the provider's
// authoritative record, guarded by LastEventAt so that stale events cannot
// overwrite newer state.
type Subscription struct {
	shared.BaseAggregateRoot
	TenantID             uuid.UUID          `gorm:"type:uuid;not null;index"`
	Plan                 string             `gorm:"type:varchar(100);not null"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null"`
	BillingPeriod        BillingPeriod      `gorm:"type:varchar(10);not null;default:'monthly'"`
	Price                decimal.Decimal    `gorm:"type:decimal(12,2)"`
	Currency             string             `gorm:"type:varchar(3);not null;default:'USD'"`
	StripeCustomerID     string             `gorm:"type:varchar(100);index"`
	StripeSubscriptionID string             `gorm:"type:varchar(100);uniqueIndex"`
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	CanceledAt           *time.Time
	LastEventAt          *time.Time // Provider timestamp of the newest applied event
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewSubscription creates a subscription mirror for a tenant
func NewSubscription(tenantID uuid.UUID, plan string, status SubscriptionStatus, period BillingPeriod) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Subscription requires a tenant")
	}
	if plan == "" {
		return nil, shared.NewDomainError("INVALID_PLAN", "Subscription plan cannot be empty")
	}
	if err := validateSubscriptionStatus(status); err != nil {
		return nil, err
	}
	if period != BillingPeriodMonthly && period != BillingPeriodYearly {
		return nil, shared.NewDomainError("INVALID_BILLING_PERIOD", "Billing period must be monthly or yearly")
	}

	return &Subscription{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Plan:              plan,
		Status:            status,
		BillingPeriod:     period,
		Price:             decimal.Zero,
		Currency:          "USD",
	}, nil
}

// SubscriptionState is the absolute state carried by one provider event or by
// the provider's authoritative record.
type SubscriptionState struct {
	Status            SubscriptionStatus
	Plan              string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	CanceledAt        *time.Time
}

// ApplyProviderState applies the absolute state observed at eventTime. It
// returns false without mutating anything when eventTime is not newer than
// the last applied event, which is what makes out-of-order delivery converge:
// only the provider's newest truth ever sticks.
func (s *Subscription) ApplyProviderState(state SubscriptionState, eventTime time.Time) (bool, error) {
	if err := validateSubscriptionStatus(state.Status); err != nil {
		return false, err
	}
	if s.LastEventAt != nil && !eventTime.After(*s.LastEventAt) {
		return false, nil
	}

	s.Status = state.Status
	if state.Plan != "" {
		s.Plan = state.Plan
	}
	s.CurrentPeriodEnd = state.CurrentPeriodEnd
	s.CancelAtPeriodEnd = state.CancelAtPeriodEnd
	s.CanceledAt = state.CanceledAt
	s.LastEventAt = &eventTime
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return true, nil
}

// LinkProvider records the external identifiers once they are known
func (s *Subscription) LinkProvider(customerID, subscriptionID string) {
	if customerID != "" {
		s.StripeCustomerID = customerID
	}
	if subscriptionID != "" {
		s.StripeSubscriptionID = subscriptionID
	}
	s.UpdatedAt = time.Now()
}

// SetPrice sets the subscription price
func (s *Subscription) SetPrice(price decimal.Decimal, currency string) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter code")
	}
	s.Price = price
	s.Currency = currency
	s.UpdatedAt = time.Now()
	return nil
}

// IsActive returns true when the provider considers the subscription billable
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}

func validateSubscriptionStatus(status SubscriptionStatus) error {
	switch status {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCanceled, SubscriptionStatusUnpaid, SubscriptionStatusIncomplete:
		return nil
	default:
		return shared.NewDomainError("INVALID_SUBSCRIPTION_STATUS", "Unknown subscription status")
	}
}
