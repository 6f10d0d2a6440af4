package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	domainbilling "github.com/staffhub/backend/internal/domain/billing"
)

// CreateCustomerInput contains input for creating a Stripe customer
type CreateCustomerInput struct {
	TenantID    uuid.UUID
	Email       string
	Name        string
	Description string
	Metadata    map[string]string
}

// CreateCustomerOutput contains the result of creating a Stripe customer
type CreateCustomerOutput struct {
	CustomerID string
	Email      string
	Name       string
	CreatedAt  time.Time
}

// CancelSubscriptionInput contains input for canceling a Stripe subscription
type CancelSubscriptionInput struct {
	TenantID          uuid.UUID
	SubscriptionID    string
	CancelAtPeriodEnd bool
	Reason            string
}

// CancelSubscriptionOutput contains the result of canceling a Stripe subscription
type CancelSubscriptionOutput struct {
	SubscriptionID    string
	Status            domainbilling.SubscriptionStatus
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
	CanceledAt        *time.Time
}

// SubscriptionSnapshot is the provider's authoritative view of one
// subscription, fetched directly from the Stripe API rather than taken
// from a webhook payload.
type SubscriptionSnapshot struct {
	SubscriptionID    string
	CustomerID        string
	Status            domainbilling.SubscriptionStatus
	Plan              string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	CanceledAt        *time.Time
	ObservedAt        time.Time
}

// State converts the snapshot into the absolute state the subscription
// aggregate applies.
func (s *SubscriptionSnapshot) State() domainbilling.SubscriptionState {
	return domainbilling.SubscriptionState{
		Status:            s.Status,
		Plan:              s.Plan,
		CurrentPeriodEnd:  s.CurrentPeriodEnd,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
		CanceledAt:        s.CanceledAt,
	}
}

// MapSubscriptionStatus maps Stripe subscription status to our internal status.
// Stripe's incomplete_expired and paused states have no local counterpart:
// an expired incomplete subscription is dead, and a paused one is not billable.
func MapSubscriptionStatus(status stripe.SubscriptionStatus) domainbilling.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return domainbilling.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue:
		return domainbilling.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return domainbilling.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusIncomplete:
		return domainbilling.SubscriptionStatusIncomplete
	case stripe.SubscriptionStatusTrialing:
		return domainbilling.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusPaused:
		return domainbilling.SubscriptionStatusUnpaid
	default:
		return domainbilling.SubscriptionStatus(status)
	}
}
