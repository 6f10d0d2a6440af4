package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// EventOutcome records what processing an inbox row amounted to
type EventOutcome string

const (
	EventOutcomeApplied  EventOutcome = "applied"  // Handler applied the payload state
	EventOutcomeNoOp     EventOutcome = "no_op"    // Recognized but nothing to do
	EventOutcomeStale    EventOutcome = "stale"    // Older than the last applied event
	EventOutcomeUnmapped EventOutcome = "unmapped" // Could not correlate to a subscription
)

// BillingEvent is one row of the durable webhook inbox. Every inbound event
// is persisted before any side effect is attempted, so a crash mid-processing
// leaves a replayable unprocessed record. Rows are never deleted; they are the
// audit trail for provider state changes.
type BillingEvent struct {
	shared.BaseEntity
	Provider        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_billing_events_provider_external,priority:1"`
	ExternalEventID string `gorm:"type:varchar(100);uniqueIndex:idx_billing_events_provider_external,priority:2"`
	EventType       string `gorm:"type:varchar(100);not null;index"`
	Payload         []byte `gorm:"type:jsonb;not null"`
	Signature       string `gorm:"type:text"`
	EventTimestamp  time.Time
	Processed       bool         `gorm:"not null;default:false;index"`
	Outcome         EventOutcome `gorm:"type:varchar(20)"`
	TenantID        *uuid.UUID   `gorm:"type:uuid;index"`
	SubscriptionID  *uuid.UUID   `gorm:"type:uuid;index"`
	ErrorMessage    *string      `gorm:"type:text"`
	ReceivedAt      time.Time    `gorm:"not null"`
	ProcessedAt     *time.Time
}

// TableName returns the table name for GORM
func (BillingEvent) TableName() string {
	return "billing_events"
}

// NewBillingEvent records an inbound webhook before interpretation
func NewBillingEvent(provider, externalEventID, eventType string, payload []byte, signature string, eventTimestamp time.Time) (*BillingEvent, error) {
	if provider == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Billing event provider cannot be empty")
	}
	if eventType == "" {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", "Billing event type cannot be empty")
	}
	if len(payload) == 0 {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Billing event payload cannot be empty")
	}

	return &BillingEvent{
		BaseEntity:      shared.NewBaseEntity(),
		Provider:        provider,
		ExternalEventID: externalEventID,
		EventType:       eventType,
		Payload:         payload,
		Signature:       signature,
		EventTimestamp:  eventTimestamp,
		ReceivedAt:      time.Now(),
	}, nil
}

// MarkProcessed records a processing outcome and closes the row
func (e *BillingEvent) MarkProcessed(outcome EventOutcome) {
	now := time.Now()
	e.Processed = true
	e.Outcome = outcome
	e.ErrorMessage = nil
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a processing failure. The row stays unprocessed so the
// reconciliation sweep can retry or an operator can inspect it.
func (e *BillingEvent) MarkFailed(message string) {
	e.Processed = false
	e.ErrorMessage = &message
	e.UpdatedAt = time.Now()
}

// LinkTenant fills in the correlated tenant and subscription once known
func (e *BillingEvent) LinkTenant(tenantID, subscriptionID uuid.UUID) {
	if tenantID != uuid.Nil {
		e.TenantID = &tenantID
	}
	if subscriptionID != uuid.Nil {
		e.SubscriptionID = &subscriptionID
	}
}
