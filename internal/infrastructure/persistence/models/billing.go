package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
)

// SubscriptionModel is the persistence model for the Subscription domain entity.
type SubscriptionModel struct {
	AggregateModel
	TenantID             uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Plan                 string                     `gorm:"type:varchar(100);not null"`
	Status               billing.SubscriptionStatus `gorm:"type:varchar(20);not null;index"`
	BillingPeriod        billing.BillingPeriod      `gorm:"type:varchar(10);not null;default:'monthly'"`
	Price                decimal.Decimal            `gorm:"type:decimal(12,2)"`
	Currency             string                     `gorm:"type:varchar(3);not null;default:'USD'"`
	StripeCustomerID     string                     `gorm:"type:varchar(100);index"`
	StripeSubscriptionID string                     `gorm:"type:varchar(100);uniqueIndex"`
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool `gorm:"not null;default:false"`
	CanceledAt           *time.Time
	LastEventAt          *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription entity.
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID:             m.TenantID,
		Plan:                 m.Plan,
		Status:               m.Status,
		BillingPeriod:        m.BillingPeriod,
		Price:                m.Price,
		Currency:             m.Currency,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		CancelAtPeriodEnd:    m.CancelAtPeriodEnd,
		CanceledAt:           m.CanceledAt,
		LastEventAt:          m.LastEventAt,
	}
}

// FromDomain populates the persistence model from a domain Subscription entity.
func (m *SubscriptionModel) FromDomain(s *billing.Subscription) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.TenantID = s.TenantID
	m.Plan = s.Plan
	m.Status = s.Status
	m.BillingPeriod = s.BillingPeriod
	m.Price = s.Price
	m.Currency = s.Currency
	m.StripeCustomerID = s.StripeCustomerID
	m.StripeSubscriptionID = s.StripeSubscriptionID
	m.CurrentPeriodEnd = s.CurrentPeriodEnd
	m.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	m.CanceledAt = s.CanceledAt
	m.LastEventAt = s.LastEventAt
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription entity.
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{}
	m.FromDomain(s)
	return m
}

// BillingEventModel is the persistence model for the BillingEvent inbox row.
// The composite unique index on (provider, external_event_id) is the durable
// dedup guard; inserting a replay violates it regardless of which instance
// received the delivery.
type BillingEventModel struct {
	BaseModel
	Provider        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_billing_events_provider_external,priority:1"`
	ExternalEventID string `gorm:"type:varchar(100);not null;uniqueIndex:idx_billing_events_provider_external,priority:2"`
	EventType       string `gorm:"type:varchar(100);not null;index"`
	Payload         []byte `gorm:"type:jsonb;not null"`
	Signature       string `gorm:"type:text"`
	EventTimestamp  time.Time
	Processed       bool                 `gorm:"not null;default:false;index"`
	Outcome         billing.EventOutcome `gorm:"type:varchar(20)"`
	TenantID        *uuid.UUID           `gorm:"type:uuid;index"`
	SubscriptionID  *uuid.UUID           `gorm:"type:uuid;index"`
	ErrorMessage    *string              `gorm:"type:text"`
	ReceivedAt      time.Time            `gorm:"not null;index"`
	ProcessedAt     *time.Time
}

// TableName returns the table name for GORM
func (BillingEventModel) TableName() string {
	return "billing_events"
}

// ToDomain converts the persistence model to a domain BillingEvent entity.
func (m *BillingEventModel) ToDomain() *billing.BillingEvent {
	return &billing.BillingEvent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Provider:        m.Provider,
		ExternalEventID: m.ExternalEventID,
		EventType:       m.EventType,
		Payload:         m.Payload,
		Signature:       m.Signature,
		EventTimestamp:  m.EventTimestamp,
		Processed:       m.Processed,
		Outcome:         m.Outcome,
		TenantID:        m.TenantID,
		SubscriptionID:  m.SubscriptionID,
		ErrorMessage:    m.ErrorMessage,
		ReceivedAt:      m.ReceivedAt,
		ProcessedAt:     m.ProcessedAt,
	}
}

// FromDomain populates the persistence model from a domain BillingEvent entity.
func (m *BillingEventModel) FromDomain(e *billing.BillingEvent) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Provider = e.Provider
	m.ExternalEventID = e.ExternalEventID
	m.EventType = e.EventType
	m.Payload = e.Payload
	m.Signature = e.Signature
	m.EventTimestamp = e.EventTimestamp
	m.Processed = e.Processed
	m.Outcome = e.Outcome
	m.TenantID = e.TenantID
	m.SubscriptionID = e.SubscriptionID
	m.ErrorMessage = e.ErrorMessage
	m.ReceivedAt = e.ReceivedAt
	m.ProcessedAt = e.ProcessedAt
}

// BillingEventModelFromDomain creates a new persistence model from a domain BillingEvent entity.
func BillingEventModelFromDomain(e *billing.BillingEvent) *BillingEventModel {
	m := &BillingEventModel{}
	m.FromDomain(e)
	return m
}

// AlertModel is the persistence model for the Alert domain entity.
type AlertModel struct {
	BaseModel
	TenantID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Type       billing.AlertType     `gorm:"type:varchar(30);not null"`
	Severity   billing.AlertSeverity `gorm:"type:varchar(10);not null"`
	Message    string                `gorm:"type:text;not null"`
	Metadata   map[string]string     `gorm:"serializer:json"`
	Status     billing.AlertStatus   `gorm:"type:varchar(15);not null;default:'active';index"`
	DedupKey   string                `gorm:"type:varchar(200);not null;index"`
	ResolvedAt *time.Time
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "alerts"
}

// ToDomain converts the persistence model to a domain Alert entity.
func (m *AlertModel) ToDomain() *billing.Alert {
	return &billing.Alert{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:   m.TenantID,
		Type:       m.Type,
		Severity:   m.Severity,
		Message:    m.Message,
		Metadata:   m.Metadata,
		Status:     m.Status,
		DedupKey:   m.DedupKey,
		ResolvedAt: m.ResolvedAt,
	}
}

// FromDomain populates the persistence model from a domain Alert entity.
func (m *AlertModel) FromDomain(a *billing.Alert) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.TenantID = a.TenantID
	m.Type = a.Type
	m.Severity = a.Severity
	m.Message = a.Message
	m.Metadata = a.Metadata
	m.Status = a.Status
	m.DedupKey = a.DedupKey
	m.ResolvedAt = a.ResolvedAt
}

// AlertModelFromDomain creates a new persistence model from a domain Alert entity.
func AlertModelFromDomain(a *billing.Alert) *AlertModel {
	m := &AlertModel{}
	m.FromDomain(a)
	return m
}

// UsageMetricModel is the persistence model for per-tenant usage counters.
type UsageMetricModel struct {
	TenantID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	APIRequestCount int64     `gorm:"not null;default:0"`
	EmployeeCount   int64     `gorm:"not null;default:0"`
	StorageBytes    int64     `gorm:"not null;default:0"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UsageMetricModel) TableName() string {
	return "usage_metrics"
}

// ToDomain converts the persistence model to a domain UsageMetric.
func (m *UsageMetricModel) ToDomain() *billing.UsageMetric {
	return &billing.UsageMetric{
		TenantID:        m.TenantID,
		APIRequestCount: m.APIRequestCount,
		EmployeeCount:   m.EmployeeCount,
		StorageBytes:    m.StorageBytes,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain UsageMetric.
func (m *UsageMetricModel) FromDomain(u *billing.UsageMetric) {
	m.TenantID = u.TenantID
	m.APIRequestCount = u.APIRequestCount
	m.EmployeeCount = u.EmployeeCount
	m.StorageBytes = u.StorageBytes
	m.UpdatedAt = u.UpdatedAt
}
