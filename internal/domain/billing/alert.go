package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/shared"
)

// AlertType classifies the condition behind an alert
type AlertType string

const (
	AlertTypePaymentFailure AlertType = "payment_failure"
	AlertTypeOverage        AlertType = "overage"
	AlertTypeSuspension     AlertType = "suspension"
	AlertTypeCancellation   AlertType = "cancellation"
	AlertTypeError          AlertType = "error"
)

// AlertSeverity indicates how urgently an operator should look
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks the alert's handling state
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// Alert is an operator-facing condition raised by any component detecting a
// problem. The dedup key coarsens the cause (tenant + type + day) so the same
// underlying condition never produces two active alerts.
type Alert struct {
	shared.BaseEntity
	TenantID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Type       AlertType         `gorm:"type:varchar(30);not null"`
	Severity   AlertSeverity     `gorm:"type:varchar(10);not null"`
	Message    string            `gorm:"type:text;not null"`
	Metadata   map[string]string `gorm:"serializer:json"`
	Status     AlertStatus       `gorm:"type:varchar(15);not null;default:'active';index"`
	DedupKey   string            `gorm:"type:varchar(200);not null;index"`
	ResolvedAt *time.Time
}

// TableName returns the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// DedupKeyFor derives the dedup key for a tenant, alert type, and occurrence
// time, coarsened to the day.
func DedupKeyFor(tenantID uuid.UUID, alertType AlertType, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, alertType, at.UTC().Format("2006-01-02"))
}

// NewAlert creates an active alert
func NewAlert(tenantID uuid.UUID, alertType AlertType, severity AlertSeverity, message string, metadata map[string]string) (*Alert, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Alert requires a tenant")
	}
	if message == "" {
		return nil, shared.NewDomainError("INVALID_MESSAGE", "Alert message cannot be empty")
	}

	return &Alert{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Type:       alertType,
		Severity:   severity,
		Message:    message,
		Metadata:   metadata,
		Status:     AlertStatusActive,
		DedupKey:   DedupKeyFor(tenantID, alertType, time.Now()),
	}, nil
}

// Acknowledge marks the alert as seen by an operator
func (a *Alert) Acknowledge() error {
	if a.Status == AlertStatusResolved {
		return shared.ErrInvalidState
	}
	a.Status = AlertStatusAcknowledged
	a.UpdatedAt = time.Now()
	return nil
}

// Resolve closes the alert
func (a *Alert) Resolve() {
	if a.Status == AlertStatusResolved {
		return
	}
	now := time.Now()
	a.Status = AlertStatusResolved
	a.ResolvedAt = &now
	a.UpdatedAt = now
}

// RefreshMetadata merges new metadata into an existing active alert. Used by
// the dedup path instead of inserting a duplicate.
func (a *Alert) RefreshMetadata(metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	if a.Metadata == nil {
		a.Metadata = make(map[string]string, len(metadata))
	}
	for k, v := range metadata {
		a.Metadata[k] = v
	}
	a.UpdatedAt = time.Now()
}
