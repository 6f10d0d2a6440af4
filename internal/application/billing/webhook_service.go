package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/shared"
	infraBilling "github.com/staffhub/backend/internal/infrastructure/billing"
	"github.com/staffhub/backend/internal/syncutil"
)

// TenantLifecycle is the slice of the lifecycle service the billing path
// drives. Payment state never mutates tenants directly; it goes through the
// same transitions operators use.
type TenantLifecycle interface {
	Suspend(ctx context.Context, tenantID uuid.UUID, reason string, graceDays int) error
	Activate(ctx context.Context, tenantID uuid.UUID, billingRef string) error
	Cancel(ctx context.Context, tenantID uuid.UUID) error
}

// WebhookConfig bounds webhook processing behavior
type WebhookConfig struct {
	// GracePeriodDays is the grace period granted on payment failure
	GracePeriodDays int

	// IdempotencyTTL is how long the fast-path dedup remembers event IDs
	IdempotencyTTL time.Duration
}

// DefaultWebhookConfig returns default webhook processing bounds
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		GracePeriodDays: 7,
		IdempotencyTTL:  24 * time.Hour,
	}
}

// WebhookService ingests billing provider webhooks. Every verified event is
// persisted to the inbox before interpretation, so the HTTP response only ever
// communicates durable receipt; a processing failure leaves a replayable
// unprocessed row behind rather than surfacing to the provider.
type WebhookService struct {
	verifiers        *infraBilling.VerifierRegistry
	eventRepo        billing.BillingEventRepository
	subscriptionRepo billing.SubscriptionRepository
	lifecycle        TenantLifecycle
	alerts           AlertSink
	idempotency      shared.IdempotencyStore
	locks            *syncutil.KeyedMutex
	logger           *zap.Logger
	config           WebhookConfig
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Verifiers        *infraBilling.VerifierRegistry
	EventRepo        billing.BillingEventRepository
	SubscriptionRepo billing.SubscriptionRepository
	Lifecycle        TenantLifecycle
	Alerts           AlertSink
	Idempotency      shared.IdempotencyStore
	Logger           *zap.Logger
	Config           WebhookConfig
}

// NewWebhookService creates a new webhook service
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	if cfg.Config.GracePeriodDays <= 0 {
		cfg.Config.GracePeriodDays = DefaultWebhookConfig().GracePeriodDays
	}
	if cfg.Config.IdempotencyTTL <= 0 {
		cfg.Config.IdempotencyTTL = DefaultWebhookConfig().IdempotencyTTL
	}
	return &WebhookService{
		verifiers:        cfg.Verifiers,
		eventRepo:        cfg.EventRepo,
		subscriptionRepo: cfg.SubscriptionRepo,
		lifecycle:        cfg.Lifecycle,
		alerts:           cfg.Alerts,
		idempotency:      cfg.Idempotency,
		locks:            syncutil.NewKeyedMutex(),
		logger:           cfg.Logger,
		config:           cfg.Config,
	}
}

// WebhookResult contains the result of ingesting a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Outcome   string `json:"outcome,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleWebhook verifies, persists, and processes one inbound webhook.
// Verification failures are returned as errors before anything is stored;
// once the event is in the inbox, processing failures are reported in the
// result rather than as errors.
func (s *WebhookService) HandleWebhook(ctx context.Context, provider string, payload []byte, signature string) (*WebhookResult, error) {
	verifier, err := s.verifiers.Get(provider)
	if err != nil {
		return nil, shared.NewDomainError("UNKNOWN_PROVIDER", "No such billing provider")
	}

	inbound, err := verifier.Verify(payload, signature)
	if err != nil {
		s.logger.Warn("Webhook signature verification failed",
			zap.String("provider", provider),
			zap.Error(err))
		return nil, shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
	}

	result := &WebhookResult{
		EventID:   inbound.ExternalID,
		EventType: inbound.Type,
	}

	// Fast-path dedup. A replay already in the store is acknowledged without
	// touching the database; the inbox unique index backstops this when the
	// store is cold or unavailable.
	dedupKey := provider + ":" + inbound.ExternalID
	if s.idempotency != nil {
		seen, err := s.idempotency.IsProcessed(ctx, dedupKey)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, falling back to inbox dedup",
				zap.Error(err))
		} else if seen {
			result.Processed = true
			result.Message = "duplicate event"
			return result, nil
		}
	}

	event, err := billing.NewBillingEvent(provider, inbound.ExternalID, inbound.Type, inbound.Payload, inbound.Signature, inbound.Timestamp)
	if err != nil {
		return nil, err
	}

	if err := s.eventRepo.Save(ctx, event); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			s.rememberEvent(ctx, dedupKey)
			result.Processed = true
			result.Message = "duplicate event"
			return result, nil
		}
		s.logger.Error("Failed to persist billing event",
			zap.String("provider", provider),
			zap.String("external_event_id", inbound.ExternalID),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to persist billing event")
	}

	// The fast-path key is written only once the row is durable. A failed
	// persist must leave the key unset so the provider's redelivery gets
	// another chance to reach the inbox.
	s.rememberEvent(ctx, dedupKey)

	if err := s.ProcessStored(ctx, event); err != nil {
		// The event is durably stored; the sweep will retry it.
		result.Processed = false
		result.Message = err.Error()
		return result, nil
	}

	result.Processed = true
	result.Outcome = string(event.Outcome)
	return result, nil
}

// rememberEvent records a durably stored event in the fast-path dedup store.
// Store failures are tolerated; the inbox unique index still rejects replays.
func (s *WebhookService) rememberEvent(ctx context.Context, key string) {
	if s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to record event in idempotency store",
			zap.String("key", key),
			zap.Error(err))
	}
}

// ProcessStored interprets one inbox row and records its outcome. Called
// inline on ingestion and again by the reconciliation sweep for rows whose
// first attempt failed.
func (s *WebhookService) ProcessStored(ctx context.Context, event *billing.BillingEvent) error {
	outcome, err := s.interpret(ctx, event)
	if err != nil {
		s.logger.Error("Failed to process billing event",
			zap.String("external_event_id", event.ExternalEventID),
			zap.String("event_type", event.EventType),
			zap.Error(err))
		event.MarkFailed(err.Error())
		if saveErr := s.eventRepo.Save(ctx, event); saveErr != nil {
			s.logger.Error("Failed to record billing event failure",
				zap.String("external_event_id", event.ExternalEventID),
				zap.Error(saveErr))
		}
		return err
	}

	event.MarkProcessed(outcome)
	if err := s.eventRepo.Save(ctx, event); err != nil {
		s.logger.Error("Failed to mark billing event processed",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(err))
		return err
	}

	s.logger.Info("Billing event processed",
		zap.String("external_event_id", event.ExternalEventID),
		zap.String("event_type", event.EventType),
		zap.String("outcome", string(outcome)))

	return nil
}

// interpret dispatches on event type. The mapping of event types to
// correlation strategy is explicit; nothing is inferred from the type string.
func (s *WebhookService) interpret(ctx context.Context, event *billing.BillingEvent) (billing.EventOutcome, error) {
	var envelope stripe.Event
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return "", fmt.Errorf("parse event payload: %w", err)
	}
	if envelope.Data == nil {
		return "", fmt.Errorf("event payload has no data object")
	}

	switch event.EventType {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		return s.applySubscriptionEvent(ctx, event, envelope.Data.Raw)
	case "invoice.paid", "invoice.payment_failed":
		return s.applyInvoiceEvent(ctx, event, envelope.Data.Raw)
	case "customer.subscription.trial_will_end":
		// Recognized, but there is no local state to change yet.
		return billing.EventOutcomeNoOp, nil
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", event.EventType))
		return billing.EventOutcomeNoOp, nil
	}
}

// applySubscriptionEvent handles the customer.subscription.* family. The
// payload carries the provider's full current subscription state, so the
// handler applies absolute state and out-of-order deliveries converge.
func (s *WebhookService) applySubscriptionEvent(ctx context.Context, event *billing.BillingEvent, raw json.RawMessage) (billing.EventOutcome, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("parse subscription payload: %w", err)
	}
	if sub.ID == "" {
		return billing.EventOutcomeUnmapped, nil
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	unlock, err := s.locks.Lock(ctx, event.Provider+":"+sub.ID)
	if err != nil {
		return "", err
	}
	defer unlock()

	local, err := s.correlate(ctx, sub.ID, customerID)
	if err != nil {
		return "", err
	}
	if local == nil {
		if event.EventType != "customer.subscription.created" {
			s.logger.Warn("No local subscription for event",
				zap.String("subscription_id", sub.ID),
				zap.String("event_type", event.EventType))
			return billing.EventOutcomeUnmapped, nil
		}
		local, err = s.createLocalSubscription(&sub)
		if err != nil {
			return "", err
		}
		if local == nil {
			return billing.EventOutcomeUnmapped, nil
		}
	}

	snapshot := infraBilling.SnapshotFromSubscription(&sub)
	applied, err := local.ApplyProviderState(snapshot.State(), event.EventTimestamp)
	if err != nil {
		return "", err
	}

	local.LinkProvider(customerID, sub.ID)
	if err := s.subscriptionRepo.Save(ctx, local); err != nil {
		return "", fmt.Errorf("save subscription: %w", err)
	}
	event.LinkTenant(local.TenantID, local.ID)

	if !applied {
		return billing.EventOutcomeStale, nil
	}

	s.applyLifecycleEffects(ctx, local)
	return billing.EventOutcomeApplied, nil
}

// applyInvoiceEvent handles invoice.paid and invoice.payment_failed. Invoices
// carry payment truth but not the full subscription record, so only the
// status changes; the other fields keep their last applied values.
func (s *WebhookService) applyInvoiceEvent(ctx context.Context, event *billing.BillingEvent, raw json.RawMessage) (billing.EventOutcome, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return "", fmt.Errorf("parse invoice payload: %w", err)
	}

	subID := ""
	if invoice.Subscription != nil {
		subID = invoice.Subscription.ID
	}
	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	if subID == "" && customerID == "" {
		return billing.EventOutcomeUnmapped, nil
	}

	lockKey := event.Provider + ":" + subID
	if subID == "" {
		lockKey = event.Provider + ":" + customerID
	}
	unlock, err := s.locks.Lock(ctx, lockKey)
	if err != nil {
		return "", err
	}
	defer unlock()

	local, err := s.correlate(ctx, subID, customerID)
	if err != nil {
		return "", err
	}
	if local == nil {
		s.logger.Warn("No local subscription for invoice",
			zap.String("subscription_id", subID),
			zap.String("customer_id", customerID))
		return billing.EventOutcomeUnmapped, nil
	}

	status := billing.SubscriptionStatusActive
	if event.EventType == "invoice.payment_failed" {
		status = billing.SubscriptionStatusPastDue
	}

	state := billing.SubscriptionState{
		Status:            status,
		CurrentPeriodEnd:  local.CurrentPeriodEnd,
		CancelAtPeriodEnd: local.CancelAtPeriodEnd,
		CanceledAt:        local.CanceledAt,
	}
	applied, err := local.ApplyProviderState(state, event.EventTimestamp)
	if err != nil {
		return "", err
	}

	local.LinkProvider(customerID, subID)
	if err := s.subscriptionRepo.Save(ctx, local); err != nil {
		return "", fmt.Errorf("save subscription: %w", err)
	}
	event.LinkTenant(local.TenantID, local.ID)

	if !applied {
		return billing.EventOutcomeStale, nil
	}

	s.applyLifecycleEffects(ctx, local)
	return billing.EventOutcomeApplied, nil
}

// correlate resolves the local subscription by provider subscription id, then
// by provider customer id. A nil result without error means unmapped.
func (s *WebhookService) correlate(ctx context.Context, subscriptionID, customerID string) (*billing.Subscription, error) {
	if subscriptionID != "" {
		local, err := s.subscriptionRepo.FindByStripeSubscriptionID(ctx, subscriptionID)
		if err == nil {
			return local, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find subscription: %w", err)
		}
	}
	if customerID != "" {
		local, err := s.subscriptionRepo.FindByStripeCustomerID(ctx, customerID)
		if err == nil {
			return local, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("find subscription by customer: %w", err)
		}
	}
	return nil, nil
}

// createLocalSubscription builds the local mirror for a subscription we have
// never seen. Tenant correlation relies on the tenant_id metadata stamped on
// the provider object at creation time; without it the event stays unmapped.
func (s *WebhookService) createLocalSubscription(sub *stripe.Subscription) (*billing.Subscription, error) {
	tenantID, err := uuid.Parse(sub.Metadata["tenant_id"])
	if err != nil {
		s.logger.Warn("Subscription has no usable tenant_id metadata",
			zap.String("subscription_id", sub.ID))
		return nil, nil
	}

	snapshot := infraBilling.SnapshotFromSubscription(sub)
	plan := snapshot.Plan
	if plan == "" {
		plan = "unknown"
	}

	local, err := billing.NewSubscription(tenantID, plan, snapshot.Status, billing.BillingPeriodMonthly)
	if err != nil {
		return nil, fmt.Errorf("create subscription mirror: %w", err)
	}
	return local, nil
}

// applyLifecycleEffects drives the tenant transitions that follow from the
// subscription's new status. Transition failures are logged, not propagated;
// the sweep re-derives them from provider truth later.
func (s *WebhookService) applyLifecycleEffects(ctx context.Context, sub *billing.Subscription) {
	driveTenantForStatus(ctx, s.lifecycle, s.alerts, s.logger, sub, s.config.GracePeriodDays)
}

// driveTenantForStatus invokes the lifecycle transition and alert matching a
// subscription's status. Shared between inline webhook processing and the
// drift sweep so both paths produce identical side effects. Returns whether
// an alert was raised.
func driveTenantForStatus(ctx context.Context, lifecycle TenantLifecycle, alerts AlertSink, logger *zap.Logger, sub *billing.Subscription, graceDays int) bool {
	if lifecycle == nil {
		return false
	}

	switch sub.Status {
	case billing.SubscriptionStatusPastDue, billing.SubscriptionStatusUnpaid:
		if err := lifecycle.Suspend(ctx, sub.TenantID, "payment failed", graceDays); err != nil {
			logger.Warn("Failed to suspend tenant on payment failure",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.Error(err))
		}
		return raiseSubscriptionAlert(ctx, alerts, logger, sub.TenantID,
			billing.AlertTypePaymentFailure, billing.AlertSeverityCritical,
			fmt.Sprintf("Payment failed for subscription %s", sub.StripeSubscriptionID),
			map[string]string{"subscription_id": sub.StripeSubscriptionID})

	case billing.SubscriptionStatusActive, billing.SubscriptionStatusTrialing:
		if err := lifecycle.Activate(ctx, sub.TenantID, sub.StripeCustomerID); err != nil {
			logger.Warn("Failed to activate tenant on payment recovery",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.Error(err))
		}
		return false

	case billing.SubscriptionStatusCanceled:
		if err := lifecycle.Cancel(ctx, sub.TenantID); err != nil {
			logger.Warn("Failed to cancel tenant on subscription deletion",
				zap.String("tenant_id", sub.TenantID.String()),
				zap.Error(err))
		}
		return raiseSubscriptionAlert(ctx, alerts, logger, sub.TenantID,
			billing.AlertTypeCancellation, billing.AlertSeverityWarning,
			fmt.Sprintf("Subscription %s canceled by provider", sub.StripeSubscriptionID),
			map[string]string{"subscription_id": sub.StripeSubscriptionID})
	}

	return false
}

func raiseSubscriptionAlert(ctx context.Context, alerts AlertSink, logger *zap.Logger, tenantID uuid.UUID, alertType billing.AlertType, severity billing.AlertSeverity, message string, metadata map[string]string) bool {
	if alerts == nil {
		return false
	}
	if err := alerts.Raise(ctx, tenantID, alertType, severity, message, metadata); err != nil {
		logger.Warn("Failed to raise billing alert",
			zap.String("tenant_id", tenantID.String()),
			zap.String("alert_type", string(alertType)),
			zap.Error(err))
		return false
	}
	return true
}

// BillingEventDTO represents an inbox row in audit responses
type BillingEventDTO struct {
	ID              uuid.UUID  `json:"id"`
	Provider        string     `json:"provider"`
	ExternalEventID string     `json:"external_event_id"`
	EventType       string     `json:"event_type"`
	Processed       bool       `json:"processed"`
	Outcome         string     `json:"outcome,omitempty"`
	TenantID        *uuid.UUID `json:"tenant_id,omitempty"`
	SubscriptionID  *uuid.UUID `json:"subscription_id,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	EventTimestamp  time.Time  `json:"event_timestamp"`
	ReceivedAt      time.Time  `json:"received_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

func toBillingEventDTO(event *billing.BillingEvent) BillingEventDTO {
	return BillingEventDTO{
		ID:              event.ID,
		Provider:        event.Provider,
		ExternalEventID: event.ExternalEventID,
		EventType:       event.EventType,
		Processed:       event.Processed,
		Outcome:         string(event.Outcome),
		TenantID:        event.TenantID,
		SubscriptionID:  event.SubscriptionID,
		ErrorMessage:    event.ErrorMessage,
		EventTimestamp:  event.EventTimestamp,
		ReceivedAt:      event.ReceivedAt,
		ProcessedAt:     event.ProcessedAt,
	}
}

// ListEvents returns inbox rows for the audit endpoint
func (s *WebhookService) ListEvents(ctx context.Context, filter billing.BillingEventFilter) (*shared.Paginated[BillingEventDTO], error) {
	page, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list billing events", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list billing events")
	}

	dtos := make([]BillingEventDTO, 0, len(page.Items))
	for i := range page.Items {
		dtos = append(dtos, toBillingEventDTO(&page.Items[i]))
	}

	return &shared.Paginated[BillingEventDTO]{
		Items:      dtos,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}
