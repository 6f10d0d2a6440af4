package billing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/staffhub/backend/internal/domain/billing"
	infraBilling "github.com/staffhub/backend/internal/infrastructure/billing"
	"github.com/staffhub/backend/internal/infrastructure/scheduler"
)

// SubscriptionFetcher fetches the provider's authoritative subscription
// record. Implemented by the Stripe adapter.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*infraBilling.SubscriptionSnapshot, error)
}

// StoredEventProcessor retries inbox rows whose first processing attempt
// failed. Implemented by WebhookService.
type StoredEventProcessor interface {
	ProcessStored(ctx context.Context, event *billing.BillingEvent) error
}

// ReconciliationConfig bounds the drift-correction sweep
type ReconciliationConfig struct {
	// StaleWindow is how long a subscription may go without an applied event
	// before the sweep checks it against the provider
	StaleWindow time.Duration

	// BatchSize caps rows handled per sweep, for both inbox retries and
	// stale subscriptions
	BatchSize int

	// GracePeriodDays is the grace period granted on payment failure
	GracePeriodDays int
}

// DefaultReconciliationConfig returns default sweep bounds
func DefaultReconciliationConfig() ReconciliationConfig {
	return ReconciliationConfig{
		StaleWindow:     24 * time.Hour,
		BatchSize:       100,
		GracePeriodDays: 7,
	}
}

// ReconciliationService is the safety net under webhook delivery. Webhooks
// are at-least-once but not guaranteed; the sweep retries failed inbox rows
// and compares subscriptions that have gone quiet against the provider's
// authoritative records, correcting any drift through the same lifecycle
// transitions the webhook path uses.
type ReconciliationService struct {
	eventRepo        billing.BillingEventRepository
	subscriptionRepo billing.SubscriptionRepository
	provider         SubscriptionFetcher
	events           StoredEventProcessor
	lifecycle        TenantLifecycle
	alerts           AlertSink
	logger           *zap.Logger
	config           ReconciliationConfig
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	eventRepo billing.BillingEventRepository,
	subscriptionRepo billing.SubscriptionRepository,
	provider SubscriptionFetcher,
	events StoredEventProcessor,
	lifecycle TenantLifecycle,
	alerts AlertSink,
	logger *zap.Logger,
	config ReconciliationConfig,
) *ReconciliationService {
	if config.StaleWindow <= 0 {
		config.StaleWindow = DefaultReconciliationConfig().StaleWindow
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReconciliationConfig().BatchSize
	}
	if config.GracePeriodDays <= 0 {
		config.GracePeriodDays = DefaultReconciliationConfig().GracePeriodDays
	}
	return &ReconciliationService{
		eventRepo:        eventRepo,
		subscriptionRepo: subscriptionRepo,
		provider:         provider,
		events:           events,
		lifecycle:        lifecycle,
		alerts:           alerts,
		logger:           logger,
		config:           config,
	}
}

// Sweep runs one drift-correction pass: retry unprocessed inbox rows, then
// check stale subscriptions against the provider.
func (s *ReconciliationService) Sweep(ctx context.Context) (scheduler.SweepResult, error) {
	var result scheduler.SweepResult

	if err := s.retryUnprocessed(ctx, &result); err != nil {
		return result, err
	}
	if err := s.correctStale(ctx, &result); err != nil {
		return result, err
	}

	return result, nil
}

// retryUnprocessed re-runs inbox rows left behind by failed processing
func (s *ReconciliationService) retryUnprocessed(ctx context.Context, result *scheduler.SweepResult) error {
	events, err := s.eventRepo.FindUnprocessed(ctx, s.config.BatchSize)
	if err != nil {
		return err
	}

	for i := range events {
		event := &events[i]
		result.Checked++

		if err := s.events.ProcessStored(ctx, event); err != nil {
			result.Failed++
			continue
		}
		if event.Outcome == billing.EventOutcomeApplied {
			result.Corrected++
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// correctStale fetches the provider's record for every subscription that has
// not seen an applied event within the stale window, and applies it.
func (s *ReconciliationService) correctStale(ctx context.Context, result *scheduler.SweepResult) error {
	if s.provider == nil {
		// No provider credentials configured; inbox retries still ran.
		return nil
	}

	cutoff := time.Now().Add(-s.config.StaleWindow)
	subscriptions, err := s.subscriptionRepo.FindStale(ctx, cutoff, s.config.BatchSize)
	if err != nil {
		return err
	}

	for i := range subscriptions {
		sub := &subscriptions[i]
		result.Checked++

		if sub.StripeSubscriptionID == "" {
			// Never linked to the provider; nothing to compare against.
			continue
		}

		snapshot, err := s.provider.FetchSubscription(ctx, sub.StripeSubscriptionID)
		if err != nil {
			s.logger.Warn("Failed to fetch provider subscription",
				zap.String("subscription_id", sub.StripeSubscriptionID),
				zap.Error(err))
			result.Failed++
			continue
		}

		statusBefore := sub.Status
		if snapshot.Status != statusBefore {
			result.Discrepant++
		}

		applied, err := sub.ApplyProviderState(snapshot.State(), snapshot.ObservedAt)
		if err != nil {
			s.logger.Warn("Failed to apply provider state",
				zap.String("subscription_id", sub.StripeSubscriptionID),
				zap.Error(err))
			result.Failed++
			continue
		}

		if !applied {
			// Already current; push it out of the stale window.
			sub.UpdatedAt = time.Now()
		}
		if err := s.subscriptionRepo.Save(ctx, sub); err != nil {
			s.logger.Error("Failed to save reconciled subscription",
				zap.String("subscription_id", sub.StripeSubscriptionID),
				zap.Error(err))
			result.Failed++
			continue
		}

		if applied && sub.Status != statusBefore {
			result.Corrected++
			s.logger.Info("Corrected subscription drift",
				zap.String("subscription_id", sub.StripeSubscriptionID),
				zap.String("from", string(statusBefore)),
				zap.String("to", string(sub.Status)))
			if driveTenantForStatus(ctx, s.lifecycle, s.alerts, s.logger, sub, s.config.GracePeriodDays) {
				result.Alerted++
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}
