package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/staffhub/backend/internal/domain/billing"
	infraBilling "github.com/staffhub/backend/internal/infrastructure/billing"
)

// stubEventProcessor marks every event with a fixed outcome, or fails
type stubEventProcessor struct {
	outcome billing.EventOutcome
	err     error
	calls   int
}

func (p *stubEventProcessor) ProcessStored(_ context.Context, event *billing.BillingEvent) error {
	p.calls++
	if p.err != nil {
		event.MarkFailed(p.err.Error())
		return p.err
	}
	event.MarkProcessed(p.outcome)
	return nil
}

type sweepFixture struct {
	events        *MockBillingEventRepository
	subscriptions *MockSubscriptionRepository
	fetcher       *MockSubscriptionFetcher
	processor     *stubEventProcessor
	lifecycle     *MockTenantLifecycle
	alerts        *MockAlertSink
	service       *ReconciliationService
}

func newSweepFixture(processor *stubEventProcessor) *sweepFixture {
	f := &sweepFixture{
		events:        new(MockBillingEventRepository),
		subscriptions: new(MockSubscriptionRepository),
		fetcher:       new(MockSubscriptionFetcher),
		processor:     processor,
		lifecycle:     new(MockTenantLifecycle),
		alerts:        new(MockAlertSink),
	}
	f.service = NewReconciliationService(
		f.events, f.subscriptions, f.fetcher, processor, f.lifecycle, f.alerts,
		zap.NewNop(), ReconciliationConfig{StaleWindow: time.Hour, BatchSize: 50, GracePeriodDays: 7})
	return f
}

func staleSubscription(t *testing.T, status billing.SubscriptionStatus) *billing.Subscription {
	t.Helper()
	sub, err := billing.NewSubscription(uuid.New(), "team", status, billing.BillingPeriodMonthly)
	require.NoError(t, err)
	sub.LinkProvider("cus_1", "sub_1")
	past := time.Now().Add(-2 * time.Hour)
	sub.LastEventAt = &past
	return sub
}

func TestSweep_RetriesUnprocessedEvents(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{outcome: billing.EventOutcomeApplied})

	event, err := billing.NewBillingEvent("stripe", "evt_retry_1", "invoice.paid",
		[]byte(`{}`), "sig", time.Now())
	require.NoError(t, err)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{*event}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{}, nil)

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Corrected)
	assert.Equal(t, 1, f.processor.calls)
}

func TestSweep_RetryFailureCounted(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{err: errors.New("still broken")})

	event, err := billing.NewBillingEvent("stripe", "evt_retry_2", "invoice.paid",
		[]byte(`{}`), "sig", time.Now())
	require.NoError(t, err)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{*event}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{}, nil)

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, result.Corrected)
}

func TestSweep_CorrectsDriftedSubscription(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{outcome: billing.EventOutcomeApplied})
	sub := staleSubscription(t, billing.SubscriptionStatusActive)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{*sub}, nil)
	f.fetcher.On("FetchSubscription", ctx, "sub_1").Return(&infraBilling.SubscriptionSnapshot{
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		Status:         billing.SubscriptionStatusPastDue,
		Plan:           "team",
		ObservedAt:     time.Now(),
	}, nil)
	f.subscriptions.On("Save", ctx, mock.MatchedBy(func(saved *billing.Subscription) bool {
		return saved.Status == billing.SubscriptionStatusPastDue
	})).Return(nil)
	f.lifecycle.On("Suspend", ctx, sub.TenantID, "payment failed", 7).Return(nil)
	f.alerts.On("Raise", ctx, sub.TenantID, billing.AlertTypePaymentFailure, billing.AlertSeverityCritical,
		mock.AnythingOfType("string"), mock.Anything).Return(nil)

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Discrepant)
	assert.Equal(t, 1, result.Corrected)
	assert.Equal(t, 1, result.Alerted)
	f.lifecycle.AssertExpectations(t)
}

func TestSweep_CurrentSubscriptionNotCounted(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{outcome: billing.EventOutcomeApplied})
	sub := staleSubscription(t, billing.SubscriptionStatusActive)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{*sub}, nil)
	f.fetcher.On("FetchSubscription", ctx, "sub_1").Return(&infraBilling.SubscriptionSnapshot{
		SubscriptionID: "sub_1",
		Status:         billing.SubscriptionStatusActive,
		Plan:           "team",
		ObservedAt:     time.Now(),
	}, nil)
	f.subscriptions.On("Save", ctx, mock.AnythingOfType("*billing.Subscription")).Return(nil)

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Zero(t, result.Discrepant)
	assert.Zero(t, result.Corrected)
	f.lifecycle.AssertNotCalled(t, "Suspend", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.lifecycle.AssertNotCalled(t, "Activate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_FetchFailureCounted(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{outcome: billing.EventOutcomeApplied})
	sub := staleSubscription(t, billing.SubscriptionStatusActive)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{*sub}, nil)
	f.fetcher.On("FetchSubscription", ctx, "sub_1").Return(nil, errors.New("stripe unavailable"))

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	f.subscriptions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSweep_SkipsUnlinkedSubscription(t *testing.T) {
	ctx := context.Background()
	f := newSweepFixture(&stubEventProcessor{outcome: billing.EventOutcomeApplied})

	sub, err := billing.NewSubscription(uuid.New(), "team", billing.SubscriptionStatusIncomplete, billing.BillingPeriodMonthly)
	require.NoError(t, err)

	f.events.On("FindUnprocessed", ctx, 50).Return([]billing.BillingEvent{}, nil)
	f.subscriptions.On("FindStale", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]billing.Subscription{*sub}, nil)

	result, err := f.service.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	f.fetcher.AssertNotCalled(t, "FetchSubscription", mock.Anything, mock.Anything)
}
