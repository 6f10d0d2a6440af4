package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	domainbilling "github.com/staffhub/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/form"
	"go.uber.org/zap"
)

// mockBackend implements stripe.Backend for testing
type mockBackend struct {
	handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)
}

func (m *mockBackend) Call(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error {
	data, err := m.handler(method, path, params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (m *mockBackend) CallStreaming(method, path, key string, params stripe.ParamsContainer, v stripe.StreamingLastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallRaw(method, path, key string, body *form.Values, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) CallMultipart(method, path, key, boundary string, body *bytes.Buffer, params *stripe.Params, v stripe.LastResponseSetter) error {
	return nil
}

func (m *mockBackend) SetMaxNetworkRetries(maxNetworkRetries int64) {}

// testConfig returns a valid test configuration
func testConfig() *StripeConfig {
	return &StripeConfig{
		SecretKey:       "sk_test_123456789",
		WebhookSecret:   "whsec_test_123456789",
		IsTestMode:      true,
		DefaultCurrency: "usd",
	}
}

// testLogger returns a no-op logger for testing
func testLogger() *zap.Logger {
	return zap.NewNop()
}

// setupMockBackend sets up a mock Stripe backend for testing
func setupMockBackend(handler func(method, path string, params stripe.ParamsContainer) ([]byte, error)) func() {
	mock := &mockBackend{handler: handler}
	stripe.SetBackend(stripe.APIBackend, mock)
	return func() {
		stripe.SetBackend(stripe.APIBackend, nil)
	}
}

func TestNewStripeAdapter_Success(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())

	require.NoError(t, err)
	assert.NotNil(t, adapter)
}

func TestNewStripeAdapter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      *StripeConfig
		expectedErr string
	}{
		{
			name: "missing secret key",
			config: &StripeConfig{
				IsTestMode:      true,
				DefaultCurrency: "usd",
			},
			expectedErr: "secret key is required",
		},
		{
			name: "test mode with live key",
			config: &StripeConfig{
				SecretKey:       "sk_live_123456789",
				IsTestMode:      true,
				DefaultCurrency: "usd",
			},
			expectedErr: "test mode enabled but secret key is not a test key",
		},
		{
			name: "live mode with test key",
			config: &StripeConfig{
				SecretKey:       "sk_test_123456789",
				IsTestMode:      false,
				DefaultCurrency: "usd",
			},
			expectedErr: "live mode enabled but secret key is not a live key",
		},
		{
			name: "missing currency",
			config: &StripeConfig{
				SecretKey:  "sk_test_123456789",
				IsTestMode: true,
			},
			expectedErr: "default currency is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewStripeAdapter(tt.config, testLogger())

			assert.Error(t, err)
			assert.Nil(t, adapter)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestCreateCustomer_Success(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/customers" {
			return json.Marshal(&stripe.Customer{
				ID:      "cus_test123",
				Email:   "admin@acme.io",
				Name:    "Acme Corp",
				Created: time.Now().Unix(),
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	output, err := adapter.CreateCustomer(context.Background(), CreateCustomerInput{
		TenantID:    uuid.New(),
		Email:       "admin@acme.io",
		Name:        "Acme Corp",
		Description: "StaffHub tenant acme",
	})

	require.NoError(t, err)
	assert.Equal(t, "cus_test123", output.CustomerID)
	assert.Equal(t, "admin@acme.io", output.Email)
	assert.Equal(t, "Acme Corp", output.Name)
}

func TestCreateCustomer_StripeError(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, fmt.Errorf("api connection failed")
	})
	defer cleanup()

	output, err := adapter.CreateCustomer(context.Background(), CreateCustomerInput{
		TenantID: uuid.New(),
		Email:    "admin@acme.io",
		Name:     "Acme Corp",
	})

	assert.Error(t, err)
	assert.Nil(t, output)
	assert.Contains(t, err.Error(), "failed to create customer")
}

func TestGetCustomer_Success(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "GET" && path == "/v1/customers/cus_test123" {
			return json.Marshal(&stripe.Customer{
				ID:      "cus_test123",
				Email:   "admin@acme.io",
				Name:    "Acme Corp",
				Created: time.Now().Unix(),
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	output, err := adapter.GetCustomer(context.Background(), "cus_test123")

	require.NoError(t, err)
	assert.Equal(t, "cus_test123", output.CustomerID)
}

func TestCancelSubscription_Immediately(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	now := time.Now()

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "DELETE" && path == "/v1/subscriptions/sub_test123" {
			return json.Marshal(&stripe.Subscription{
				ID:               "sub_test123",
				Customer:         &stripe.Customer{ID: "cus_test123"},
				Status:           stripe.SubscriptionStatusCanceled,
				CurrentPeriodEnd: now.Add(30 * 24 * time.Hour).Unix(),
				CanceledAt:       now.Unix(),
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	output, err := adapter.CancelSubscription(context.Background(), CancelSubscriptionInput{
		TenantID:          uuid.New(),
		SubscriptionID:    "sub_test123",
		CancelAtPeriodEnd: false,
		Reason:            "Tenant canceled",
	})

	require.NoError(t, err)
	assert.Equal(t, "sub_test123", output.SubscriptionID)
	assert.Equal(t, domainbilling.SubscriptionStatusCanceled, output.Status)
	assert.NotNil(t, output.CanceledAt)
	assert.False(t, output.CancelAtPeriodEnd)
}

func TestCancelSubscription_AtPeriodEnd(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	periodEnd := time.Now().Add(30 * 24 * time.Hour)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "POST" && path == "/v1/subscriptions/sub_test123" {
			return json.Marshal(&stripe.Subscription{
				ID:                "sub_test123",
				Customer:          &stripe.Customer{ID: "cus_test123"},
				Status:            stripe.SubscriptionStatusActive,
				CurrentPeriodEnd:  periodEnd.Unix(),
				CancelAtPeriodEnd: true,
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	output, err := adapter.CancelSubscription(context.Background(), CancelSubscriptionInput{
		TenantID:          uuid.New(),
		SubscriptionID:    "sub_test123",
		CancelAtPeriodEnd: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domainbilling.SubscriptionStatusActive, output.Status)
	assert.True(t, output.CancelAtPeriodEnd)
	assert.Nil(t, output.CanceledAt)
}

func TestFetchSubscription_Success(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	periodEnd := time.Now().Add(14 * 24 * time.Hour)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "GET" && path == "/v1/subscriptions/sub_test123" {
			return json.Marshal(&stripe.Subscription{
				ID:               "sub_test123",
				Customer:         &stripe.Customer{ID: "cus_test123"},
				Status:           stripe.SubscriptionStatusPastDue,
				CurrentPeriodEnd: periodEnd.Unix(),
				Metadata:         map[string]string{"plan": "team"},
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	snapshot, err := adapter.FetchSubscription(context.Background(), "sub_test123")

	require.NoError(t, err)
	assert.Equal(t, "sub_test123", snapshot.SubscriptionID)
	assert.Equal(t, "cus_test123", snapshot.CustomerID)
	assert.Equal(t, domainbilling.SubscriptionStatusPastDue, snapshot.Status)
	assert.Equal(t, "team", snapshot.Plan)
	require.NotNil(t, snapshot.CurrentPeriodEnd)
	assert.Equal(t, periodEnd.Unix(), snapshot.CurrentPeriodEnd.Unix())
	assert.False(t, snapshot.ObservedAt.IsZero())
}

func TestFetchSubscription_PlanFallsBackToPriceNickname(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		if method == "GET" && path == "/v1/subscriptions/sub_test123" {
			return json.Marshal(&stripe.Subscription{
				ID:       "sub_test123",
				Customer: &stripe.Customer{ID: "cus_test123"},
				Status:   stripe.SubscriptionStatusActive,
				Items: &stripe.SubscriptionItemList{
					Data: []*stripe.SubscriptionItem{
						{Price: &stripe.Price{ID: "price_team_monthly", Nickname: "team"}},
					},
				},
			})
		}
		return nil, fmt.Errorf("unexpected call: %s %s", method, path)
	})
	defer cleanup()

	snapshot, err := adapter.FetchSubscription(context.Background(), "sub_test123")

	require.NoError(t, err)
	assert.Equal(t, "team", snapshot.Plan)
}

func TestFetchSubscription_Error(t *testing.T) {
	adapter, err := NewStripeAdapter(testConfig(), testLogger())
	require.NoError(t, err)

	cleanup := setupMockBackend(func(method, path string, params stripe.ParamsContainer) ([]byte, error) {
		return nil, fmt.Errorf("no such subscription")
	})
	defer cleanup()

	snapshot, err := adapter.FetchSubscription(context.Background(), "sub_missing")

	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "failed to fetch subscription")
}

func TestMapStripeSubscriptionStatus(t *testing.T) {
	tests := []struct {
		stripeStatus stripe.SubscriptionStatus
		expected     domainbilling.SubscriptionStatus
	}{
		{stripe.SubscriptionStatusActive, domainbilling.SubscriptionStatusActive},
		{stripe.SubscriptionStatusTrialing, domainbilling.SubscriptionStatusTrialing},
		{stripe.SubscriptionStatusPastDue, domainbilling.SubscriptionStatusPastDue},
		{stripe.SubscriptionStatusCanceled, domainbilling.SubscriptionStatusCanceled},
		{stripe.SubscriptionStatusIncomplete, domainbilling.SubscriptionStatusIncomplete},
		{stripe.SubscriptionStatusIncompleteExpired, domainbilling.SubscriptionStatusCanceled},
		{stripe.SubscriptionStatusUnpaid, domainbilling.SubscriptionStatusUnpaid},
		{stripe.SubscriptionStatusPaused, domainbilling.SubscriptionStatusUnpaid},
	}

	for _, tt := range tests {
		t.Run(string(tt.stripeStatus), func(t *testing.T) {
			assert.Equal(t, tt.expected, MapSubscriptionStatus(tt.stripeStatus))
		})
	}
}

func TestStripeConfig_Validate(t *testing.T) {
	valid := testConfig()
	assert.NoError(t, valid.Validate())

	missing := &StripeConfig{DefaultCurrency: "usd"}
	assert.Error(t, missing.Validate())
}
