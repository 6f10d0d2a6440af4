package identity

import (
	"context"
	"testing"

	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLifecycleService_Suspend(t *testing.T) {
	ctx := context.Background()

	t.Run("suspends an active tenant and raises an alert", func(t *testing.T) {
		repo := new(MockTenantRepository)
		alerts := new(MockAlertSink)
		service := NewLifecycleService(repo, alerts, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		repo.On("Save", ctx, tenant).Return(nil)
		alerts.On("Raise", ctx, tenant.ID, billing.AlertTypeSuspension, billing.AlertSeverityWarning,
			mock.AnythingOfType("string"), mock.Anything).Return(nil)

		err := service.Suspend(ctx, tenant.ID, "payment failed", 7)

		require.NoError(t, err)
		assert.Equal(t, identity.TenantStatusSuspended, tenant.Status)
		assert.False(t, tenant.SubscriptionActive)
		require.NotNil(t, tenant.GracePeriodEndsAt)
		alerts.AssertExpectations(t)
	})

	t.Run("suspending a suspended tenant is a no-op success", func(t *testing.T) {
		repo := new(MockTenantRepository)
		alerts := new(MockAlertSink)
		service := NewLifecycleService(repo, alerts, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		require.NoError(t, tenant.Suspend("earlier", nil))
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		err := service.Suspend(ctx, tenant.ID, "again", 7)

		require.NoError(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		alerts.AssertNotCalled(t, "Raise", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("suspending a provisioning tenant is rejected", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant, err := identity.NewTenant("acme", "", "admin@acme.io", "", nil)
		require.NoError(t, err)
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		err = service.Suspend(ctx, tenant.ID, "reason", 0)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestLifecycleService_Resume(t *testing.T) {
	ctx := context.Background()

	t.Run("resumes a suspended tenant", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		require.NoError(t, tenant.Suspend("payment failed", graceDeadline(7)))
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		repo.On("Save", ctx, tenant).Return(nil)

		err := service.Resume(ctx, tenant.ID)

		require.NoError(t, err)
		assert.Equal(t, identity.TenantStatusActive, tenant.Status)
		assert.True(t, tenant.SubscriptionActive)
		assert.Nil(t, tenant.SuspensionReason)
		assert.Nil(t, tenant.GracePeriodEndsAt)
	})

	t.Run("resuming an active tenant is a no-op success", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		require.NoError(t, service.Resume(ctx, tenant.ID))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("resuming a canceled tenant is rejected", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		require.NoError(t, tenant.Cancel())
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

		assert.ErrorIs(t, service.Resume(ctx, tenant.ID), shared.ErrInvalidState)
	})
}

func TestLifecycleService_Activate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockTenantRepository)
	service := NewLifecycleService(repo, nil, nil, zap.NewNop())

	tenant := newActiveTenant("acme")
	require.NoError(t, tenant.Suspend("payment failed", nil))
	repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
	repo.On("Save", ctx, tenant).Return(nil)

	err := service.Activate(ctx, tenant.ID, "cus_123")

	require.NoError(t, err)
	assert.Equal(t, identity.TenantStatusActive, tenant.Status)
	assert.Equal(t, "cus_123", tenant.ExternalBillingRef)
}

func TestLifecycleService_CancelAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel is idempotent", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		repo.On("Save", ctx, tenant).Return(nil).Once()

		require.NoError(t, service.Cancel(ctx, tenant.ID))
		require.NoError(t, service.Cancel(ctx, tenant.ID))
		assert.Equal(t, identity.TenantStatusCanceled, tenant.Status)
		repo.AssertExpectations(t)
	})

	t.Run("delete soft-deletes from any non-deleted status", func(t *testing.T) {
		repo := new(MockTenantRepository)
		service := NewLifecycleService(repo, nil, nil, zap.NewNop())

		tenant := newActiveTenant("acme")
		require.NoError(t, tenant.Cancel())
		repo.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
		repo.On("Save", ctx, tenant).Return(nil).Once()

		require.NoError(t, service.Delete(ctx, tenant.ID))
		require.NoError(t, service.Delete(ctx, tenant.ID))
		assert.Equal(t, identity.TenantStatusDeleted, tenant.Status)
		require.NotNil(t, tenant.DeletedAt)
		repo.AssertExpectations(t)
	})
}
