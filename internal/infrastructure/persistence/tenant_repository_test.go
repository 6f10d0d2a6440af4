package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/staffhub/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTenantTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.TenantModel{})
	require.NoError(t, err)

	return db
}

func newProvisioningTenant(t *testing.T, name, domain string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(name, domain, "admin@"+domain, "Admin", nil)
	require.NoError(t, err)
	return tenant
}

func TestGormTenantRepository_SaveAndFind(t *testing.T) {
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	tenant := newProvisioningTenant(t, "Acme Corp", "acme.example.com")
	require.NoError(t, repo.Save(ctx, tenant))

	t.Run("finds by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", found.Name)
		assert.Equal(t, identity.TenantStatusProvisioning, found.Status)
		assert.Equal(t, "admin@acme.example.com", found.AdminEmail)
	})

	t.Run("finds by domain case-insensitively", func(t *testing.T) {
		found, err := repo.FindByDomain(ctx, "ACME.example.com")
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, found.ID)
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("persists status transitions", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		require.NoError(t, found.MarkProvisioned())
		require.NoError(t, repo.Save(ctx, found))

		reloaded, err := repo.FindByID(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, identity.TenantStatusActive, reloaded.Status)
		assert.NotNil(t, reloaded.ProvisionedAt)
		assert.True(t, reloaded.SubscriptionActive)
	})
}

func TestGormTenantRepository_FindByIdempotencyToken(t *testing.T) {
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	token := "client-token-1"
	tenant, err := identity.NewTenant("Tokened", "tokened.example.com", "admin@tokened.example.com", "Admin", &token)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tenant))

	t.Run("finds the original creation", func(t *testing.T) {
		found, err := repo.FindByIdempotencyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, found.ID)
	})

	t.Run("empty token is not found", func(t *testing.T) {
		_, err := repo.FindByIdempotencyToken(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate token is rejected by the unique index", func(t *testing.T) {
		dup, err := identity.NewTenant("Other", "other.example.com", "admin@other.example.com", "Admin", &token)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})
}

func TestGormTenantRepository_FindPendingProvisioning(t *testing.T) {
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	first := newProvisioningTenant(t, "First", "first.example.com")
	require.NoError(t, repo.Save(ctx, first))

	second := newProvisioningTenant(t, "Second", "second.example.com")
	second.CreatedAt = second.CreatedAt.Add(1) // force a stable order on fast machines
	require.NoError(t, repo.Save(ctx, second))

	exhausted := newProvisioningTenant(t, "Exhausted", "exhausted.example.com")
	for i := 0; i < 5; i++ {
		require.NoError(t, exhausted.RecordProvisioningFailure("transient"))
	}
	require.NoError(t, repo.Save(ctx, exhausted))

	active := newProvisioningTenant(t, "Done", "done.example.com")
	require.NoError(t, active.MarkProvisioned())
	require.NoError(t, repo.Save(ctx, active))

	t.Run("returns only retryable provisioning tenants oldest first", func(t *testing.T) {
		pending, err := repo.FindPendingProvisioning(ctx, 5, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, first.ID, pending[0].ID)
		assert.Equal(t, second.ID, pending[1].ID)
	})

	t.Run("respects the limit", func(t *testing.T) {
		pending, err := repo.FindPendingProvisioning(ctx, 5, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, first.ID, pending[0].ID)
	})

	t.Run("higher attempt bound includes the exhausted tenant", func(t *testing.T) {
		pending, err := repo.FindPendingProvisioning(ctx, 6, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 3)
	})
}

func TestGormTenantRepository_Counts(t *testing.T) {
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	provisioning := newProvisioningTenant(t, "P1", "p1.example.com")
	require.NoError(t, repo.Save(ctx, provisioning))

	activated := newProvisioningTenant(t, "A1", "a1.example.com")
	require.NoError(t, activated.MarkProvisioned())
	require.NoError(t, repo.Save(ctx, activated))

	count, err := repo.CountByStatus(ctx, identity.TenantStatusProvisioning)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	total, err := repo.Count(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	exists, err := repo.ExistsByDomain(ctx, "A1.example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByDomain(ctx, "missing.example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormTenantRepository_FindByStatus(t *testing.T) {
	db := setupTenantTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := context.Background()

	suspended := newProvisioningTenant(t, "Suspended Co", "suspended.example.com")
	require.NoError(t, suspended.MarkProvisioned())
	require.NoError(t, suspended.Suspend("payment failed", nil))
	require.NoError(t, repo.Save(ctx, suspended))

	other := newProvisioningTenant(t, "Other Co", "otherco.example.com")
	require.NoError(t, repo.Save(ctx, other))

	found, err := repo.FindByStatus(ctx, identity.TenantStatusSuspended, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, suspended.ID, found[0].ID)
	require.NotNil(t, found[0].SuspensionReason)
	assert.Equal(t, "payment failed", *found[0].SuspensionReason)
}
