package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/staffhub/backend/internal/application/identity"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"github.com/staffhub/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// mockTenantRepository is a hand-rolled identity.TenantRepository for handler tests
type mockTenantRepository struct {
	tenant  *identity.Tenant
	byToken *identity.Tenant
	saved   []*identity.Tenant
	saveErr error
}

func (m *mockTenantRepository) FindByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	if m.tenant != nil && m.tenant.ID == id {
		return m.tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockTenantRepository) FindByDomain(_ context.Context, domain string) (*identity.Tenant, error) {
	if m.tenant != nil && m.tenant.Domain == domain {
		return m.tenant, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockTenantRepository) FindByIdempotencyToken(_ context.Context, token string) (*identity.Tenant, error) {
	if m.byToken != nil && m.byToken.IdempotencyToken != nil && *m.byToken.IdempotencyToken == token {
		return m.byToken, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockTenantRepository) FindAll(_ context.Context, _ shared.Filter) ([]identity.Tenant, error) {
	if m.tenant == nil {
		return nil, nil
	}
	return []identity.Tenant{*m.tenant}, nil
}

func (m *mockTenantRepository) FindByStatus(_ context.Context, status identity.TenantStatus, _ shared.Filter) ([]identity.Tenant, error) {
	if m.tenant != nil && m.tenant.Status == status {
		return []identity.Tenant{*m.tenant}, nil
	}
	return nil, nil
}

func (m *mockTenantRepository) FindPendingProvisioning(_ context.Context, _, _ int) ([]identity.Tenant, error) {
	return nil, nil
}

func (m *mockTenantRepository) Save(_ context.Context, tenant *identity.Tenant) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, tenant)
	return nil
}

func (m *mockTenantRepository) Count(_ context.Context, _ shared.Filter) (int64, error) {
	if m.tenant == nil {
		return 0, nil
	}
	return 1, nil
}

func (m *mockTenantRepository) CountByStatus(_ context.Context, status identity.TenantStatus) (int64, error) {
	if m.tenant != nil && m.tenant.Status == status {
		return 1, nil
	}
	return 0, nil
}

func (m *mockTenantRepository) ExistsByDomain(_ context.Context, domain string) (bool, error) {
	return m.tenant != nil && m.tenant.Domain == domain, nil
}

func newTenantTestRouter(repo identity.TenantRepository) *gin.Engine {
	tenantService := appidentity.NewTenantService(repo, nil, zap.NewNop())
	lifecycleService := appidentity.NewLifecycleService(repo, nil, nil, zap.NewNop())
	h := NewTenantHandler(tenantService, lifecycleService)

	router := gin.New()
	router.POST("/api/v1/tenants", h.Register)
	router.GET("/api/v1/tenants/:id/status", h.GetStatus)
	router.GET("/api/v1/admin/tenants/:id", h.Get)
	router.POST("/api/v1/admin/tenants/:id/suspend", h.Suspend)
	router.POST("/api/v1/admin/tenants/:id/resume", h.Resume)
	return router
}

func TestTenantHandler_Register(t *testing.T) {
	repo := &mockTenantRepository{}
	router := newTenantTestRouter(repo)

	body, _ := json.Marshal(RegisterTenantRequest{
		Name:       "Acme Corp",
		Domain:     "acme",
		AdminEmail: "admin@acme.io",
		AdminName:  "Ada",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "tok-1")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, identity.TenantStatusProvisioning, repo.saved[0].Status)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID        uuid.UUID `json:"id"`
			Status    string    `json:"status"`
			StatusURL string    `json:"status_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "provisioning", resp.Data.Status)
	assert.Contains(t, resp.Data.StatusURL, resp.Data.ID.String())
}

func TestTenantHandler_Register_BodyTokenReplay(t *testing.T) {
	token := "tok-body-1"
	existing, err := identity.NewTenant("Acme Corp", "acme", "admin@acme.io", "Ada", &token)
	require.NoError(t, err)
	repo := &mockTenantRepository{byToken: existing}
	router := newTenantTestRouter(repo)

	// No Idempotency-Key header; the token rides in the body.
	body, _ := json.Marshal(RegisterTenantRequest{
		Name:             "Acme Corp",
		AdminEmail:       "admin@acme.io",
		IdempotencyToken: token,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), existing.ID.String())
	// The replay must not create a second tenant.
	assert.Empty(t, repo.saved)
}

func TestTenantHandler_Register_InvalidBody(t *testing.T) {
	router := newTenantTestRouter(&mockTenantRepository{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants",
		bytes.NewReader([]byte(`{"name":""}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantHandler_Register_DomainConflict(t *testing.T) {
	existing, err := identity.NewTenant("Existing", "acme", "admin@acme.io", "", nil)
	require.NoError(t, err)
	router := newTenantTestRouter(&mockTenantRepository{tenant: existing})

	body, _ := json.Marshal(RegisterTenantRequest{
		Name:       "Acme Corp",
		Domain:     "acme",
		AdminEmail: "admin@acme.io",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ALREADY_EXISTS")
}

func TestTenantHandler_GetStatus(t *testing.T) {
	tenant, err := identity.NewTenant("Acme Corp", "acme", "admin@acme.io", "Ada", nil)
	require.NoError(t, err)
	router := newTenantTestRouter(&mockTenantRepository{tenant: tenant})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+tenant.ID.String()+"/status", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "provisioning")
	// The public status view must not leak the admin email
	assert.NotContains(t, rec.Body.String(), "admin@acme.io")
}

func TestTenantHandler_GetStatus_NotFound(t *testing.T) {
	router := newTenantTestRouter(&mockTenantRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/"+uuid.NewString()+"/status", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantHandler_GetStatus_InvalidID(t *testing.T) {
	router := newTenantTestRouter(&mockTenantRepository{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/not-a-uuid/status", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantHandler_Suspend(t *testing.T) {
	tenant, err := identity.NewTenant("Acme Corp", "acme", "admin@acme.io", "Ada", nil)
	require.NoError(t, err)
	require.NoError(t, tenant.MarkProvisioned())
	repo := &mockTenantRepository{tenant: tenant}
	router := newTenantTestRouter(repo)

	body, _ := json.Marshal(SuspendTenantRequest{Reason: "payment failed", GraceDays: 7})
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/admin/tenants/"+tenant.ID.String()+"/suspend", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, identity.TenantStatusSuspended, tenant.Status)
}

func TestTenantHandler_Suspend_InvalidState(t *testing.T) {
	tenant, err := identity.NewTenant("Acme Corp", "acme", "admin@acme.io", "Ada", nil)
	require.NoError(t, err)
	// Still provisioning, cannot be suspended
	router := newTenantTestRouter(&mockTenantRepository{tenant: tenant})

	body, _ := json.Marshal(SuspendTenantRequest{Reason: "payment failed"})
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/admin/tenants/"+tenant.ID.String()+"/suspend", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTenantHandler_Resume_NoOpOnActive(t *testing.T) {
	tenant, err := identity.NewTenant("Acme Corp", "acme", "admin@acme.io", "Ada", nil)
	require.NoError(t, err)
	require.NoError(t, tenant.MarkProvisioned())
	router := newTenantTestRouter(&mockTenantRepository{tenant: tenant})

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/admin/tenants/"+tenant.ID.String()+"/resume", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, identity.TenantStatusActive, tenant.Status)
}
