package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type captureRecorder struct {
	recorded []uuid.UUID
}

func (r *captureRecorder) RecordAPIRequest(_ context.Context, tenantID uuid.UUID) {
	r.recorded = append(r.recorded, tenantID)
}

func TestUsageCounter_CountsResolvedTenant(t *testing.T) {
	tenantID := uuid.New()
	recorder := &captureRecorder{}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(TenantIDKey, tenantID)
		c.Next()
	})
	router.Use(UsageCounter(recorder))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, []uuid.UUID{tenantID}, recorder.recorded)
}

func TestUsageCounter_SkipsUnresolvedRequests(t *testing.T) {
	recorder := &captureRecorder{}

	router := gin.New()
	router.Use(UsageCounter(recorder))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Empty(t, recorder.recorded)
}
