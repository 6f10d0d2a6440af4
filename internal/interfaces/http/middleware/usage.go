package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UsageRecorder counts API traffic per tenant
type UsageRecorder interface {
	RecordAPIRequest(ctx context.Context, tenantID uuid.UUID)
}

// UsageCounter records one API request per tenant-scoped call. Requests that
// never resolved to a tenant are not counted.
func UsageCounter(recorder UsageRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if tenantID := GetTenantUUID(c); tenantID != uuid.Nil {
			recorder.RecordAPIRequest(c.Request.Context(), tenantID)
		}
	}
}
