package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/staffhub/backend/internal/application/billing"
	"github.com/staffhub/backend/internal/domain/billing"
	"github.com/staffhub/backend/internal/interfaces/http/dto"
	"github.com/staffhub/backend/internal/interfaces/http/middleware"
)

// BillingHandler handles webhook ingestion, the billing event inbox,
// reconciliation and alerts
type BillingHandler struct {
	BaseHandler
	webhookService        *appbilling.WebhookService
	reconciliationService *appbilling.ReconciliationService
	alertService          *appbilling.AlertService
	usageService          *appbilling.UsageService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	webhookService *appbilling.WebhookService,
	reconciliationService *appbilling.ReconciliationService,
	alertService *appbilling.AlertService,
	usageService *appbilling.UsageService,
) *BillingHandler {
	return &BillingHandler{
		webhookService:        webhookService,
		reconciliationService: reconciliationService,
		alertService:          alertService,
		usageService:          usageService,
	}
}

// Webhook ingests one billing provider webhook. The response only
// communicates durable receipt; interpretation failures after the event is
// stored still return 200 and are retried by the sweep.
func (h *BillingHandler) Webhook(c *gin.Context) {
	provider := c.Param("provider")

	payload, err := c.GetRawData()
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		signature = c.GetHeader("X-Webhook-Signature")
	}

	result, err := h.webhookService.HandleWebhook(c.Request.Context(), provider, payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListEventsRequest holds inbox query parameters
type ListEventsRequest struct {
	Processed *bool  `form:"processed"`
	TenantID  string `form:"tenant_id" binding:"omitempty,uuid"`
	EventType string `form:"event_type"`
	Since     string `form:"since"`
	Until     string `form:"until"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// ListEvents returns a filtered page of the billing event inbox
func (h *BillingHandler) ListEvents(c *gin.Context) {
	var req ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := billing.BillingEventFilter{
		Processed: req.Processed,
		EventType: req.EventType,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.TenantID != "" {
		id, err := uuid.Parse(req.TenantID)
		if err != nil {
			h.BadRequest(c, "Invalid tenant_id")
			return
		}
		filter.TenantID = &id
	}
	if req.Since != "" {
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			h.BadRequest(c, "Invalid since timestamp, expected RFC3339")
			return
		}
		filter.Since = &since
	}
	if req.Until != "" {
		until, err := time.Parse(time.RFC3339, req.Until)
		if err != nil {
			h.BadRequest(c, "Invalid until timestamp, expected RFC3339")
			return
		}
		filter.Until = &until
	}

	result, err := h.webhookService.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Reconcile triggers one reconciliation sweep and returns its counters
func (h *BillingHandler) Reconcile(c *gin.Context) {
	result, err := h.reconciliationService.Sweep(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListAlerts returns the active alerts for the resolved tenant
func (h *BillingHandler) ListAlerts(c *gin.Context) {
	tenantID, ok := middleware.MustGetTenantUUID(c)
	if !ok {
		return
	}

	alerts, err := h.alertService.ListActive(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alerts)
}

// AcknowledgeAlert marks an alert as acknowledged
func (h *BillingHandler) AcknowledgeAlert(c *gin.Context) {
	id, ok := h.parseAlertID(c)
	if !ok {
		return
	}

	alert, err := h.alertService.Acknowledge(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alert)
}

// ResolveAlert marks an alert as resolved
func (h *BillingHandler) ResolveAlert(c *gin.Context) {
	id, ok := h.parseAlertID(c)
	if !ok {
		return
	}

	alert, err := h.alertService.Resolve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alert)
}

// GetUsage returns the usage counters for the resolved tenant
func (h *BillingHandler) GetUsage(c *gin.Context) {
	tenantID, ok := middleware.MustGetTenantUUID(c)
	if !ok {
		return
	}

	usage, err := h.usageService.GetUsage(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, usage)
}

func (h *BillingHandler) parseAlertID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return uuid.Nil, false
	}
	return id, true
}
