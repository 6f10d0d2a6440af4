package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/staffhub/backend/internal/application/identity"
	"github.com/staffhub/backend/internal/interfaces/http/dto"
	"github.com/staffhub/backend/internal/interfaces/http/middleware"
)

// TenantHandler handles tenant registration, status polling and admin
// lifecycle operations
type TenantHandler struct {
	BaseHandler
	tenantService    *appidentity.TenantService
	lifecycleService *appidentity.LifecycleService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(
	tenantService *appidentity.TenantService,
	lifecycleService *appidentity.LifecycleService,
) *TenantHandler {
	return &TenantHandler{
		tenantService:    tenantService,
		lifecycleService: lifecycleService,
	}
}

// RegisterTenantRequest is the self-service signup payload
type RegisterTenantRequest struct {
	Name             string `json:"name" binding:"required,max=200"`
	Domain           string `json:"domain" binding:"omitempty,subdomain,max=100"`
	AdminEmail       string `json:"admin_email" binding:"required,email"`
	AdminName        string `json:"admin_name" binding:"omitempty,max=200"`
	IdempotencyToken string `json:"idempotency_token" binding:"omitempty,max=200"`
}

// Register accepts a tenant signup and queues it for provisioning. A replay
// carrying the same idempotency token, whether in the Idempotency-Key header
// or the body, returns the already-accepted tenant.
func (h *TenantHandler) Register(c *gin.Context) {
	var req RegisterTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	token := c.GetHeader("Idempotency-Key")
	if token == "" {
		token = req.IdempotencyToken
	}

	result, err := h.tenantService.Register(c.Request.Context(), appidentity.RegisterTenantInput{
		Name:             req.Name,
		Domain:           req.Domain,
		AdminEmail:       req.AdminEmail,
		AdminName:        req.AdminName,
		IdempotencyToken: token,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, gin.H{
		"id":         result.ID,
		"status":     result.Status,
		"status_url": fmt.Sprintf("/api/v1/tenants/%s/status", result.ID),
	})
}

// GetStatus returns the public provisioning-status view of a tenant
func (h *TenantHandler) GetStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	status, err := h.tenantService.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// Get returns the full tenant record
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// ListTenantsRequest holds list query parameters
type ListTenantsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status" binding:"omitempty,oneof=provisioning active suspended canceled failed deleted"`
	Search   string `form:"search"`
}

// List returns a paginated tenant list
func (h *TenantHandler) List(c *gin.Context) {
	var req ListTenantsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.tenantService.List(c.Request.Context(), appidentity.TenantFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   req.Status,
		Keyword:  req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Tenants, result.Total, result.Page, result.PageSize)
}

// Stats returns tenant counts per lifecycle status
func (h *TenantHandler) Stats(c *gin.Context) {
	stats, err := h.tenantService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// SuspendTenantRequest is the payload for an operator-initiated suspension
type SuspendTenantRequest struct {
	Reason    string `json:"reason" binding:"required,max=500"`
	GraceDays int    `json:"grace_days" binding:"omitempty,min=0,max=90"`
}

// Suspend suspends an active tenant
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req SuspendTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.lifecycleService.Suspend(c.Request.Context(), id, req.Reason, req.GraceDays); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Resume resumes a suspended tenant
func (h *TenantHandler) Resume(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.lifecycleService.Resume(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Cancel cancels a tenant's subscription
func (h *TenantHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.lifecycleService.Cancel(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Delete soft-deletes a tenant
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.lifecycleService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *TenantHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return id, true
}
