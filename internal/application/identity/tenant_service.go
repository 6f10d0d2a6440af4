package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService handles tenant registration and queries
type TenantService struct {
	tenantRepo identity.TenantRepository
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterTenantInput contains input for registering a tenant
type RegisterTenantInput struct {
	Name             string
	Domain           string
	AdminEmail       string
	AdminName        string
	IdempotencyToken string
}

// Register accepts a new tenant and queues it for provisioning. Registration
// is idempotent on the client-supplied token: replaying the same token
// returns the already-accepted tenant instead of creating a second one.
func (s *TenantService) Register(ctx context.Context, input RegisterTenantInput) (*TenantDTO, error) {
	s.logger.Info("Registering tenant",
		zap.String("name", input.Name),
		zap.String("domain", input.Domain))

	if input.IdempotencyToken != "" {
		existing, err := s.tenantRepo.FindByIdempotencyToken(ctx, input.IdempotencyToken)
		if err == nil {
			s.logger.Info("Tenant registration replayed",
				zap.String("tenant_id", existing.ID.String()))
			return toTenantDTO(existing), nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("Failed to check idempotency token", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check idempotency token")
		}
	}

	if input.Domain != "" {
		exists, err := s.tenantRepo.ExistsByDomain(ctx, input.Domain)
		if err != nil {
			s.logger.Error("Failed to check domain existence", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
		}
		if exists {
			return nil, shared.NewDomainError("DOMAIN_EXISTS", "Domain already in use")
		}
	}

	var token *string
	if input.IdempotencyToken != "" {
		token = &input.IdempotencyToken
	}

	tenant, err := identity.NewTenant(input.Name, input.Domain, input.AdminEmail, input.AdminName, token)
	if err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		// Two concurrent requests with the same token race past the lookup;
		// the unique index decides, and the loser returns the winner's row.
		if errors.Is(err, shared.ErrAlreadyExists) && input.IdempotencyToken != "" {
			existing, findErr := s.tenantRepo.FindByIdempotencyToken(ctx, input.IdempotencyToken)
			if findErr == nil {
				return toTenantDTO(existing), nil
			}
		}
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("DOMAIN_EXISTS", "Domain already in use")
		}
		s.logger.Error("Failed to create tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create tenant")
	}

	s.publishEvents(ctx, tenant)

	s.logger.Info("Tenant accepted for provisioning",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))

	return toTenantDTO(tenant), nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// GetStatus retrieves the public provisioning-status view of a tenant
func (s *TenantService) GetStatus(ctx context.Context, id uuid.UUID) (*TenantStatusDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantStatusDTO(tenant), nil
}

// GetByDomain retrieves a tenant by its routing domain
func (s *TenantService) GetByDomain(ctx context.Context, domain string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to find tenant by domain", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find tenant")
	}
	return toTenantDTO(tenant), nil
}

// ResolveDomain maps a routing domain to its tenant ID
func (s *TenantService) ResolveDomain(ctx context.Context, domain string) (uuid.UUID, error) {
	tenant, err := s.tenantRepo.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
		}
		s.logger.Error("Failed to resolve domain", zap.Error(err))
		return uuid.Nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to resolve domain")
	}
	return tenant.ID, nil
}

// SubscriptionActive reports whether the tenant may currently serve requests
func (s *TenantService) SubscriptionActive(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		s.logger.Error("Failed to load tenant for subscription check", zap.Error(err))
		return false, shared.NewDomainError("INTERNAL_ERROR", "Failed to check subscription")
	}
	return tenant.CanServeRequests(), nil
}

// List retrieves a paginated list of tenants
func (s *TenantService) List(ctx context.Context, filter TenantFilter) (*TenantListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	var (
		tenants []identity.Tenant
		err     error
	)
	if filter.Status != "" {
		tenants, err = s.tenantRepo.FindByStatus(ctx, identity.TenantStatus(filter.Status), sharedFilter)
	} else {
		tenants, err = s.tenantRepo.FindAll(ctx, sharedFilter)
	}
	if err != nil {
		s.logger.Error("Failed to list tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list tenants")
	}

	var total int64
	if filter.Status != "" {
		total, err = s.tenantRepo.CountByStatus(ctx, identity.TenantStatus(filter.Status))
	} else {
		total, err = s.tenantRepo.Count(ctx, sharedFilter)
	}
	if err != nil {
		s.logger.Error("Failed to count tenants", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count tenants")
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for i := range tenants {
		dtos = append(dtos, *toTenantDTO(&tenants[i]))
	}

	totalPages := int(total) / sharedFilter.PageSize
	if int(total)%sharedFilter.PageSize > 0 {
		totalPages++
	}

	return &TenantListResult{
		Tenants:    dtos,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetStats returns tenant counts per lifecycle status
func (s *TenantService) GetStats(ctx context.Context) (*TenantStatsDTO, error) {
	stats := &TenantStatsDTO{}

	counts := []struct {
		status identity.TenantStatus
		target *int64
	}{
		{identity.TenantStatusProvisioning, &stats.Provisioning},
		{identity.TenantStatusActive, &stats.Active},
		{identity.TenantStatusSuspended, &stats.Suspended},
		{identity.TenantStatusCanceled, &stats.Canceled},
		{identity.TenantStatusFailed, &stats.Failed},
	}
	for _, c := range counts {
		n, err := s.tenantRepo.CountByStatus(ctx, c.status)
		if err != nil {
			s.logger.Error("Failed to count tenants by status",
				zap.String("status", string(c.status)),
				zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute tenant stats")
		}
		*c.target = n
		stats.Total += n
	}

	return stats, nil
}

// publishEvents publishes and clears the aggregate's pending domain events
func (s *TenantService) publishEvents(ctx context.Context, tenant *identity.Tenant) {
	if s.publisher == nil {
		return
	}
	events := tenant.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish tenant events",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err))
	}
	tenant.ClearDomainEvents()
}
