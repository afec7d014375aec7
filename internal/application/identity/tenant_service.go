package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// TenantService provisions and administers tenants
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	logger     *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		logger:     logger,
	}
}

// Provision creates a tenant with its default roles and an active
// owner account holding the OWNER role
func (s *TenantService) Provision(ctx context.Context, req ProvisionTenantRequest) (*TenantResponse, error) {
	tenant, err := identity.NewTenant(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if req.Currency != "" {
		if err := tenant.SetCurrency(valueobject.Currency(req.Currency)); err != nil {
			return nil, err
		}
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	roles, err := identity.DefaultRoles(tenant.ID)
	if err != nil {
		return nil, err
	}
	var ownerRole *identity.Role
	for _, role := range roles {
		if err := s.roleRepo.Create(ctx, role); err != nil {
			return nil, err
		}
		if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
			return nil, err
		}
		if role.Code == identity.RoleCodeOwner {
			ownerRole = role
		}
	}

	owner, err := identity.NewActiveUser(tenant.ID, req.OwnerUsername, req.OwnerPassword)
	if err != nil {
		return nil, err
	}
	if err := owner.AssignRole(ownerRole.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, owner); err != nil {
		return nil, err
	}
	if err := s.userRepo.SaveUserRoles(ctx, owner); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_code", tenant.Code))

	return NewTenantResponse(tenant), nil
}

// Suspend suspends a tenant; every context bound to it stops working
func (s *TenantService) Suspend(ctx context.Context, code, reason string) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := tenant.Suspend(reason); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return NewTenantResponse(tenant), nil
}

// Activate reactivates a suspended or inactive tenant
func (s *TenantService) Activate(ctx context.Context, code string) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := tenant.Activate(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return NewTenantResponse(tenant), nil
}
