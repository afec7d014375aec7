package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// RoleService administers custom roles. System roles are seeded at
// tenant provisioning and cannot be deleted.
type RoleService struct {
	roleRepo identity.RoleRepository
	logger   *zap.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(roleRepo identity.RoleRepository, logger *zap.Logger) *RoleService {
	return &RoleService{roleRepo: roleRepo, logger: logger}
}

// Create creates a custom role with the given permission codes
func (s *RoleService) Create(ctx context.Context, tc identity.TenantContext, req CreateRoleRequest) (*RoleResponse, error) {
	role, err := identity.NewRole(tc.TenantID(), req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	for _, code := range req.Permissions {
		if err := role.GrantPermissionByCode(code); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	if err := s.roleRepo.SavePermissions(ctx, role); err != nil {
		return nil, err
	}

	s.logger.Info("Role created",
		zap.String("tenant_id", tc.TenantID().String()),
		zap.String("role_code", role.Code))

	return NewRoleResponse(role), nil
}

// Grant grants a permission to a role
func (s *RoleService) Grant(ctx context.Context, tc identity.TenantContext, roleCode, permission string) error {
	role, err := s.loadRole(ctx, tc, roleCode)
	if err != nil {
		return err
	}
	if err := role.GrantPermissionByCode(permission); err != nil {
		return err
	}
	return s.roleRepo.SavePermissions(ctx, role)
}

// Revoke revokes a permission from a role
func (s *RoleService) Revoke(ctx context.Context, tc identity.TenantContext, roleCode, permission string) error {
	role, err := s.loadRole(ctx, tc, roleCode)
	if err != nil {
		return err
	}
	if err := role.RevokePermission(permission); err != nil {
		return err
	}
	return s.roleRepo.SavePermissions(ctx, role)
}

// Disable disables a role; its grants stop counting toward checks
func (s *RoleService) Disable(ctx context.Context, tc identity.TenantContext, roleCode string) error {
	role, err := s.loadRole(ctx, tc, roleCode)
	if err != nil {
		return err
	}
	if err := role.Disable(); err != nil {
		return err
	}
	return s.roleRepo.Update(ctx, role)
}

// Enable re-enables a disabled role
func (s *RoleService) Enable(ctx context.Context, tc identity.TenantContext, roleCode string) error {
	role, err := s.loadRole(ctx, tc, roleCode)
	if err != nil {
		return err
	}
	if err := role.Enable(); err != nil {
		return err
	}
	return s.roleRepo.Update(ctx, role)
}

func (s *RoleService) loadRole(ctx context.Context, tc identity.TenantContext, code string) (*identity.Role, error) {
	role, err := s.roleRepo.FindByCode(ctx, tc.TenantID(), code)
	if err != nil {
		return nil, err
	}
	if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}
