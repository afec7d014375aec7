package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PermissionService evaluates whether a principal may perform an
// operation. It implements the Authorizer port of the trade and
// reconcile services: per-user overrides first, deny winning, then
// enabled role grants, then deny.
type PermissionService struct {
	userRepo identity.UserRepository
	roleRepo identity.RoleRepository
	logger   *zap.Logger
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	logger *zap.Logger,
) *PermissionService {
	return &PermissionService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		logger:   logger,
	}
}

// Authorize checks that the context's user holds the permission.
// System contexts (background jobs) pass every check.
func (s *PermissionService) Authorize(ctx context.Context, tc identity.TenantContext, permission string) error {
	if tc.IsSystem() {
		return nil
	}

	evaluator, err := s.Evaluate(ctx, tc)
	if err != nil {
		return err
	}

	if err := evaluator.Require(permission); err != nil {
		s.logger.Warn("Permission denied",
			zap.String("tenant_id", tc.TenantID().String()),
			zap.String("user_id", tc.UserID().String()),
			zap.String("permission", permission))
		return err
	}
	return nil
}

// Evaluate builds a permission evaluator for the context's user with
// roles and overrides loaded
func (s *PermissionService) Evaluate(ctx context.Context, tc identity.TenantContext) (*identity.PermissionEvaluator, error) {
	user, err := s.userRepo.FindByID(ctx, tc.TenantID(), tc.UserID())
	if err != nil {
		return nil, shared.ErrInsufficientPermission.WithDetails("user", tc.UserID().String())
	}
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		return nil, err
	}
	if err := s.userRepo.LoadOverrides(ctx, user); err != nil {
		return nil, err
	}

	roles, err := s.roleRepo.FindByIDs(ctx, tc.TenantID(), user.RoleIDs)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if err := s.roleRepo.LoadPermissions(ctx, role); err != nil {
			return nil, err
		}
	}

	return identity.NewPermissionEvaluator(user, roles)
}
