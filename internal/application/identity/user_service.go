package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService administers users, role assignments and permission
// overrides within a tenant
type UserService struct {
	userRepo identity.UserRepository
	roleRepo identity.RoleRepository
	logger   *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		logger:   logger,
	}
}

// Create creates an active user, optionally with roles by code
func (s *UserService) Create(ctx context.Context, tc identity.TenantContext, req CreateUserRequest) (*UserResponse, error) {
	user, err := identity.NewActiveUser(tc.TenantID(), req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != "" {
		if err := user.SetDisplayName(req.DisplayName); err != nil {
			return nil, err
		}
	}
	if req.Email != "" {
		if err := user.SetEmail(req.Email); err != nil {
			return nil, err
		}
	}
	for _, code := range req.RoleCodes {
		role, err := s.roleRepo.FindByCode(ctx, tc.TenantID(), code)
		if err != nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("role", code)
		}
		if err := user.AssignRole(role.ID); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	if len(user.RoleIDs) > 0 {
		if err := s.userRepo.SaveUserRoles(ctx, user); err != nil {
			return nil, err
		}
	}

	s.logger.Info("User created",
		zap.String("tenant_id", tc.TenantID().String()),
		zap.String("username", user.Username))

	return NewUserResponse(user), nil
}

// AssignRole assigns a role to a user
func (s *UserService) AssignRole(ctx context.Context, tc identity.TenantContext, req AssignRoleRequest) error {
	user, err := s.loadUser(ctx, tc, req.UserID)
	if err != nil {
		return err
	}
	role, err := s.roleRepo.FindByID(ctx, tc.TenantID(), req.RoleID)
	if err != nil {
		return shared.ErrReferenceNotFound.WithDetails("role", req.RoleID.String())
	}

	if err := user.AssignRole(role.ID); err != nil {
		return err
	}
	return s.userRepo.SaveUserRoles(ctx, user)
}

// RemoveRole removes a role from a user
func (s *UserService) RemoveRole(ctx context.Context, tc identity.TenantContext, req AssignRoleRequest) error {
	user, err := s.loadUser(ctx, tc, req.UserID)
	if err != nil {
		return err
	}
	if err := user.RemoveRole(req.RoleID); err != nil {
		return err
	}
	return s.userRepo.SaveUserRoles(ctx, user)
}

// SetOverride sets a per-user permission override
func (s *UserService) SetOverride(ctx context.Context, tc identity.TenantContext, req SetOverrideRequest) error {
	user, err := s.loadUser(ctx, tc, req.UserID)
	if err != nil {
		return err
	}
	if err := s.userRepo.LoadOverrides(ctx, user); err != nil {
		return err
	}
	if err := user.SetOverride(req.Permission, req.Effect, req.Reason); err != nil {
		return err
	}
	return s.userRepo.SaveOverrides(ctx, user)
}

// ClearOverride removes a per-user permission override
func (s *UserService) ClearOverride(ctx context.Context, tc identity.TenantContext, req ClearOverrideRequest) error {
	user, err := s.loadUser(ctx, tc, req.UserID)
	if err != nil {
		return err
	}
	if err := s.userRepo.LoadOverrides(ctx, user); err != nil {
		return err
	}
	if err := user.ClearOverride(req.Permission); err != nil {
		return err
	}
	return s.userRepo.SaveOverrides(ctx, user)
}

func (s *UserService) loadUser(ctx context.Context, tc identity.TenantContext, userID uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, tc.TenantID(), userID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(user.TenantID); err != nil {
		return nil, err
	}
	if err := s.userRepo.LoadUserRoles(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
