package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuthService authenticates users and binds tenant contexts. Token and
// session mechanics live outside this repo; callers get back the bound
// context and the effective permission codes.
type AuthService struct {
	tenantRepo  identity.TenantRepository
	userRepo    identity.UserRepository
	permissions *PermissionService
	logger      *zap.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	permissions *PermissionService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		tenantRepo:  tenantRepo,
		userRepo:    userRepo,
		permissions: permissions,
		logger:      logger,
	}
}

// Login verifies credentials and binds a tenant context
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, req.TenantCode)
	if err != nil {
		s.logger.Warn("Login attempt for unknown tenant", zap.String("tenant_code", req.TenantCode))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}
	if !tenant.IsActive() {
		return nil, shared.NewDomainError("TENANT_INACTIVE", "Tenant is not active")
	}

	user, err := s.userRepo.FindByUsername(ctx, tenant.ID, req.Username)
	if err != nil {
		s.logger.Warn("Login attempt for unknown user",
			zap.String("tenant_code", req.TenantCode),
			zap.String("username", req.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}
	if !user.VerifyPassword(req.Password) {
		s.logger.Warn("Invalid password attempt",
			zap.String("tenant_code", req.TenantCode),
			zap.String("username", req.Username))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	tc, err := identity.BindTenant(tenant, user)
	if err != nil {
		return nil, err
	}

	user.RecordLogin()
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	evaluator, err := s.permissions.Evaluate(ctx, tc)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("user_id", user.ID.String()))

	return &LoginResult{
		Context:     tc,
		User:        NewUserResponse(user),
		Permissions: evaluator.Granted(),
	}, nil
}
