package identity

import (
	"time"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginRequest authenticates a user within a tenant
type LoginRequest struct {
	TenantCode string `json:"tenant_code"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// LoginResult is a successful login: the bound context and the
// effective permission codes
type LoginResult struct {
	Context     identity.TenantContext
	User        *UserResponse
	Permissions []string
}

// ProvisionTenantRequest creates a tenant with its default roles and
// an owner account
type ProvisionTenantRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Currency      string `json:"currency,omitempty"`
	OwnerUsername string `json:"owner_username"`
	OwnerPassword string `json:"owner_password"`
}

// CreateUserRequest creates a user within the tenant
type CreateUserRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	RoleCodes   []string `json:"role_codes,omitempty"`
}

// AssignRoleRequest assigns a role to a user
type AssignRoleRequest struct {
	UserID uuid.UUID `json:"user_id"`
	RoleID uuid.UUID `json:"role_id"`
}

// SetOverrideRequest sets a per-user permission override. Deny
// overrides win over any role grant.
type SetOverrideRequest struct {
	UserID     uuid.UUID               `json:"user_id"`
	Permission string                  `json:"permission"`
	Effect     identity.OverrideEffect `json:"effect"`
	Reason     string                  `json:"reason,omitempty"`
}

// ClearOverrideRequest removes a per-user permission override
type ClearOverrideRequest struct {
	UserID     uuid.UUID `json:"user_id"`
	Permission string    `json:"permission"`
}

// CreateRoleRequest creates a custom role
type CreateRoleRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// TenantResponse is a tenant in API responses
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenantResponse converts a tenant to its response form
func NewTenantResponse(tenant *identity.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        tenant.ID,
		Code:      tenant.Code,
		Name:      tenant.Name,
		Status:    string(tenant.Status),
		Currency:  tenant.BaseCurrency().String(),
		CreatedAt: tenant.CreatedAt,
	}
}

// UserResponse is a user in API responses
type UserResponse struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name,omitempty"`
	Email       string      `json:"email,omitempty"`
	Status      string      `json:"status"`
	RoleIDs     []uuid.UUID `json:"role_ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewUserResponse converts a user to its response form
func NewUserResponse(user *identity.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		TenantID:    user.TenantID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Status:      string(user.Status),
		RoleIDs:     user.RoleIDs,
		CreatedAt:   user.CreatedAt,
	}
}

// RoleResponse is a role in API responses
type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	IsEnabled   bool      `json:"is_enabled"`
	Permissions []string  `json:"permissions"`
}

// NewRoleResponse converts a role to its response form
func NewRoleResponse(role *identity.Role) *RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, p.Code)
	}
	return &RoleResponse{
		ID:          role.ID,
		Code:        role.Code,
		Name:        role.Name,
		IsEnabled:   role.IsEnabled,
		Permissions: perms,
	}
}
