package identity

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *Tenant) error

	// Update updates an existing tenant
	Update(ctx context.Context, tenant *Tenant) error

	// FindByID finds a tenant by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByCode finds a tenant by its unique code
	FindByCode(ctx context.Context, code string) (*Tenant, error)

	// FindAllActive returns every active tenant, for background jobs
	FindAllActive(ctx context.Context) ([]*Tenant, error)
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// Update updates an existing user
	Update(ctx context.Context, user *User) error

	// FindByID finds a user by ID within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username within the tenant
	FindByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*User, error)

	// SaveUserRoles saves the user's role assignments (replaces existing)
	SaveUserRoles(ctx context.Context, user *User) error

	// LoadUserRoles loads the user's role IDs
	LoadUserRoles(ctx context.Context, user *User) error

	// SaveOverrides saves the user's permission overrides (replaces existing)
	SaveOverrides(ctx context.Context, user *User) error

	// LoadOverrides loads the user's permission overrides
	LoadOverrides(ctx context.Context, user *User) error
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// Create creates a new role
	Create(ctx context.Context, role *Role) error

	// Update updates an existing role
	Update(ctx context.Context, role *Role) error

	// Delete deletes a non-system role by ID
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// FindByID finds a role by ID within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Role, error)

	// FindByCode finds a role by code within the tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Role, error)

	// FindByIDs finds multiple roles by IDs within the tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*Role, error)

	// SavePermissions saves all permissions for a role (replaces existing)
	SavePermissions(ctx context.Context, role *Role) error

	// LoadPermissions loads permissions for a role
	LoadPermissions(ctx context.Context, role *Role) error
}
