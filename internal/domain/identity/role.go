package identity

import (
	"strings"
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Permission represents a functional permission (resource:action pattern).
// It is a value object.
type Permission struct {
	Code        string // e.g., "sale:complete"
	Resource    string // e.g., "sale"
	Action      string // e.g., "complete"
	Description string
}

// NewPermission creates a new Permission value object
func NewPermission(resource, action string) (*Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))

	if resource == "" {
		return nil, shared.NewDomainError("INVALID_PERMISSION_RESOURCE", "Permission resource cannot be empty")
	}
	if action == "" {
		return nil, shared.NewDomainError("INVALID_PERMISSION_ACTION", "Permission action cannot be empty")
	}

	return &Permission{
		Code:     resource + ":" + action,
		Resource: resource,
		Action:   action,
	}, nil
}

// NewPermissionFromCode creates a Permission from a code string (e.g., "sale:complete")
func NewPermissionFromCode(code string) (*Permission, error) {
	parts := strings.SplitN(code, ":", 2)
	if len(parts) != 2 {
		return nil, shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code must be in format 'resource:action'")
	}
	return NewPermission(parts[0], parts[1])
}

// Equals checks if two permissions are equal
func (p Permission) Equals(other Permission) bool {
	return p.Code == other.Code
}

// IsEmpty returns true if the permission is empty
func (p Permission) IsEmpty() bool {
	return p.Code == ""
}

// Well-known permission codes. Services check these before running an
// operation; roles bundle them.
const (
	PermSaleCreate      = "sale:create"
	PermSaleComplete    = "sale:complete"
	PermSaleCancel      = "sale:cancel"
	PermPurchaseCreate  = "purchase:create"
	PermPurchaseReceive = "purchase:receive"
	PermPurchaseCancel  = "purchase:cancel"
	PermReturnCreate    = "return:create"
	PermReturnApprove   = "return:approve"
	PermReturnComplete  = "return:complete"
	PermPaymentRecord   = "payment:record"
	PermReconcileRun    = "reconcile:run"
	PermLedgerRead      = "ledger:read"
)

// RolePermission is the persistence row for a role's permission grant
type RolePermission struct {
	RoleID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Code        string    `gorm:"type:varchar(100);primaryKey"`
	Resource    string    `gorm:"type:varchar(50);not null"`
	Action      string    `gorm:"type:varchar(50);not null"`
	Description string    `gorm:"type:varchar(200)"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (RolePermission) TableName() string {
	return "role_permissions"
}

// Role represents a role in the RBAC system.
// It is the aggregate root for role-related operations.
type Role struct {
	shared.TenantAggregateRoot
	Code         string `gorm:"type:varchar(50);not null;index:idx_role_tenant_code,unique"`
	Name         string `gorm:"type:varchar(100);not null"`
	Description  string `gorm:"type:varchar(500)"`
	IsSystemRole bool   `gorm:"not null;default:false"` // System roles cannot be deleted
	IsEnabled    bool   `gorm:"not null;default:true"`
	Permissions  []Permission `gorm:"-"` // Stored in role_permissions
}

// TableName returns the table name for GORM
func (Role) TableName() string {
	return "roles"
}

// NewRole creates a new role with required fields
func NewRole(tenantID uuid.UUID, code, name string) (*Role, error) {
	if err := validateRoleCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_ROLE_NAME", "Role name is required")
	}

	role := &Role{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(strings.TrimSpace(code)),
		Name:                strings.TrimSpace(name),
		IsEnabled:           true,
		Permissions:         make([]Permission, 0),
	}

	return role, nil
}

// NewSystemRole creates a new system role (cannot be deleted)
func NewSystemRole(tenantID uuid.UUID, code, name string) (*Role, error) {
	role, err := NewRole(tenantID, code, name)
	if err != nil {
		return nil, err
	}

	role.IsSystemRole = true
	return role, nil
}

// Enable enables the role
func (r *Role) Enable() error {
	if r.IsEnabled {
		return shared.NewDomainError("ALREADY_ENABLED", "Role is already enabled")
	}

	r.IsEnabled = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// Disable disables the role. Users holding it lose its grants until
// re-enabled.
func (r *Role) Disable() error {
	if !r.IsEnabled {
		return shared.NewDomainError("ALREADY_DISABLED", "Role is already disabled")
	}

	r.IsEnabled = false
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// GrantPermission grants a permission to the role
func (r *Role) GrantPermission(perm Permission) error {
	if perm.IsEmpty() {
		return shared.NewDomainError("INVALID_PERMISSION", "Permission cannot be empty")
	}

	for _, p := range r.Permissions {
		if p.Equals(perm) {
			return shared.NewDomainError("PERMISSION_ALREADY_GRANTED", "Role already has this permission")
		}
	}

	r.Permissions = append(r.Permissions, perm)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// GrantPermissionByCode grants a permission by code string
func (r *Role) GrantPermissionByCode(code string) error {
	perm, err := NewPermissionFromCode(code)
	if err != nil {
		return err
	}
	return r.GrantPermission(*perm)
}

// RevokePermission revokes a permission from the role
func (r *Role) RevokePermission(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_PERMISSION_CODE", "Permission code cannot be empty")
	}

	found := false
	newPermissions := make([]Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p.Code != code {
			newPermissions = append(newPermissions, p)
		} else {
			found = true
		}
	}

	if !found {
		return shared.NewDomainError("PERMISSION_NOT_FOUND", "Role does not have this permission")
	}

	r.Permissions = newPermissions
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// HasPermission checks if the role has a specific permission
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p.Code == code {
			return true
		}
	}
	return false
}

func validateRoleCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code is required")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	}
	return nil
}

// Predefined role codes created for every new tenant
const (
	RoleCodeOwner       = "OWNER"
	RoleCodeManager     = "MANAGER"
	RoleCodeCashier     = "CASHIER"
	RoleCodeStockKeeper = "STOCK_KEEPER"
)

// DefaultRoles builds the predefined roles for a tenant. The owner role
// carries every known permission.
func DefaultRoles(tenantID uuid.UUID) ([]*Role, error) {
	all := []string{
		PermSaleCreate, PermSaleComplete, PermSaleCancel,
		PermPurchaseCreate, PermPurchaseReceive, PermPurchaseCancel,
		PermReturnCreate, PermReturnApprove, PermReturnComplete,
		PermPaymentRecord, PermReconcileRun, PermLedgerRead,
	}

	grants := map[string][]string{
		RoleCodeOwner:   all,
		RoleCodeManager: all,
		RoleCodeCashier: {
			PermSaleCreate, PermSaleComplete,
			PermReturnCreate, PermPaymentRecord,
		},
		RoleCodeStockKeeper: {
			PermPurchaseCreate, PermPurchaseReceive,
			PermReturnComplete, PermLedgerRead,
		},
	}
	names := map[string]string{
		RoleCodeOwner:       "Owner",
		RoleCodeManager:     "Manager",
		RoleCodeCashier:     "Cashier",
		RoleCodeStockKeeper: "Stock Keeper",
	}

	roles := make([]*Role, 0, len(grants))
	for _, code := range []string{RoleCodeOwner, RoleCodeManager, RoleCodeCashier, RoleCodeStockKeeper} {
		role, err := NewSystemRole(tenantID, code, names[code])
		if err != nil {
			return nil, err
		}
		for _, permCode := range grants[code] {
			if err := role.GrantPermissionByCode(permCode); err != nil {
				return nil, err
			}
		}
		roles = append(roles, role)
	}
	return roles, nil
}
