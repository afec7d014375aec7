package identity

import (
	"github.com/easyshop/backend/internal/domain/shared"
)

// PermissionEvaluator decides whether a user may perform an action.
// Resolution order: per-user override first (deny beats allow), then the
// union of the user's enabled roles, then deny.
type PermissionEvaluator struct {
	user  *User
	roles []*Role
}

// NewPermissionEvaluator builds an evaluator for a user and the roles
// loaded for them. Roles belonging to other users are the caller's bug;
// roles belonging to other tenants are rejected.
func NewPermissionEvaluator(user *User, roles []*Role) (*PermissionEvaluator, error) {
	if user == nil {
		return nil, shared.ErrReferenceNotFound.WithDetails("entity", "user")
	}
	for _, r := range roles {
		if r.TenantID != user.TenantID {
			return nil, shared.ErrTenantMismatch
		}
	}
	return &PermissionEvaluator{user: user, roles: roles}, nil
}

// Can reports whether the user holds the given permission code.
func (e *PermissionEvaluator) Can(permissionCode string) bool {
	for _, o := range e.user.Overrides {
		if o.PermissionCode == permissionCode {
			return o.Effect == OverrideAllow
		}
	}

	for _, r := range e.roles {
		if !r.IsEnabled {
			continue
		}
		if r.HasPermission(permissionCode) {
			return true
		}
	}
	return false
}

// Require returns ErrInsufficientPermission if the user lacks the
// permission. Inactive users hold nothing.
func (e *PermissionEvaluator) Require(permissionCode string) error {
	if !e.user.IsActive() {
		return shared.ErrInsufficientPermission.WithDetails("reason", "user inactive")
	}
	if !e.Can(permissionCode) {
		return shared.ErrInsufficientPermission.WithDetails("permission", permissionCode)
	}
	return nil
}

// Granted returns the distinct permission codes the user effectively
// holds, with overrides applied.
func (e *PermissionEvaluator) Granted() []string {
	denied := make(map[string]bool)
	granted := make(map[string]bool)

	for _, o := range e.user.Overrides {
		if o.Effect == OverrideDeny {
			denied[o.PermissionCode] = true
		} else {
			granted[o.PermissionCode] = true
		}
	}

	for _, r := range e.roles {
		if !r.IsEnabled {
			continue
		}
		for _, p := range r.Permissions {
			if !denied[p.Code] {
				granted[p.Code] = true
			}
		}
	}

	codes := make([]string, 0, len(granted))
	for code := range granted {
		codes = append(codes, code)
	}
	return codes
}
