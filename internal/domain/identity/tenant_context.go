package identity

import (
	"context"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// TenantContext carries the tenant and acting user for one request. Every
// repository and service method takes one; nothing reads or writes tenant
// data without it.
type TenantContext struct {
	tenantID uuid.UUID
	userID   uuid.UUID
	currency valueobject.Currency
}

// BindTenant creates a TenantContext for an active tenant and one of its
// users. It is the only way to obtain a TenantContext.
func BindTenant(tenant *Tenant, user *User) (TenantContext, error) {
	if tenant == nil {
		return TenantContext{}, shared.ErrReferenceNotFound.WithDetails("entity", "tenant")
	}
	if !tenant.IsActive() {
		return TenantContext{}, shared.NewDomainError("TENANT_INACTIVE", "Tenant is not active")
	}
	if user == nil {
		return TenantContext{}, shared.ErrReferenceNotFound.WithDetails("entity", "user")
	}
	if user.TenantID != tenant.ID {
		return TenantContext{}, shared.ErrTenantMismatch
	}
	if !user.IsActive() {
		return TenantContext{}, shared.NewDomainError("USER_INACTIVE", "User is not active")
	}
	return TenantContext{
		tenantID: tenant.ID,
		userID:   user.ID,
		currency: tenant.BaseCurrency(),
	}, nil
}

// SystemContext creates a TenantContext without an acting user, for
// background jobs such as reconciliation.
func SystemContext(tenant *Tenant) (TenantContext, error) {
	if tenant == nil {
		return TenantContext{}, shared.ErrReferenceNotFound.WithDetails("entity", "tenant")
	}
	return TenantContext{
		tenantID: tenant.ID,
		currency: tenant.BaseCurrency(),
	}, nil
}

func (tc TenantContext) TenantID() uuid.UUID { return tc.tenantID }
func (tc TenantContext) UserID() uuid.UUID   { return tc.userID }

// BaseCurrency returns the tenant's configured currency.
func (tc TenantContext) BaseCurrency() valueobject.Currency {
	return tc.currency
}

// IsSystem reports whether this context belongs to a background job
// rather than an authenticated user.
func (tc TenantContext) IsSystem() bool {
	return tc.userID == uuid.Nil
}

// Owns checks that the given entity belongs to this tenant.
func (tc TenantContext) Owns(tenantID uuid.UUID) error {
	if tenantID != tc.tenantID {
		return shared.ErrTenantMismatch
	}
	return nil
}

type tenantContextKey struct{}

// WithTenantContext stores the TenantContext on a context.Context.
func WithTenantContext(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tc)
}

// TenantContextFrom extracts the TenantContext from a context.Context.
func TenantContextFrom(ctx context.Context) (TenantContext, bool) {
	tc, ok := ctx.Value(tenantContextKey{}).(TenantContext)
	return tc, ok
}
