package finance

import (
	"context"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// CashDrawerRepository defines the interface for drawer persistence
type CashDrawerRepository interface {
	// Create creates a new drawer
	Create(ctx context.Context, drawer *CashDrawer) error

	// Update updates an existing drawer
	Update(ctx context.Context, drawer *CashDrawer) error

	// FindByID finds a drawer by ID within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CashDrawer, error)

	// FindAll returns all drawers for the tenant
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]*CashDrawer, error)
}

// DrawerAmountRepository defines the interface for cached drawer amounts
type DrawerAmountRepository interface {
	// GetOrCreate returns the amount for a drawer key, creating a zero one
	// if none exists
	GetOrCreate(ctx context.Context, key ledger.DrawerKey) (*DrawerAmount, error)

	// FindByKey returns the amount for a drawer key, or ErrNotFound
	FindByKey(ctx context.Context, key ledger.DrawerKey) (*DrawerAmount, error)

	// FindByDrawer returns all per-currency amounts for one drawer
	FindByDrawer(ctx context.Context, tenantID, drawerID uuid.UUID) ([]*DrawerAmount, error)

	// SaveWithLock updates an amount if its version is unchanged, returning
	// ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, amount *DrawerAmount) error
}
