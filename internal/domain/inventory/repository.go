package inventory

import (
	"context"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// InventoryLevelRepository defines the interface for inventory level persistence
type InventoryLevelRepository interface {
	// GetOrCreate returns the level for a key, creating an empty one if
	// none exists
	GetOrCreate(ctx context.Context, key ledger.InventoryKey) (*InventoryLevel, error)

	// FindByKey returns the level for a key, or ErrNotFound
	FindByKey(ctx context.Context, key ledger.InventoryKey) (*InventoryLevel, error)

	// FindByVariant returns all levels for a variant across locations
	FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID) ([]*InventoryLevel, error)

	// SaveWithLock updates a level if its version is unchanged, returning
	// ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, level *InventoryLevel) error
}
