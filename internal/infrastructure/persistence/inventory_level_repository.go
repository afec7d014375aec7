package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/inventory"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryLevelRepository implements InventoryLevelRepository using GORM
type GormInventoryLevelRepository struct {
	db *gorm.DB
}

// NewGormInventoryLevelRepository creates a new GormInventoryLevelRepository
func NewGormInventoryLevelRepository(db *gorm.DB) *GormInventoryLevelRepository {
	return &GormInventoryLevelRepository{db: db}
}

// FindByKey returns the level for an inventory key, or ErrNotFound
func (r *GormInventoryLevelRepository) FindByKey(ctx context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	var level inventory.InventoryLevel
	if err := byInventoryKey(r.db.WithContext(ctx), key).First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// FindByVariant returns all levels of one variant across locations
func (r *GormInventoryLevelRepository) FindByVariant(ctx context.Context, tenantID, variantID uuid.UUID) ([]*inventory.InventoryLevel, error) {
	var levels []*inventory.InventoryLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND variant_id = ?", tenantID, variantID).
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// GetOrCreate returns the level for a key, creating a zero one if none
// exists yet. ON CONFLICT handles concurrent creation.
func (r *GormInventoryLevelRepository) GetOrCreate(ctx context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	level, err := r.FindByKey(ctx, key)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	level, err = inventory.NewInventoryLevel(key)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "variant_id"}, {Name: "location_id"}, {Name: "batch_id"},
			},
			DoNothing: true,
		}).
		Create(level).Error; err != nil {
		return nil, err
	}

	return r.FindByKey(ctx, key)
}

// SaveWithLock updates a level if its version is unchanged
func (r *GormInventoryLevelRepository) SaveWithLock(ctx context.Context, level *inventory.InventoryLevel) error {
	result := r.db.WithContext(ctx).
		Model(level).
		Where("id = ? AND version = ?", level.ID, level.Version-1).
		Updates(map[string]interface{}{
			"on_hand":       level.OnHand,
			"reserved":      level.Reserved,
			"average_cost":  level.AverageCost,
			"last_moved_at": level.LastMovedAt,
			"version":       level.Version,
			"updated_at":    level.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ inventory.InventoryLevelRepository = (*GormInventoryLevelRepository)(nil)
