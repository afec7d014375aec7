package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDrawerAmountRepository implements DrawerAmountRepository using GORM
type GormDrawerAmountRepository struct {
	db *gorm.DB
}

// NewGormDrawerAmountRepository creates a new GormDrawerAmountRepository
func NewGormDrawerAmountRepository(db *gorm.DB) *GormDrawerAmountRepository {
	return &GormDrawerAmountRepository{db: db}
}

// FindByKey returns the amount for a drawer key, or ErrNotFound
func (r *GormDrawerAmountRepository) FindByKey(ctx context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	var amount finance.DrawerAmount
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND drawer_id = ? AND currency = ?", key.TenantID, key.DrawerID, key.Currency.String()).
		First(&amount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &amount, nil
}

// FindByDrawer returns all per-currency amounts for one drawer
func (r *GormDrawerAmountRepository) FindByDrawer(ctx context.Context, tenantID, drawerID uuid.UUID) ([]*finance.DrawerAmount, error) {
	var amounts []*finance.DrawerAmount
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND drawer_id = ?", tenantID, drawerID).
		Order("currency ASC").
		Find(&amounts).Error; err != nil {
		return nil, err
	}
	return amounts, nil
}

// GetOrCreate returns the amount for a drawer key, creating a zero one
// if none exists yet. ON CONFLICT handles concurrent creation.
func (r *GormDrawerAmountRepository) GetOrCreate(ctx context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	amount, err := r.FindByKey(ctx, key)
	if err == nil {
		return amount, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	amount, err = finance.NewDrawerAmount(key)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "drawer_id"}, {Name: "currency"},
			},
			DoNothing: true,
		}).
		Create(amount).Error; err != nil {
		return nil, err
	}

	return r.FindByKey(ctx, key)
}

// SaveWithLock updates an amount if its version is unchanged
func (r *GormDrawerAmountRepository) SaveWithLock(ctx context.Context, amount *finance.DrawerAmount) error {
	result := r.db.WithContext(ctx).
		Model(amount).
		Where("id = ? AND version = ?", amount.ID, amount.Version-1).
		Updates(map[string]interface{}{
			"amount":        amount.Amount,
			"last_moved_at": amount.LastMovedAt,
			"version":       amount.Version,
			"updated_at":    amount.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ finance.DrawerAmountRepository = (*GormDrawerAmountRepository)(nil)
