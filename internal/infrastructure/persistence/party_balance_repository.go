package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPartyBalanceRepository implements PartyBalanceRepository using GORM
type GormPartyBalanceRepository struct {
	db *gorm.DB
}

// NewGormPartyBalanceRepository creates a new GormPartyBalanceRepository
func NewGormPartyBalanceRepository(db *gorm.DB) *GormPartyBalanceRepository {
	return &GormPartyBalanceRepository{db: db}
}

// FindByKey returns the balance for a party, or ErrNotFound
func (r *GormPartyBalanceRepository) FindByKey(ctx context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	var balance partner.PartyBalance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND party_kind = ? AND party_id = ?", key.TenantID, key.Party.Kind, key.Party.ID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreate returns the balance for a party, creating a zero one if
// none exists yet. ON CONFLICT handles concurrent creation.
func (r *GormPartyBalanceRepository) GetOrCreate(ctx context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	balance, err := r.FindByKey(ctx, key)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	balance, err = partner.NewPartyBalance(key.TenantID, key.Party)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "party_kind"}, {Name: "party_id"},
			},
			DoNothing: true,
		}).
		Create(balance).Error; err != nil {
		return nil, err
	}

	return r.FindByKey(ctx, key)
}

// SaveWithLock updates a balance if its version is unchanged
func (r *GormPartyBalanceRepository) SaveWithLock(ctx context.Context, balance *partner.PartyBalance) error {
	result := r.db.WithContext(ctx).
		Model(balance).
		Where("id = ? AND version = ?", balance.ID, balance.Version-1).
		Updates(map[string]interface{}{
			"balance":       balance.Balance,
			"last_moved_at": balance.LastMovedAt,
			"version":       balance.Version,
			"updated_at":    balance.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ partner.PartyBalanceRepository = (*GormPartyBalanceRepository)(nil)
