package persistence

import (
	"context"

	apptrade "github.com/easyshop/backend/internal/application/trade"
	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/inventory"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope runs document transitions inside one database
// transaction
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a transaction. All repositories handed to fn
// share the transaction, so the document transition, its ledger rows
// and the cached aggregates commit or roll back together.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories builds each repository over the shared transaction
// on demand
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) SaleRepo() trade.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *gormRepositories) PurchaseRepo() trade.PurchaseRepository {
	return NewGormPurchaseRepository(r.tx)
}

func (r *gormRepositories) ReturnRepo() trade.ReturnRepository {
	return NewGormReturnRepository(r.tx)
}

func (r *gormRepositories) MovementRepo() ledger.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

func (r *gormRepositories) LedgerRepo() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormRepositories) LevelRepo() inventory.InventoryLevelRepository {
	return NewGormInventoryLevelRepository(r.tx)
}

func (r *gormRepositories) BalanceRepo() partner.PartyBalanceRepository {
	return NewGormPartyBalanceRepository(r.tx)
}

func (r *gormRepositories) DrawerRepo() finance.DrawerAmountRepository {
	return NewGormDrawerAmountRepository(r.tx)
}

func (r *gormRepositories) DriftRepo() ledger.DriftRepository {
	return NewGormDriftRepository(r.tx)
}

var _ apptrade.TransactionScope = (*GormTransactionScope)(nil)
var _ apptrade.TransactionalRepositories = (*gormRepositories)(nil)
