package trade

import (
	"context"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/inventory"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/trade"
)

// TransactionScope runs a function inside one database transaction. A
// document transition, the ledger entries it appends and the cached
// aggregates it moves commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository a
// document transition may touch, all sharing one transaction.
type TransactionalRepositories interface {
	// SaleRepo returns the sale repository scoped to the transaction
	SaleRepo() trade.SaleRepository
	// PurchaseRepo returns the purchase repository scoped to the transaction
	PurchaseRepo() trade.PurchaseRepository
	// ReturnRepo returns the return repository scoped to the transaction
	ReturnRepo() trade.ReturnRepository
	// MovementRepo returns the stock ledger repository scoped to the transaction
	MovementRepo() ledger.StockMovementRepository
	// LedgerRepo returns the financial ledger repository scoped to the transaction
	LedgerRepo() ledger.TransactionRepository
	// LevelRepo returns the inventory level repository scoped to the transaction
	LevelRepo() inventory.InventoryLevelRepository
	// BalanceRepo returns the party balance repository scoped to the transaction
	BalanceRepo() partner.PartyBalanceRepository
	// DrawerRepo returns the drawer amount repository scoped to the transaction
	DrawerRepo() finance.DrawerAmountRepository
	// DriftRepo returns the drift audit repository scoped to the transaction
	DriftRepo() ledger.DriftRepository
}

// NoOpTransactionScope runs functions without a real transaction, for
// tests built on in-memory fakes.
type NoOpTransactionScope struct {
	Sales     trade.SaleRepository
	Purchases trade.PurchaseRepository
	Returns   trade.ReturnRepository
	Movements ledger.StockMovementRepository
	Ledger    ledger.TransactionRepository
	Levels    inventory.InventoryLevelRepository
	Balances  partner.PartyBalanceRepository
	Drawers   finance.DrawerAmountRepository
	Drifts    ledger.DriftRepository
}

// Execute runs the function without transaction boundaries
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) SaleRepo() trade.SaleRepository               { return s.Sales }
func (s *NoOpTransactionScope) PurchaseRepo() trade.PurchaseRepository      { return s.Purchases }
func (s *NoOpTransactionScope) ReturnRepo() trade.ReturnRepository          { return s.Returns }
func (s *NoOpTransactionScope) MovementRepo() ledger.StockMovementRepository { return s.Movements }
func (s *NoOpTransactionScope) LedgerRepo() ledger.TransactionRepository    { return s.Ledger }
func (s *NoOpTransactionScope) LevelRepo() inventory.InventoryLevelRepository {
	return s.Levels
}
func (s *NoOpTransactionScope) BalanceRepo() partner.PartyBalanceRepository { return s.Balances }
func (s *NoOpTransactionScope) DrawerRepo() finance.DrawerAmountRepository  { return s.Drawers }
func (s *NoOpTransactionScope) DriftRepo() ledger.DriftRepository           { return s.Drifts }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
