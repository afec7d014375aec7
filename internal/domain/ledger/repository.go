package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovementRepository is the append-only store for the stock ledger.
// There is no update or delete; corrections are new movements.
type StockMovementRepository interface {
	// Append persists a new movement
	Append(ctx context.Context, movement *StockMovement) error

	// FindByKey returns all movements for an inventory key, oldest first
	FindByKey(ctx context.Context, key InventoryKey) ([]*StockMovement, error)

	// FindBySource returns all movements produced by one document
	FindBySource(ctx context.Context, tenantID uuid.UUID, source DocumentRef) ([]*StockMovement, error)

	// SumByKey returns the signed-quantity sum over all movements for a key
	SumByKey(ctx context.Context, key InventoryKey) (decimal.Decimal, error)

	// ListKeys returns every distinct inventory key with at least one
	// movement for the tenant, for reconciliation sweeps
	ListKeys(ctx context.Context, tenantID uuid.UUID) ([]InventoryKey, error)
}

// TransactionRepository is the append-only store for the financial ledger.
type TransactionRepository interface {
	// Append persists a new transaction
	Append(ctx context.Context, tx *Transaction) error

	// FindByParty returns all transactions for a party, oldest first
	FindByParty(ctx context.Context, key BalanceKey) ([]*Transaction, error)

	// FindByDrawer returns all cash transactions for a drawer and currency,
	// oldest first
	FindByDrawer(ctx context.Context, key DrawerKey) ([]*Transaction, error)

	// FindBySource returns all transactions produced by one document
	FindBySource(ctx context.Context, tenantID uuid.UUID, source DocumentRef) ([]*Transaction, error)

	// SumBalanceByParty returns the signed balance sum for a party
	SumBalanceByParty(ctx context.Context, key BalanceKey) (decimal.Decimal, error)

	// SumCashByDrawer returns the signed cash sum for a drawer and currency
	SumCashByDrawer(ctx context.Context, key DrawerKey) (decimal.Decimal, error)

	// ListBalanceKeys returns every distinct party with at least one
	// transaction for the tenant
	ListBalanceKeys(ctx context.Context, tenantID uuid.UUID) ([]BalanceKey, error)

	// ListDrawerKeys returns every distinct drawer/currency pair with at
	// least one cash transaction for the tenant
	ListDrawerKeys(ctx context.Context, tenantID uuid.UUID) ([]DrawerKey, error)
}

// DriftRepository stores reconciliation drift audit records.
type DriftRepository interface {
	// Save persists a drift record
	Save(ctx context.Context, drift *ReconciliationDrift) error

	// FindByTenant returns drift records for a tenant detected since the
	// given time, newest first
	FindByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]*ReconciliationDrift, error)

	// FindByRun returns all drift records from one reconcile run
	FindByRun(ctx context.Context, runID uuid.UUID) ([]*ReconciliationDrift, error)
}
