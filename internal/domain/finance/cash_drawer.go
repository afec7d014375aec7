package finance

import (
	"strings"
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashDrawer is a physical till. The money inside is tracked per
// currency in DrawerAmount aggregates; the drawer itself only carries
// identity and status.
type CashDrawer struct {
	shared.TenantAggregateRoot
	Name     string `gorm:"type:varchar(100);not null;index:idx_drawer_tenant_name,unique,priority:2"`
	Location string `gorm:"type:varchar(200)"`
	IsOpen   bool   `gorm:"not null;default:true"`
	Notes    string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CashDrawer) TableName() string {
	return "cash_drawers"
}

// NewCashDrawer creates a new open drawer
func NewCashDrawer(tenantID uuid.UUID, name string) (*CashDrawer, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_DRAWER_NAME", "Drawer name is required")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_DRAWER_NAME", "Drawer name cannot exceed 100 characters")
	}

	return &CashDrawer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		IsOpen:              true,
	}, nil
}

// Close closes the drawer; no cash may move through a closed drawer
func (d *CashDrawer) Close() error {
	if !d.IsOpen {
		return shared.NewDomainError("ALREADY_CLOSED", "Drawer is already closed")
	}

	d.IsOpen = false
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// Open reopens the drawer
func (d *CashDrawer) Open() error {
	if d.IsOpen {
		return shared.NewDomainError("ALREADY_OPEN", "Drawer is already open")
	}

	d.IsOpen = true
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// DrawerAmount is the cached cash amount for one drawer in one currency.
// It is derived state over the financial ledger.
type DrawerAmount struct {
	shared.TenantAggregateRoot
	DrawerID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_drawer_amount_key,unique,priority:2"`
	Currency    string          `gorm:"type:varchar(3);not null;index:idx_drawer_amount_key,unique,priority:3"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastMovedAt *time.Time
}

// TableName returns the table name for GORM
func (DrawerAmount) TableName() string {
	return "drawer_amounts"
}

// NewDrawerAmount creates a zero amount for a drawer and currency
func NewDrawerAmount(key ledger.DrawerKey) (*DrawerAmount, error) {
	if key.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if key.DrawerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DRAWER_ID", "Drawer ID cannot be empty")
	}
	if !key.Currency.IsValid() {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", key.Currency.String())
	}

	return &DrawerAmount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(key.TenantID),
		DrawerID:            key.DrawerID,
		Currency:            key.Currency.String(),
		Amount:              decimal.Zero,
	}, nil
}

// Key returns the drawer key for this aggregate
func (a *DrawerAmount) Key() ledger.DrawerKey {
	return ledger.DrawerKey{
		TenantID: a.TenantID,
		DrawerID: a.DrawerID,
		Currency: currencyOf(a.Currency),
	}
}

// Apply applies a financial transaction to the cached amount. The
// transaction must move cash through this drawer in this currency.
func (a *DrawerAmount) Apply(tx *ledger.Transaction) error {
	if tx.TenantID != a.TenantID {
		return shared.ErrTenantMismatch
	}
	key := tx.DrawerKey()
	if key == nil || key.String() != a.Key().String() {
		return shared.NewDomainError("KEY_MISMATCH", "Transaction belongs to a different drawer or currency")
	}

	newAmount := a.Amount.Add(tx.SignedDrawerAmount())
	if newAmount.IsNegative() {
		return shared.NewDomainError("INSUFFICIENT_CASH", "Drawer does not hold enough cash")
	}

	a.Amount = newAmount
	now := tx.OccurredAt
	a.LastMovedAt = &now
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// Overwrite replaces the cached amount with the ledger sum.
// Reconciliation is the only caller.
func (a *DrawerAmount) Overwrite(ledgerSum decimal.Decimal) {
	a.Amount = ledgerSum
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}
