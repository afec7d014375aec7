package inventory

import (
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLevel is the cached on-hand quantity for one inventory key.
// It is derived state: the stock ledger is the source of truth, and
// reconciliation may rewrite this aggregate from the ledger sum.
type InventoryLevel struct {
	shared.TenantAggregateRoot
	VariantID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_level_key,unique,priority:2"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_level_key,unique,priority:3"`
	BatchID     *uuid.UUID      `gorm:"type:uuid;index:idx_inv_level_key,unique,priority:4"`
	OnHand      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reserved    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastMovedAt *time.Time
}

// TableName returns the table name for GORM
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// NewInventoryLevel creates an empty level for an inventory key
func NewInventoryLevel(key ledger.InventoryKey) (*InventoryLevel, error) {
	if key.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if key.VariantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if key.LocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	return &InventoryLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(key.TenantID),
		VariantID:           key.VariantID,
		LocationID:          key.LocationID,
		BatchID:             key.BatchID,
		OnHand:              decimal.Zero,
		Reserved:            decimal.Zero,
		AverageCost:         decimal.Zero,
	}, nil
}

// Key returns the inventory key for this level
func (l *InventoryLevel) Key() ledger.InventoryKey {
	return ledger.InventoryKey{
		TenantID:   l.TenantID,
		VariantID:  l.VariantID,
		LocationID: l.LocationID,
		BatchID:    l.BatchID,
	}
}

// Available returns the quantity free to sell
func (l *InventoryLevel) Available() decimal.Decimal {
	return l.OnHand.Sub(l.Reserved)
}

// HasAvailable reports whether at least the given quantity is free to sell
func (l *InventoryLevel) HasAvailable(quantity decimal.Decimal) bool {
	return l.Available().GreaterThanOrEqual(quantity)
}

// Apply applies a stock movement to the cached quantities. The movement
// must have been built for this level's key.
func (l *InventoryLevel) Apply(movement *ledger.StockMovement) error {
	if movement.TenantID != l.TenantID {
		return shared.ErrTenantMismatch
	}
	if movement.Key().String() != l.Key().String() {
		return shared.NewDomainError("KEY_MISMATCH", "Movement belongs to a different inventory key")
	}

	delta := movement.SignedQuantity()
	newOnHand := l.OnHand.Add(delta)
	if newOnHand.IsNegative() {
		return shared.ErrInsufficientStock.WithDetails("variant", l.VariantID.String())
	}

	if movement.MovementType.IsIncrease() && !movement.UnitCost.IsZero() {
		l.AverageCost = weightedAverageCost(l.OnHand, l.AverageCost, movement.Quantity, movement.UnitCost)
	}

	l.OnHand = newOnHand
	now := movement.OccurredAt
	l.LastMovedAt = &now
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Reserve holds quantity against pending documents
func (l *InventoryLevel) Reserve(quantity decimal.Decimal) error {
	if quantity.IsNegative() || quantity.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !l.HasAvailable(quantity) {
		return shared.ErrInsufficientStock.WithDetails("variant", l.VariantID.String())
	}

	l.Reserved = l.Reserved.Add(quantity)
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Release frees previously reserved quantity
func (l *InventoryLevel) Release(quantity decimal.Decimal) error {
	if quantity.IsNegative() || quantity.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if l.Reserved.LessThan(quantity) {
		return shared.NewDomainError("INVALID_RELEASE", "Cannot release more than is reserved")
	}

	l.Reserved = l.Reserved.Sub(quantity)
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	return nil
}

// Overwrite replaces the cached on-hand quantity with the ledger sum.
// Reconciliation is the only caller.
func (l *InventoryLevel) Overwrite(ledgerSum decimal.Decimal) {
	l.OnHand = ledgerSum
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

func weightedAverageCost(onHand, avgCost, inQty, inCost decimal.Decimal) decimal.Decimal {
	totalQty := onHand.Add(inQty)
	if totalQty.IsZero() || totalQty.IsNegative() {
		return inCost
	}
	totalValue := onHand.Mul(avgCost).Add(inQty.Mul(inCost))
	return totalValue.Div(totalQty).Round(4)
}
