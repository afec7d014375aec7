package ledger

import (
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	// MovementTypeInbound is stock entering a location (purchase receipt)
	MovementTypeInbound MovementType = "INBOUND"
	// MovementTypeOutbound is stock leaving a location (sale completion)
	MovementTypeOutbound MovementType = "OUTBOUND"
	// MovementTypeReturnIn is customer-returned stock coming back on hand
	MovementTypeReturnIn MovementType = "RETURN_IN"
	// MovementTypeReturnOut is stock returned to a vendor
	MovementTypeReturnOut MovementType = "RETURN_OUT"
	// MovementTypeAdjustmentIncrease is a positive correction
	MovementTypeAdjustmentIncrease MovementType = "ADJUSTMENT_INCREASE"
	// MovementTypeAdjustmentDecrease is a negative correction
	MovementTypeAdjustmentDecrease MovementType = "ADJUSTMENT_DECREASE"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeInbound, MovementTypeOutbound,
		MovementTypeReturnIn, MovementTypeReturnOut,
		MovementTypeAdjustmentIncrease, MovementTypeAdjustmentDecrease:
		return true
	}
	return false
}

// IsIncrease returns true if this movement type increases on-hand quantity
func (t MovementType) IsIncrease() bool {
	switch t {
	case MovementTypeInbound, MovementTypeReturnIn, MovementTypeAdjustmentIncrease:
		return true
	}
	return false
}

// IsDecrease returns true if this movement type decreases on-hand quantity
func (t MovementType) IsDecrease() bool {
	return t.IsValid() && !t.IsIncrease()
}

// StockMovement is one immutable row of the stock ledger. Once appended it
// is never modified; corrections are new movements.
type StockMovement struct {
	shared.BaseEntity
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_key,priority:1"`
	VariantID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_key,priority:2"`
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_mv_key,priority:3"`
	BatchID      *uuid.UUID      `gorm:"type:uuid;index"`
	MovementType MovementType    `gorm:"type:varchar(30);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Always positive, direction from type
	UnitCost     decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Cost per unit at time of movement
	// On-hand quantity around this movement, for an audit trail that can
	// be replayed without summing the whole ledger
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Source        DocumentRef     `gorm:"embedded"`
	Reason        string          `gorm:"type:varchar(255)"`
	OperatorID    *uuid.UUID      `gorm:"type:uuid"`
	OccurredAt    time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a stock movement for the given inventory key
func NewStockMovement(
	key InventoryKey,
	movementType MovementType,
	quantity decimal.Decimal,
	unitCost decimal.Decimal,
	balanceBefore decimal.Decimal,
	source DocumentRef,
) (*StockMovement, error) {
	if key.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if key.VariantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if key.LocationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Invalid movement type")
	}
	if quantity.IsNegative() || quantity.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	if source.IsZero() {
		return nil, shared.NewDomainError("INVALID_SOURCE_ID", "Source document is required")
	}

	delta := quantity
	if movementType.IsDecrease() {
		delta = quantity.Neg()
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      key.TenantID,
		VariantID:     key.VariantID,
		LocationID:    key.LocationID,
		BatchID:       key.BatchID,
		MovementType:  movementType,
		Quantity:      quantity,
		UnitCost:      unitCost,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(delta),
		Source:        source,
		OccurredAt:    time.Now(),
	}, nil
}

// WithReason sets the reason for the movement
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// WithOperatorID sets the user who performed the operation
func (m *StockMovement) WithOperatorID(operatorID uuid.UUID) *StockMovement {
	m.OperatorID = &operatorID
	return m
}

// WithOccurredAt sets the movement time
func (m *StockMovement) WithOccurredAt(t time.Time) *StockMovement {
	m.OccurredAt = t
	return m
}

// Key returns the inventory key this movement belongs to
func (m *StockMovement) Key() InventoryKey {
	return InventoryKey{
		TenantID:   m.TenantID,
		VariantID:  m.VariantID,
		LocationID: m.LocationID,
		BatchID:    m.BatchID,
	}
}

// SignedQuantity returns the quantity with sign based on movement type.
// Positive for increases, negative for decreases.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	if m.MovementType.IsDecrease() {
		return m.Quantity.Neg()
	}
	return m.Quantity
}

// SignedCost returns the total cost with sign based on movement type
func (m *StockMovement) SignedCost() decimal.Decimal {
	total := m.Quantity.Mul(m.UnitCost)
	if m.MovementType.IsDecrease() {
		return total.Neg()
	}
	return total
}
