package trade

import (
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus represents the status of a purchase
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusReceived  PurchaseStatus = "RECEIVED"
	PurchaseStatusCancelled PurchaseStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseStatus
func (s PurchaseStatus) IsValid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusReceived, PurchaseStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseStatus
func (s PurchaseStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseStatus) CanTransitionTo(target PurchaseStatus) bool {
	switch s {
	case PurchaseStatusPending:
		return target == PurchaseStatusReceived || target == PurchaseStatusCancelled
	case PurchaseStatusReceived, PurchaseStatusCancelled:
		return false // Terminal states
	}
	return false
}

// PurchaseLine represents a line item in a purchase. Unit cost is frozen
// when the line is added.
type PurchaseLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null"`
	BatchID     *uuid.UUID      `gorm:"type:uuid"` // Assigned at receipt for batch-tracked variants
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Remark      string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (PurchaseLine) TableName() string {
	return "purchase_lines"
}

// NewPurchaseLine creates a new purchase line
func NewPurchaseLine(purchaseID, variantID, locationID uuid.UUID, productName string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseLine, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	now := time.Now()
	return &PurchaseLine{
		ID:          uuid.New(),
		PurchaseID:  purchaseID,
		VariantID:   variantID,
		LocationID:  locationID,
		ProductName: productName,
		Quantity:    quantity,
		UnitCost:    unitCost.Amount(),
		Amount:      quantity.Mul(unitCost.Amount()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AssignBatch records the batch stock was received into
func (l *PurchaseLine) AssignBatch(batchID uuid.UUID) error {
	if batchID == uuid.Nil {
		return shared.NewDomainError("INVALID_BATCH", "Batch ID cannot be empty")
	}

	l.BatchID = &batchID
	l.UpdatedAt = time.Now()

	return nil
}

// InventoryKey returns the inventory key this line receives stock into
func (l *PurchaseLine) InventoryKey(tenantID uuid.UUID) ledger.InventoryKey {
	return ledger.InventoryKey{
		TenantID:   tenantID,
		VariantID:  l.VariantID,
		LocationID: l.LocationID,
		BatchID:    l.BatchID,
	}
}

// Purchase is the aggregate root for one purchase document. Receiving it
// appends one inbound movement per line and a credit to the vendor's
// balance, all atomically with the status change.
type Purchase struct {
	shared.TenantAggregateRoot
	Number       string          `gorm:"type:varchar(50);not null;index:idx_purchase_tenant_number,unique,priority:2"`
	VendorID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	VendorName   string          `gorm:"type:varchar(200)"`
	Lines        []PurchaseLine  `gorm:"-"` // Loaded by the repository
	Currency     string          `gorm:"type:varchar(3);not null"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status       PurchaseStatus  `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Remark       string          `gorm:"type:varchar(500)"`
	ReceivedAt   *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Purchase) TableName() string {
	return "purchases"
}

// NewPurchase creates a new pending purchase
func NewPurchase(tenantID uuid.UUID, number string, vendorID uuid.UUID, vendorName string, currency valueobject.Currency) (*Purchase, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Purchase number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Purchase number cannot exceed 50 characters")
	}
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Vendor ID cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", currency.String())
	}

	purchase := &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		VendorID:            vendorID,
		VendorName:          vendorName,
		Lines:               make([]PurchaseLine, 0),
		Currency:            currency.String(),
		TotalAmount:         decimal.Zero,
		Status:              PurchaseStatusPending,
	}

	purchase.AddDomainEvent(NewPurchaseCreatedEvent(purchase))

	return purchase, nil
}

// AddLine adds a line to the purchase. Only allowed in PENDING status.
func (p *Purchase) AddLine(variantID, locationID uuid.UUID, productName string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseLine, error) {
	if p.Status != PurchaseStatusPending {
		return nil, shared.ErrInvalidStateTransition.WithDetails("status", p.Status.String())
	}
	if unitCost.Currency().String() != p.Currency {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", unitCost.Currency().String())
	}

	for _, line := range p.Lines {
		if line.VariantID == variantID && line.LocationID == locationID {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Variant already on the purchase, update quantity instead")
		}
	}

	line, err := NewPurchaseLine(p.ID, variantID, locationID, productName, quantity, unitCost)
	if err != nil {
		return nil, err
	}

	p.Lines = append(p.Lines, *line)
	p.recalculateTotals()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return line, nil
}

// RemoveLine removes a line from the purchase. Only allowed in PENDING status.
func (p *Purchase) RemoveLine(lineID uuid.UUID) error {
	if p.Status != PurchaseStatusPending {
		return shared.ErrInvalidStateTransition.WithDetails("status", p.Status.String())
	}

	for idx, line := range p.Lines {
		if line.ID == lineID {
			p.Lines = append(p.Lines[:idx], p.Lines[idx+1:]...)
			p.recalculateTotals()
			p.UpdatedAt = time.Now()
			p.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Purchase line not found")
}

// Receive transitions the purchase from PENDING to RECEIVED. The caller
// must append the inbound stock movements and the vendor credit in the
// same atomic unit.
func (p *Purchase) Receive() error {
	if !p.Status.CanTransitionTo(PurchaseStatusReceived) {
		return shared.ErrInvalidStateTransition.WithDetails("status", p.Status.String())
	}
	if len(p.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot receive a purchase without lines")
	}

	now := time.Now()
	p.Status = PurchaseStatusReceived
	p.ReceivedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseReceivedEvent(p))

	return nil
}

// Cancel transitions the purchase from PENDING to CANCELLED
func (p *Purchase) Cancel(reason string) error {
	if !p.Status.CanTransitionTo(PurchaseStatusCancelled) {
		return shared.ErrInvalidStateTransition.WithDetails("status", p.Status.String())
	}

	now := time.Now()
	p.Status = PurchaseStatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPurchaseCancelledEvent(p, reason))

	return nil
}

// FindLine returns the line with the given ID, or nil
func (p *Purchase) FindLine(lineID uuid.UUID) *PurchaseLine {
	for idx := range p.Lines {
		if p.Lines[idx].ID == lineID {
			return &p.Lines[idx]
		}
	}
	return nil
}

// Ref returns the ledger document reference for this purchase
func (p *Purchase) Ref() ledger.DocumentRef {
	return ledger.DocumentRef{Type: ledger.DocumentTypePurchase, ID: p.ID}
}

func (p *Purchase) recalculateTotals() {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Amount)
	}
	p.TotalAmount = total
}
