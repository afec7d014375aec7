package trade

import (
	"fmt"
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the status of a sale
type SaleStatus string

const (
	SaleStatusDraft     SaleStatus = "DRAFT"
	SaleStatusCompleted SaleStatus = "COMPLETED"
	SaleStatusCancelled SaleStatus = "CANCELLED"
	SaleStatusRefunded  SaleStatus = "REFUNDED"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusDraft, SaleStatusCompleted, SaleStatusCancelled, SaleStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of SaleStatus
func (s SaleStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusDraft:
		return target == SaleStatusCompleted || target == SaleStatusCancelled
	case SaleStatusCompleted:
		return target == SaleStatusRefunded
	case SaleStatusCancelled, SaleStatusRefunded:
		return false // Terminal states
	}
	return false
}

// PaymentStatus tracks how much of a completed sale has been settled
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// SaleLine represents a line item in a sale. Unit price and cost are
// frozen when the line is added; later catalog changes do not touch it.
type SaleLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null"`
	BatchID     *uuid.UUID      `gorm:"type:uuid"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * UnitPrice
	Remark      string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// NewSaleLine creates a new sale line with frozen pricing
func NewSaleLine(saleID, variantID, locationID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice, unitCost valueobject.Money) (*SaleLine, error) {
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
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	now := time.Now()
	return &SaleLine{
		ID:          uuid.New(),
		SaleID:      saleID,
		VariantID:   variantID,
		LocationID:  locationID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice.Amount(),
		UnitCost:    unitCost.Amount(),
		Amount:      quantity.Mul(unitPrice.Amount()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// WithBatch pins the line to a specific batch
func (l *SaleLine) WithBatch(batchID uuid.UUID) *SaleLine {
	l.BatchID = &batchID
	return l
}

// UpdateQuantity updates the line quantity and recalculates the amount
func (l *SaleLine) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	l.Quantity = quantity
	l.Amount = quantity.Mul(l.UnitPrice)
	l.UpdatedAt = time.Now()

	return nil
}

// InventoryKey returns the inventory key this line draws stock from
func (l *SaleLine) InventoryKey(tenantID uuid.UUID) ledger.InventoryKey {
	return ledger.InventoryKey{
		TenantID:   tenantID,
		VariantID:  l.VariantID,
		LocationID: l.LocationID,
		BatchID:    l.BatchID,
	}
}

// Sale is the aggregate root for one sale document. It is one of the
// only producers of stock and financial ledger entries: completing it
// appends one outbound movement per line atomically with the status
// change.
type Sale struct {
	shared.TenantAggregateRoot
	Number         string     `gorm:"type:varchar(50);not null;index:idx_sale_tenant_number,unique,priority:2"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;index"` // Walk-in sales carry no customer
	CustomerName   string     `gorm:"type:varchar(200)"`
	Lines          []SaleLine `gorm:"-"` // Loaded by the repository
	Currency       string     `gorm:"type:varchar(3);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status         SaleStatus      `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Remark         string          `gorm:"type:varchar(500)"`
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a new draft sale
func NewSale(tenantID uuid.UUID, number string, currency valueobject.Currency) (*Sale, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Sale number cannot exceed 50 characters")
	}
	if !currency.IsValid() {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", currency.String())
	}

	sale := &Sale{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Number:              number,
		Lines:               make([]SaleLine, 0),
		Currency:            currency.String(),
		Subtotal:            decimal.Zero,
		DiscountAmount:      decimal.Zero,
		TaxAmount:           decimal.Zero,
		TotalAmount:         decimal.Zero,
		PaidAmount:          decimal.Zero,
		Status:              SaleStatusDraft,
		PaymentStatus:       PaymentStatusPending,
	}

	sale.AddDomainEvent(NewSaleCreatedEvent(sale))

	return sale, nil
}

// SetCustomer attaches a customer. Only allowed in DRAFT status.
func (s *Sale) SetCustomer(customerID uuid.UUID, name string) error {
	if s.Status != SaleStatusDraft {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if customerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	s.CustomerID = &customerID
	s.CustomerName = name
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// AddLine adds a line to the sale. Only allowed in DRAFT status. Adding
// the same variant from the same location twice is rejected; update the
// existing line instead.
func (s *Sale) AddLine(variantID, locationID uuid.UUID, productName string, quantity decimal.Decimal, unitPrice, unitCost valueobject.Money) (*SaleLine, error) {
	if s.Status != SaleStatusDraft {
		return nil, shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if unitPrice.Currency().String() != s.Currency {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", unitPrice.Currency().String())
	}

	for _, line := range s.Lines {
		if line.VariantID == variantID && line.LocationID == locationID {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Variant already on the sale, update quantity instead")
		}
	}

	line, err := NewSaleLine(s.ID, variantID, locationID, productName, quantity, unitPrice, unitCost)
	if err != nil {
		return nil, err
	}

	s.Lines = append(s.Lines, *line)
	s.recalculateTotals()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return line, nil
}

// UpdateLineQuantity updates the quantity of an existing line.
// Only allowed in DRAFT status.
func (s *Sale) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if s.Status != SaleStatusDraft {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}

	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			if err := s.Lines[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			s.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Sale line not found")
}

// RemoveLine removes a line from the sale. Only allowed in DRAFT status.
func (s *Sale) RemoveLine(lineID uuid.UUID) error {
	if s.Status != SaleStatusDraft {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}

	for idx, line := range s.Lines {
		if line.ID == lineID {
			s.Lines = append(s.Lines[:idx], s.Lines[idx+1:]...)
			s.recalculateTotals()
			s.UpdatedAt = time.Now()
			s.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("LINE_NOT_FOUND", "Sale line not found")
}

// ApplyDiscount applies a document-level discount. Only allowed in DRAFT status.
func (s *Sale) ApplyDiscount(discount valueobject.Money) error {
	if s.Status != SaleStatusDraft {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.Amount().GreaterThan(s.Subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed subtotal")
	}

	s.DiscountAmount = discount.Amount()
	s.recalculateTotals()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// ApplyTax sets the document-level tax amount. Only allowed in DRAFT status.
func (s *Sale) ApplyTax(tax valueobject.Money) error {
	if s.Status != SaleStatusDraft {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if tax.IsNegative() {
		return shared.NewDomainError("INVALID_TAX", "Tax cannot be negative")
	}

	s.TaxAmount = tax.Amount()
	s.recalculateTotals()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// Complete transitions the sale from DRAFT to COMPLETED. The caller must
// append the outbound stock movements in the same atomic unit.
func (s *Sale) Complete() error {
	if !s.Status.CanTransitionTo(SaleStatusCompleted) {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if len(s.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot complete a sale without lines")
	}
	if s.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Sale total must be positive")
	}

	now := time.Now()
	s.Status = SaleStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSaleCompletedEvent(s))

	return nil
}

// Cancel transitions the sale from DRAFT to CANCELLED. A cancelled draft
// never produced ledger entries, so nothing needs reversing.
func (s *Sale) Cancel(reason string) error {
	if !s.Status.CanTransitionTo(SaleStatusCancelled) {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}

	now := time.Now()
	s.Status = SaleStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSaleCancelledEvent(s, reason))

	return nil
}

// MarkRefunded transitions a completed sale to REFUNDED. Only a completed
// return referencing this sale may drive it.
func (s *Sale) MarkRefunded() error {
	if !s.Status.CanTransitionTo(SaleStatusRefunded) {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}

	s.Status = SaleStatusRefunded
	s.PaymentStatus = PaymentStatusRefunded
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// RecordPayment applies a payment against the sale and updates the
// payment status. Only completed sales accept payments.
func (s *Sale) RecordPayment(amount valueobject.Money) error {
	if s.Status != SaleStatusCompleted {
		return shared.ErrInvalidStateTransition.WithDetails("status", s.Status.String())
	}
	if amount.IsNegative() || amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.Currency().String() != s.Currency {
		return shared.ErrCurrencyNotFound.WithDetails("currency", amount.Currency().String())
	}
	if s.PaidAmount.Add(amount.Amount()).GreaterThan(s.TotalAmount) {
		return shared.NewDomainError("OVERPAYMENT", fmt.Sprintf("Payment would exceed total of %s", s.TotalAmount))
	}

	s.PaidAmount = s.PaidAmount.Add(amount.Amount())
	if s.PaidAmount.Equal(s.TotalAmount) {
		s.PaymentStatus = PaymentStatusPaid
	} else {
		s.PaymentStatus = PaymentStatusPartial
	}
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// Outstanding returns the unpaid portion of the total
func (s *Sale) Outstanding() decimal.Decimal {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// FindLine returns the line with the given ID, or nil
func (s *Sale) FindLine(lineID uuid.UUID) *SaleLine {
	for idx := range s.Lines {
		if s.Lines[idx].ID == lineID {
			return &s.Lines[idx]
		}
	}
	return nil
}

// Ref returns the ledger document reference for this sale
func (s *Sale) Ref() ledger.DocumentRef {
	return ledger.DocumentRef{Type: ledger.DocumentTypeSale, ID: s.ID}
}

func (s *Sale) recalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range s.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	s.Subtotal = subtotal
	if s.DiscountAmount.GreaterThan(subtotal) {
		s.DiscountAmount = subtotal
	}
	s.TotalAmount = subtotal.Sub(s.DiscountAmount).Add(s.TaxAmount)
}
