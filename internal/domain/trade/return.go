package trade

import (
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnStatus represents the status of a return
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "PENDING"
	ReturnStatusApproved  ReturnStatus = "APPROVED"
	ReturnStatusCompleted ReturnStatus = "COMPLETED"
	ReturnStatusRejected  ReturnStatus = "REJECTED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusPending, ReturnStatusApproved, ReturnStatusCompleted, ReturnStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReturnStatus) CanTransitionTo(target ReturnStatus) bool {
	switch s {
	case ReturnStatusPending:
		return target == ReturnStatusApproved || target == ReturnStatusRejected
	case ReturnStatusApproved:
		return target == ReturnStatusCompleted
	case ReturnStatusCompleted, ReturnStatusRejected:
		return false // Terminal states
	}
	return false
}

// RefundMethod is how a completed return pays the customer back
type RefundMethod string

const (
	// RefundMethodCash pays out of a drawer
	RefundMethodCash RefundMethod = "CASH"
	// RefundMethodBalance credits the customer's account balance
	RefundMethodBalance RefundMethod = "BALANCE"
)

// IsValid returns true if the refund method is valid
func (m RefundMethod) IsValid() bool {
	return m == RefundMethodCash || m == RefundMethodBalance
}

// ReturnLine represents one returned sale line. Each line restocks
// independently: damaged goods come back without going on hand.
type ReturnLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ReturnID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleLineID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null"`
	BatchID     *uuid.UUID      `gorm:"type:uuid"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Frozen from the sale line
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Restock     bool            `gorm:"not null;default:true"`
	Reason      string          `gorm:"type:varchar(255)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (ReturnLine) TableName() string {
	return "return_lines"
}

// NewReturnLine creates a return line referencing a sale line. The
// refund price is frozen from the sale line, never the current catalog.
func NewReturnLine(returnID uuid.UUID, saleLine *SaleLine, quantity decimal.Decimal, restock bool, reason string) (*ReturnLine, error) {
	if saleLine == nil {
		return nil, shared.ErrReferenceNotFound.WithDetails("entity", "sale line")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if quantity.GreaterThan(saleLine.Quantity) {
		return nil, shared.NewDomainError("EXCESSIVE_RETURN", "Cannot return more than was sold")
	}

	now := time.Now()
	return &ReturnLine{
		ID:          uuid.New(),
		ReturnID:    returnID,
		SaleLineID:  saleLine.ID,
		VariantID:   saleLine.VariantID,
		LocationID:  saleLine.LocationID,
		BatchID:     saleLine.BatchID,
		ProductName: saleLine.ProductName,
		Quantity:    quantity,
		UnitPrice:   saleLine.UnitPrice,
		Amount:      quantity.Mul(saleLine.UnitPrice),
		Restock:     restock,
		Reason:      reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// InventoryKey returns the inventory key restocked stock goes back to
func (l *ReturnLine) InventoryKey(tenantID uuid.UUID) ledger.InventoryKey {
	return ledger.InventoryKey{
		TenantID:   tenantID,
		VariantID:  l.VariantID,
		LocationID: l.LocationID,
		BatchID:    l.BatchID,
	}
}

// Return is the aggregate root for one customer return. Completing it
// appends return-in movements for restocked lines and the refund
// transaction, all atomically with the status change.
type Return struct {
	shared.TenantAggregateRoot
	Number       string          `gorm:"type:varchar(50);not null;index:idx_return_tenant_number,unique,priority:2"`
	SaleID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID   *uuid.UUID      `gorm:"type:uuid;index"`
	Lines        []ReturnLine    `gorm:"-"` // Loaded by the repository
	Currency     string          `gorm:"type:varchar(3);not null"`
	RefundAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RefundMethod RefundMethod    `gorm:"type:varchar(20);not null"`
	Status       ReturnStatus    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Remark       string          `gorm:"type:varchar(500)"`
	ApprovedBy   *uuid.UUID      `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	CompletedAt  *time.Time
	RejectedAt   *time.Time
	RejectReason string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Return) TableName() string {
	return "returns"
}

// NewReturn creates a pending return against a completed sale
func NewReturn(sale *Sale, number string, refundMethod RefundMethod) (*Return, error) {
	if sale == nil {
		return nil, shared.ErrReferenceNotFound.WithDetails("entity", "sale")
	}
	if sale.Status != SaleStatusCompleted {
		return nil, shared.ErrInvalidStateTransition.WithDetails("status", sale.Status.String())
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Return number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Return number cannot exceed 50 characters")
	}
	if !refundMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_REFUND_METHOD", "Invalid refund method")
	}
	if refundMethod == RefundMethodBalance && sale.CustomerID == nil {
		return nil, shared.NewDomainError("INVALID_REFUND_METHOD", "Balance refund requires a customer on the sale")
	}

	ret := &Return{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(sale.TenantID),
		Number:              number,
		SaleID:              sale.ID,
		CustomerID:          sale.CustomerID,
		Lines:               make([]ReturnLine, 0),
		Currency:            sale.Currency,
		RefundAmount:        decimal.Zero,
		RefundMethod:        refundMethod,
		Status:              ReturnStatusPending,
	}

	ret.AddDomainEvent(NewReturnCreatedEvent(ret))

	return ret, nil
}

// AddLine adds a returned line. Only allowed in PENDING status.
// alreadyReturned is the quantity of the sale line returned by earlier
// returns; the cumulative total may never exceed what was sold.
func (r *Return) AddLine(saleLine *SaleLine, quantity, alreadyReturned decimal.Decimal, restock bool, reason string) (*ReturnLine, error) {
	if r.Status != ReturnStatusPending {
		return nil, shared.ErrInvalidStateTransition.WithDetails("status", r.Status.String())
	}
	if saleLine == nil || saleLine.SaleID != r.SaleID {
		return nil, shared.ErrReferenceNotFound.WithDetails("entity", "sale line")
	}

	for _, line := range r.Lines {
		if line.SaleLineID == saleLine.ID {
			return nil, shared.NewDomainError("DUPLICATE_LINE", "Sale line already on the return")
		}
	}

	if alreadyReturned.Add(quantity).GreaterThan(saleLine.Quantity) {
		return nil, shared.NewDomainError("EXCESSIVE_RETURN", "Cumulative returned quantity would exceed what was sold")
	}

	line, err := NewReturnLine(r.ID, saleLine, quantity, restock, reason)
	if err != nil {
		return nil, err
	}

	r.Lines = append(r.Lines, *line)
	r.recalculateRefund()
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return line, nil
}

// Approve transitions the return from PENDING to APPROVED
func (r *Return) Approve(approverID uuid.UUID) error {
	if !r.Status.CanTransitionTo(ReturnStatusApproved) {
		return shared.ErrInvalidStateTransition.WithDetails("status", r.Status.String())
	}
	if len(r.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Cannot approve a return without lines")
	}

	now := time.Now()
	r.Status = ReturnStatusApproved
	r.ApprovedBy = &approverID
	r.ApprovedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnApprovedEvent(r))

	return nil
}

// Reject transitions the return from PENDING to REJECTED
func (r *Return) Reject(reason string) error {
	if !r.Status.CanTransitionTo(ReturnStatusRejected) {
		return shared.ErrInvalidStateTransition.WithDetails("status", r.Status.String())
	}

	now := time.Now()
	r.Status = ReturnStatusRejected
	r.RejectedAt = &now
	r.RejectReason = reason
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnRejectedEvent(r, reason))

	return nil
}

// Complete transitions the return from APPROVED to COMPLETED. The caller
// must append the restock movements and the refund transaction in the
// same atomic unit.
func (r *Return) Complete() error {
	if !r.Status.CanTransitionTo(ReturnStatusCompleted) {
		return shared.ErrInvalidStateTransition.WithDetails("status", r.Status.String())
	}

	now := time.Now()
	r.Status = ReturnStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnCompletedEvent(r))

	return nil
}

// RestockLines returns only the lines whose goods go back on hand
func (r *Return) RestockLines() []ReturnLine {
	lines := make([]ReturnLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		if line.Restock {
			lines = append(lines, line)
		}
	}
	return lines
}

// RefundMoney returns the refund amount as Money
func (r *Return) RefundMoney() (valueobject.Money, error) {
	return valueobject.NewMoney(r.RefundAmount, valueobject.Currency(r.Currency))
}

// Ref returns the ledger document reference for this return
func (r *Return) Ref() ledger.DocumentRef {
	return ledger.DocumentRef{Type: ledger.DocumentTypeReturn, ID: r.ID}
}

func (r *Return) recalculateRefund() {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Amount)
	}
	r.RefundAmount = total
}
