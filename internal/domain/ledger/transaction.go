package ledger

import (
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of financial transaction
type TransactionType string

const (
	// TransactionTypePaymentIn is money received (customer paying a sale)
	TransactionTypePaymentIn TransactionType = "PAYMENT_IN"
	// TransactionTypePaymentOut is money paid out (paying a vendor)
	TransactionTypePaymentOut TransactionType = "PAYMENT_OUT"
	// TransactionTypeRefund is money returned to a customer
	TransactionTypeRefund TransactionType = "REFUND"
	// TransactionTypeCharge is an amount a party now owes (completed sale on credit)
	TransactionTypeCharge TransactionType = "CHARGE"
	// TransactionTypeCredit is an amount owed to a party (received purchase)
	TransactionTypeCredit TransactionType = "CREDIT"
	// TransactionTypeDrawerDeposit is cash put into a drawer outside of trade
	TransactionTypeDrawerDeposit TransactionType = "DRAWER_DEPOSIT"
	// TransactionTypeDrawerWithdrawal is cash taken out of a drawer outside of trade
	TransactionTypeDrawerWithdrawal TransactionType = "DRAWER_WITHDRAWAL"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePaymentIn, TransactionTypePaymentOut,
		TransactionTypeRefund, TransactionTypeCharge, TransactionTypeCredit,
		TransactionTypeDrawerDeposit, TransactionTypeDrawerWithdrawal:
		return true
	}
	return false
}

// DrawerDirection returns the sign this transaction applies to a cash
// drawer: +1 cash in, -1 cash out, 0 no cash effect.
func (t TransactionType) DrawerDirection() int {
	switch t {
	case TransactionTypePaymentIn, TransactionTypeDrawerDeposit:
		return 1
	case TransactionTypePaymentOut, TransactionTypeRefund, TransactionTypeDrawerWithdrawal:
		return -1
	}
	return 0
}

// BalanceDirection returns the sign this transaction applies to the
// party's balance. Positive balance means the party owes the tenant.
func (t TransactionType) BalanceDirection() int {
	switch t {
	case TransactionTypeCharge, TransactionTypePaymentOut:
		return 1
	case TransactionTypePaymentIn, TransactionTypeCredit:
		return -1
	}
	return 0
}

// PaymentMethod is how money changed hands
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCredit   PaymentMethod = "CREDIT" // On account, settled later
)

// IsValid returns true if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// Transaction is one immutable row of the financial ledger. Party
// balances and drawer amounts are sums over these rows.
type Transaction struct {
	shared.BaseEntity
	TenantID        uuid.UUID            `gorm:"type:uuid;not null;index:idx_fin_tx_tenant_time,priority:1"`
	TransactionType TransactionType      `gorm:"type:varchar(30);not null"`
	Party           *PartyRef            `gorm:"embedded"`
	DrawerID        *uuid.UUID           `gorm:"type:uuid;index"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount          decimal.Decimal      `gorm:"type:decimal(18,4);not null"` // Always positive
	Method          PaymentMethod        `gorm:"type:varchar(20);not null"`
	Source          DocumentRef          `gorm:"embedded"`
	Description     string               `gorm:"type:varchar(255)"`
	OperatorID      *uuid.UUID           `gorm:"type:uuid"`
	OccurredAt      time.Time            `gorm:"type:timestamptz;not null;index:idx_fin_tx_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a financial transaction
func NewTransaction(
	tenantID uuid.UUID,
	txType TransactionType,
	amount decimal.Decimal,
	currency valueobject.Currency,
	method PaymentMethod,
	source DocumentRef,
) (*Transaction, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !currency.IsValid() {
		return nil, shared.ErrCurrencyNotFound.WithDetails("currency", currency.String())
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if source.IsZero() {
		return nil, shared.NewDomainError("INVALID_SOURCE_ID", "Source document is required")
	}

	return &Transaction{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		TransactionType: txType,
		Currency:        currency,
		Amount:          amount,
		Method:          method,
		Source:          source,
		OccurredAt:      time.Now(),
	}, nil
}

// WithParty attaches the counterparty
func (t *Transaction) WithParty(party PartyRef) *Transaction {
	t.Party = &party
	return t
}

// WithDrawer attaches the cash drawer this transaction moved money
// through. Only cash transactions carry one.
func (t *Transaction) WithDrawer(drawerID uuid.UUID) *Transaction {
	t.DrawerID = &drawerID
	return t
}

// WithDescription sets the description
func (t *Transaction) WithDescription(description string) *Transaction {
	t.Description = description
	return t
}

// WithOperatorID sets the user who performed the operation
func (t *Transaction) WithOperatorID(operatorID uuid.UUID) *Transaction {
	t.OperatorID = &operatorID
	return t
}

// WithOccurredAt sets the transaction time
func (t *Transaction) WithOccurredAt(at time.Time) *Transaction {
	t.OccurredAt = at
	return t
}

// BalanceKey returns the party balance this transaction contributes to,
// or nil if it has no counterparty.
func (t *Transaction) BalanceKey() *BalanceKey {
	if t.Party == nil {
		return nil
	}
	return &BalanceKey{TenantID: t.TenantID, Party: *t.Party}
}

// DrawerKey returns the drawer amount this transaction contributes to,
// or nil if it did not move drawer cash.
func (t *Transaction) DrawerKey() *DrawerKey {
	if t.DrawerID == nil || t.TransactionType.DrawerDirection() == 0 {
		return nil
	}
	return &DrawerKey{TenantID: t.TenantID, DrawerID: *t.DrawerID, Currency: t.Currency}
}

// SignedBalanceAmount returns the amount this transaction adds to the
// party's balance.
func (t *Transaction) SignedBalanceAmount() decimal.Decimal {
	switch t.TransactionType.BalanceDirection() {
	case 1:
		return t.Amount
	case -1:
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// SignedDrawerAmount returns the amount this transaction adds to the
// drawer's cash.
func (t *Transaction) SignedDrawerAmount() decimal.Decimal {
	switch t.TransactionType.DrawerDirection() {
	case 1:
		return t.Amount
	case -1:
		return t.Amount.Neg()
	}
	return decimal.Zero
}
