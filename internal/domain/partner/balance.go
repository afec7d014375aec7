package partner

import (
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyBalance is the cached signed balance for one party. Positive means
// the party owes the tenant; negative means the tenant owes the party.
// It is derived state over the financial ledger.
type PartyBalance struct {
	shared.TenantAggregateRoot
	PartyKind   ledger.PartyKind `gorm:"type:varchar(20);not null;index:idx_balance_key,unique,priority:2"`
	PartyID     uuid.UUID        `gorm:"type:uuid;not null;index:idx_balance_key,unique,priority:3"`
	Balance     decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	LastMovedAt *time.Time
}

// TableName returns the table name for GORM
func (PartyBalance) TableName() string {
	return "party_balances"
}

// NewPartyBalance creates a zero balance for a party
func NewPartyBalance(tenantID uuid.UUID, party ledger.PartyRef) (*PartyBalance, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if party.IsZero() || !party.Kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_PARTY_ID", "Party reference is required")
	}

	return &PartyBalance{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PartyKind:           party.Kind,
		PartyID:             party.ID,
		Balance:             decimal.Zero,
	}, nil
}

// Key returns the balance key for this aggregate
func (b *PartyBalance) Key() ledger.BalanceKey {
	return ledger.BalanceKey{
		TenantID: b.TenantID,
		Party:    ledger.PartyRef{Kind: b.PartyKind, ID: b.PartyID},
	}
}

// Apply applies a financial transaction to the cached balance. The
// transaction must name this balance's party.
func (b *PartyBalance) Apply(tx *ledger.Transaction) error {
	if tx.TenantID != b.TenantID {
		return shared.ErrTenantMismatch
	}
	key := tx.BalanceKey()
	if key == nil || key.String() != b.Key().String() {
		return shared.NewDomainError("KEY_MISMATCH", "Transaction belongs to a different party")
	}

	b.Balance = b.Balance.Add(tx.SignedBalanceAmount())
	now := tx.OccurredAt
	b.LastMovedAt = &now
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// WouldExceedCredit reports whether adding the charge would push the
// balance past the party's credit limit. A zero limit means no limit.
func (b *PartyBalance) WouldExceedCredit(charge, creditLimit decimal.Decimal) bool {
	if creditLimit.IsZero() {
		return false
	}
	return b.Balance.Add(charge).GreaterThan(creditLimit)
}

// Overwrite replaces the cached balance with the ledger sum.
// Reconciliation is the only caller.
func (b *PartyBalance) Overwrite(ledgerSum decimal.Decimal) {
	b.Balance = ledgerSum
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
}
