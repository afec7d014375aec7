package persistence

import (
	"context"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements the append-only financial ledger
// on GORM.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Append persists a new transaction
func (r *GormTransactionRepository) Append(ctx context.Context, tx *ledger.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByParty returns all transactions for a party, oldest first
func (r *GormTransactionRepository) FindByParty(ctx context.Context, key ledger.BalanceKey) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND party_kind = ? AND party_id = ?", key.TenantID, key.Party.Kind, key.Party.ID).
		Order("occurred_at ASC, created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// FindByDrawer returns all cash transactions for a drawer and currency,
// oldest first
func (r *GormTransactionRepository) FindByDrawer(ctx context.Context, key ledger.DrawerKey) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND drawer_id = ? AND currency = ?", key.TenantID, key.DrawerID, key.Currency).
		Order("occurred_at ASC, created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// FindBySource returns all transactions produced by one document
func (r *GormTransactionRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.Transaction, error) {
	var txs []*ledger.Transaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, source.Type, source.ID).
		Order("occurred_at ASC, created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// SumBalanceByParty returns the signed balance sum for a party. The
// signs mirror TransactionType.BalanceDirection.
func (r *GormTransactionRepository) SumBalanceByParty(ctx context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	positives := []ledger.TransactionType{
		ledger.TransactionTypeCharge,
		ledger.TransactionTypePaymentOut,
	}
	negatives := []ledger.TransactionType{
		ledger.TransactionTypePaymentIn,
		ledger.TransactionTypeCredit,
	}

	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&ledger.Transaction{}).
		Select("SUM(CASE WHEN transaction_type IN ? THEN amount WHEN transaction_type IN ? THEN -amount ELSE 0 END)",
			positives, negatives).
		Where("tenant_id = ? AND party_kind = ? AND party_id = ?", key.TenantID, key.Party.Kind, key.Party.ID).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// SumCashByDrawer returns the signed cash sum for a drawer and currency.
// The signs mirror TransactionType.DrawerDirection.
func (r *GormTransactionRepository) SumCashByDrawer(ctx context.Context, key ledger.DrawerKey) (decimal.Decimal, error) {
	positives := []ledger.TransactionType{
		ledger.TransactionTypePaymentIn,
		ledger.TransactionTypeDrawerDeposit,
	}
	negatives := []ledger.TransactionType{
		ledger.TransactionTypePaymentOut,
		ledger.TransactionTypeRefund,
		ledger.TransactionTypeDrawerWithdrawal,
	}

	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&ledger.Transaction{}).
		Select("SUM(CASE WHEN transaction_type IN ? THEN amount WHEN transaction_type IN ? THEN -amount ELSE 0 END)",
			positives, negatives).
		Where("tenant_id = ? AND drawer_id = ? AND currency = ?", key.TenantID, key.DrawerID, key.Currency).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// ListBalanceKeys returns every distinct party with at least one
// transaction for the tenant
func (r *GormTransactionRepository) ListBalanceKeys(ctx context.Context, tenantID uuid.UUID) ([]ledger.BalanceKey, error) {
	var rows []struct {
		PartyKind ledger.PartyKind
		PartyID   uuid.UUID
	}
	if err := r.db.WithContext(ctx).Model(&ledger.Transaction{}).
		Distinct("party_kind", "party_id").
		Where("tenant_id = ? AND party_id IS NOT NULL", tenantID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make([]ledger.BalanceKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, ledger.BalanceKey{
			TenantID: tenantID,
			Party:    ledger.PartyRef{Kind: row.PartyKind, ID: row.PartyID},
		})
	}
	return keys, nil
}

// ListDrawerKeys returns every distinct drawer/currency pair with at
// least one cash transaction for the tenant
func (r *GormTransactionRepository) ListDrawerKeys(ctx context.Context, tenantID uuid.UUID) ([]ledger.DrawerKey, error) {
	var rows []struct {
		DrawerID uuid.UUID
		Currency string
	}
	if err := r.db.WithContext(ctx).Model(&ledger.Transaction{}).
		Distinct("drawer_id", "currency").
		Where("tenant_id = ? AND drawer_id IS NOT NULL", tenantID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make([]ledger.DrawerKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, ledger.DrawerKey{
			TenantID: tenantID,
			DrawerID: row.DrawerID,
			Currency: valueobject.Currency(row.Currency),
		})
	}
	return keys, nil
}

var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
