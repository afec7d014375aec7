package ledger

import (
	"testing"

	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestTransaction(t *testing.T, txType TransactionType) *Transaction {
	source, err := NewDocumentRef(DocumentTypeSale, uuid.New())
	require.NoError(t, err)

	tx, err := NewTransaction(uuid.New(), txType, decimal.NewFromInt(100), valueobject.USD, PaymentMethodCash, source)
	require.NoError(t, err)
	return tx
}

func TestTransactionType_DrawerDirection(t *testing.T) {
	tests := []struct {
		txType    TransactionType
		direction int
	}{
		{TransactionTypePaymentIn, 1},
		{TransactionTypeDrawerDeposit, 1},
		{TransactionTypePaymentOut, -1},
		{TransactionTypeRefund, -1},
		{TransactionTypeDrawerWithdrawal, -1},
		{TransactionTypeCharge, 0},
		{TransactionTypeCredit, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			assert.Equal(t, tt.direction, tt.txType.DrawerDirection())
		})
	}
}

func TestTransactionType_BalanceDirection(t *testing.T) {
	tests := []struct {
		txType    TransactionType
		direction int
	}{
		{TransactionTypeCharge, 1},
		{TransactionTypePaymentOut, 1},
		{TransactionTypePaymentIn, -1},
		{TransactionTypeCredit, -1},
		{TransactionTypeRefund, 0},
		{TransactionTypeDrawerDeposit, 0},
		{TransactionTypeDrawerWithdrawal, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			assert.Equal(t, tt.direction, tt.txType.BalanceDirection())
		})
	}
}

func TestNewTransaction_Validation(t *testing.T) {
	tenantID := uuid.New()
	source, err := NewDocumentRef(DocumentTypeSale, uuid.New())
	require.NoError(t, err)
	amount := decimal.NewFromInt(100)

	tests := []struct {
		name string
		fn   func() (*Transaction, error)
	}{
		{"nil tenant", func() (*Transaction, error) {
			return NewTransaction(uuid.Nil, TransactionTypePaymentIn, amount, valueobject.USD, PaymentMethodCash, source)
		}},
		{"invalid type", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionType("BOGUS"), amount, valueobject.USD, PaymentMethodCash, source)
		}},
		{"zero amount", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionTypePaymentIn, decimal.Zero, valueobject.USD, PaymentMethodCash, source)
		}},
		{"negative amount", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionTypePaymentIn, decimal.NewFromInt(-1), valueobject.USD, PaymentMethodCash, source)
		}},
		{"unknown currency", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionTypePaymentIn, amount, valueobject.Currency("XXX"), PaymentMethodCash, source)
		}},
		{"invalid method", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionTypePaymentIn, amount, valueobject.USD, PaymentMethod("IOU"), source)
		}},
		{"zero source", func() (*Transaction, error) {
			return NewTransaction(tenantID, TransactionTypePaymentIn, amount, valueobject.USD, PaymentMethodCash, DocumentRef{})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.Error(t, err)
		})
	}
}

func TestTransaction_SignedAmounts(t *testing.T) {
	paymentIn := createTestTransaction(t, TransactionTypePaymentIn)
	assert.True(t, paymentIn.SignedDrawerAmount().Equal(decimal.NewFromInt(100)))
	assert.True(t, paymentIn.SignedBalanceAmount().Equal(decimal.NewFromInt(-100)))

	charge := createTestTransaction(t, TransactionTypeCharge)
	assert.True(t, charge.SignedDrawerAmount().IsZero())
	assert.True(t, charge.SignedBalanceAmount().Equal(decimal.NewFromInt(100)))

	refund := createTestTransaction(t, TransactionTypeRefund)
	assert.True(t, refund.SignedDrawerAmount().Equal(decimal.NewFromInt(-100)))
	assert.True(t, refund.SignedBalanceAmount().IsZero())
}

func TestTransaction_BalanceKey(t *testing.T) {
	tx := createTestTransaction(t, TransactionTypeCharge)
	assert.Nil(t, tx.BalanceKey(), "no counterparty means no balance key")

	party, err := NewPartyRef(PartyKindCustomer, uuid.New())
	require.NoError(t, err)
	tx.WithParty(party)

	key := tx.BalanceKey()
	require.NotNil(t, key)
	assert.Equal(t, tx.TenantID, key.TenantID)
	assert.Equal(t, party, key.Party)
}

func TestTransaction_DrawerKey(t *testing.T) {
	tx := createTestTransaction(t, TransactionTypePaymentIn)
	assert.Nil(t, tx.DrawerKey(), "no drawer attached")

	drawerID := uuid.New()
	tx.WithDrawer(drawerID)

	key := tx.DrawerKey()
	require.NotNil(t, key)
	assert.Equal(t, drawerID, key.DrawerID)
	assert.Equal(t, valueobject.USD, key.Currency)

	// A charge never moves drawer cash even with a drawer attached
	charge := createTestTransaction(t, TransactionTypeCharge)
	charge.WithDrawer(drawerID)
	assert.Nil(t, charge.DrawerKey())
}
