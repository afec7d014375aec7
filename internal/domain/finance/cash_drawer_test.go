package finance

import (
	"testing"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestDrawerAmount(t *testing.T) *DrawerAmount {
	amount, err := NewDrawerAmount(ledger.DrawerKey{
		TenantID: uuid.New(),
		DrawerID: uuid.New(),
		Currency: valueobject.USD,
	})
	require.NoError(t, err)
	return amount
}

func applyDrawerTransaction(t *testing.T, amount *DrawerAmount, txType ledger.TransactionType, value int64) error {
	source, err := ledger.NewDocumentRef(ledger.DocumentTypeSale, uuid.New())
	require.NoError(t, err)

	tx, err := ledger.NewTransaction(amount.TenantID, txType, decimal.NewFromInt(value),
		valueobject.USD, ledger.PaymentMethodCash, source)
	require.NoError(t, err)
	tx.WithDrawer(amount.DrawerID)

	return amount.Apply(tx)
}

func TestNewCashDrawer(t *testing.T) {
	drawer, err := NewCashDrawer(uuid.New(), "  Front Desk  ")
	require.NoError(t, err)

	assert.Equal(t, "Front Desk", drawer.Name)
	assert.True(t, drawer.IsOpen)
	assert.Equal(t, 1, drawer.Version)
}

func TestNewCashDrawer_Validation(t *testing.T) {
	_, err := NewCashDrawer(uuid.Nil, "Front Desk")
	assert.Error(t, err)

	_, err = NewCashDrawer(uuid.New(), "   ")
	assert.Error(t, err)
}

func TestCashDrawer_CloseOpen(t *testing.T) {
	drawer, err := NewCashDrawer(uuid.New(), "Front Desk")
	require.NoError(t, err)

	require.NoError(t, drawer.Close())
	assert.False(t, drawer.IsOpen)
	assert.Error(t, drawer.Close())

	require.NoError(t, drawer.Open())
	assert.True(t, drawer.IsOpen)
	assert.Error(t, drawer.Open())
}

func TestNewDrawerAmount(t *testing.T) {
	amount := createTestDrawerAmount(t)

	assert.True(t, amount.Amount.IsZero())
	assert.Equal(t, "USD", amount.Currency)
	assert.Equal(t, valueobject.USD, amount.Key().Currency)
}

func TestNewDrawerAmount_Validation(t *testing.T) {
	_, err := NewDrawerAmount(ledger.DrawerKey{DrawerID: uuid.New(), Currency: valueobject.USD})
	assert.Error(t, err)

	_, err = NewDrawerAmount(ledger.DrawerKey{TenantID: uuid.New(), Currency: valueobject.USD})
	assert.Error(t, err)

	_, err = NewDrawerAmount(ledger.DrawerKey{TenantID: uuid.New(), DrawerID: uuid.New(), Currency: valueobject.Currency("XXX")})
	assert.ErrorIs(t, err, shared.ErrCurrencyNotFound)
}

func TestDrawerAmount_Apply(t *testing.T) {
	amount := createTestDrawerAmount(t)

	require.NoError(t, applyDrawerTransaction(t, amount, ledger.TransactionTypePaymentIn, 100))
	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(100)))

	require.NoError(t, applyDrawerTransaction(t, amount, ledger.TransactionTypeRefund, 30))
	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(70)))

	require.NoError(t, applyDrawerTransaction(t, amount, ledger.TransactionTypeDrawerWithdrawal, 70))
	assert.True(t, amount.Amount.IsZero())
	assert.NotNil(t, amount.LastMovedAt)
}

func TestDrawerAmount_Apply_InsufficientCash(t *testing.T) {
	amount := createTestDrawerAmount(t)
	require.NoError(t, applyDrawerTransaction(t, amount, ledger.TransactionTypeDrawerDeposit, 50))

	err := applyDrawerTransaction(t, amount, ledger.TransactionTypePaymentOut, 51)
	assert.Error(t, err)
	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(50)), "failed apply leaves the amount untouched")
}

func TestDrawerAmount_Apply_KeyMismatch(t *testing.T) {
	amount := createTestDrawerAmount(t)
	source, err := ledger.NewDocumentRef(ledger.DocumentTypeSale, uuid.New())
	require.NoError(t, err)

	// Different tenant
	tx, err := ledger.NewTransaction(uuid.New(), ledger.TransactionTypePaymentIn, decimal.NewFromInt(10),
		valueobject.USD, ledger.PaymentMethodCash, source)
	require.NoError(t, err)
	tx.WithDrawer(amount.DrawerID)
	assert.ErrorIs(t, amount.Apply(tx), shared.ErrTenantMismatch)

	// No drawer cash effect
	tx, err = ledger.NewTransaction(amount.TenantID, ledger.TransactionTypeCharge, decimal.NewFromInt(10),
		valueobject.USD, ledger.PaymentMethodCredit, source)
	require.NoError(t, err)
	tx.WithDrawer(amount.DrawerID)
	assert.Error(t, amount.Apply(tx))

	// Different currency
	tx, err = ledger.NewTransaction(amount.TenantID, ledger.TransactionTypePaymentIn, decimal.NewFromInt(10),
		valueobject.EUR, ledger.PaymentMethodCash, source)
	require.NoError(t, err)
	tx.WithDrawer(amount.DrawerID)
	assert.Error(t, amount.Apply(tx))
}

func TestDrawerAmount_Overwrite(t *testing.T) {
	amount := createTestDrawerAmount(t)
	require.NoError(t, applyDrawerTransaction(t, amount, ledger.TransactionTypeDrawerDeposit, 100))
	version := amount.Version

	amount.Overwrite(decimal.NewFromInt(95))

	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(95)))
	assert.Equal(t, version+1, amount.Version)
}
