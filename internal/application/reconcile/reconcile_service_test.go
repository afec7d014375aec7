package reconcile

import (
	"testing"
	"time"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DrawerResolution: ledger.DriftResolutionOverwrite,
		LockTTL:          time.Second,
		LockWait:         50 * time.Millisecond,
	}
}

func (f *fixture) inventoryKey() ledger.InventoryKey {
	return ledger.InventoryKey{TenantID: f.tc.TenantID(), VariantID: uuid.New(), LocationID: uuid.New()}
}

func (f *fixture) seedBalance(t *testing.T, key ledger.BalanceKey, amount decimal.Decimal) {
	t.Helper()
	balance, err := partner.NewPartyBalance(key.TenantID, key.Party)
	require.NoError(t, err)
	balance.Overwrite(amount)
	f.balances.items[key.String()] = *balance
}

func (f *fixture) seedDrawerAmount(t *testing.T, key ledger.DrawerKey, amount decimal.Decimal) {
	t.Helper()
	row, err := finance.NewDrawerAmount(key)
	require.NoError(t, err)
	row.Overwrite(amount)
	f.drawers.items[key.String()] = *row
}

func TestService_ReconcileKey_InventoryDrift(t *testing.T) {
	f := newFixture(t, testConfig())
	key := f.inventoryKey()
	f.seedMovement(t, key, ledger.MovementTypeInbound, 10)
	f.seedMovement(t, key, ledger.MovementTypeOutbound, 3)
	f.seedLevel(t, key, 10) // Stale: the outbound never applied

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	assert.Equal(t, 1, result.KeysChecked)
	require.Len(t, result.Drifts, 1)
	assert.Equal(t, key.String(), result.Drifts[0].AggregateKey)
	assert.True(t, result.Drifts[0].CachedValue.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.Drifts[0].LedgerValue.Equal(decimal.NewFromInt(7)))

	level := f.levels.items[key.String()]
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(7)))

	// The audit row carries the run and the difference
	saved, err := f.drifts.FindByRun(f.ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.True(t, saved[0].Difference.Equal(decimal.NewFromInt(-3)))
	assert.Equal(t, ledger.DriftResolutionOverwrite, saved[0].Resolution)
}

func TestService_ReconcileKey_NoDrift(t *testing.T) {
	f := newFixture(t, testConfig())
	key := f.inventoryKey()
	f.seedMovement(t, key, ledger.MovementTypeInbound, 10)
	f.seedLevel(t, key, 10)

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	assert.Equal(t, 1, result.KeysChecked)
	assert.Empty(t, result.Drifts)
	assert.Empty(t, f.drifts.items)
}

func TestService_ReconcileKey_SkipsBusyKey(t *testing.T) {
	f := newFixture(t, testConfig())
	key := f.inventoryKey()
	f.seedMovement(t, key, ledger.MovementTypeInbound, 10)
	f.seedLevel(t, key, 5)

	held, err := f.locker.Obtain(f.ctx, key.String(), time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = held.Release(f.ctx) }()

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err, "a held key is skipped, not an error")
	assert.Equal(t, 0, result.KeysChecked)
	assert.Empty(t, result.Drifts)

	// The stale level stays until the next run gets the lock
	level := f.levels.items[key.String()]
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(5)))
}

func TestService_ReconcileKey_BalanceDrift(t *testing.T) {
	f := newFixture(t, testConfig())
	party := ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: uuid.New()}
	key := ledger.BalanceKey{TenantID: f.tc.TenantID(), Party: party}
	f.seedBalanceTx(t, ledger.TransactionTypeCharge, party, decimal.NewFromInt(30))
	f.seedBalance(t, key, decimal.NewFromInt(25))

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	require.Len(t, result.Drifts, 1)

	balance := f.balances.items[key.String()]
	assert.True(t, balance.Balance.Equal(decimal.NewFromInt(30)))
}

func TestService_ReconcileKey_BalanceWithinEpsilon(t *testing.T) {
	f := newFixture(t, testConfig())
	party := ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: uuid.New()}
	key := ledger.BalanceKey{TenantID: f.tc.TenantID(), Party: party}
	f.seedBalanceTx(t, ledger.TransactionTypeCharge, party, decimal.NewFromInt(30))
	f.seedBalance(t, key, decimal.NewFromFloat(30.004))

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	assert.Empty(t, result.Drifts, "half a cent of rounding is not drift")

	balance := f.balances.items[key.String()]
	assert.True(t, balance.Balance.Equal(decimal.NewFromFloat(30.004)))
}

func TestService_ReconcileKey_DrawerOverwrite(t *testing.T) {
	f := newFixture(t, testConfig())
	drawerID := uuid.New()
	key := ledger.DrawerKey{TenantID: f.tc.TenantID(), DrawerID: drawerID, Currency: f.tc.BaseCurrency()}
	f.seedDrawerTx(t, ledger.TransactionTypePaymentIn, drawerID, decimal.NewFromInt(100))
	f.seedDrawerAmount(t, key, decimal.NewFromInt(90))

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	require.Len(t, result.Drifts, 1)

	amount := f.drawers.items[key.String()]
	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(100)))
}

func TestService_ReconcileKey_DrawerCorrectiveEntry(t *testing.T) {
	config := testConfig()
	config.DrawerResolution = ledger.DriftResolutionCorrectiveEntry
	f := newFixture(t, config)
	drawerID := uuid.New()
	key := ledger.DrawerKey{TenantID: f.tc.TenantID(), DrawerID: drawerID, Currency: f.tc.BaseCurrency()}
	f.seedDrawerTx(t, ledger.TransactionTypePaymentIn, drawerID, decimal.NewFromInt(100))
	f.seedDrawerAmount(t, key, decimal.NewFromInt(90))

	result, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	require.Len(t, result.Drifts, 1)

	// The counted 90 stays; a withdrawal entry brings the ledger down to it
	amount := f.drawers.items[key.String()]
	assert.True(t, amount.Amount.Equal(decimal.NewFromInt(90)))

	last := f.ledgerRepo.items[len(f.ledgerRepo.items)-1]
	assert.Equal(t, ledger.TransactionTypeDrawerWithdrawal, last.TransactionType)
	assert.True(t, last.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, ledger.DocumentTypeReconcile, last.Source.Type)
	assert.Equal(t, result.RunID, last.Source.ID)
	require.NotNil(t, result.Drifts[0].CorrectionID)
	assert.Equal(t, last.ID, *result.Drifts[0].CorrectionID)

	// With the correction appended the next run finds nothing
	again, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	require.NoError(t, err)
	assert.Empty(t, again.Drifts)
}

func TestService_ReconcileTenant_SweepsEveryKey(t *testing.T) {
	f := newFixture(t, testConfig())

	invKey := f.inventoryKey()
	f.seedMovement(t, invKey, ledger.MovementTypeInbound, 10)
	f.seedLevel(t, invKey, 8)

	party := ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: uuid.New()}
	f.seedBalanceTx(t, ledger.TransactionTypeCharge, party, decimal.NewFromInt(30))

	drawerID := uuid.New()
	f.seedDrawerTx(t, ledger.TransactionTypePaymentIn, drawerID, decimal.NewFromInt(100))

	result, err := f.svc.ReconcileTenant(f.ctx, f.tc)
	require.NoError(t, err)
	assert.Equal(t, 3, result.KeysChecked)

	// Each cache now matches its ledger: the inventory drift was
	// corrected and the two missing caches were built from scratch.
	require.Len(t, result.Drifts, 3)
	level := f.levels.items[invKey.String()]
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(10)))
}

func TestService_Run_SkipsSuspendedTenants(t *testing.T) {
	f := newFixture(t, testConfig())

	suspended, err := identity.NewTenant("DORMANT", "Dormant Co")
	require.NoError(t, err)
	require.NoError(t, suspended.Suspend("unpaid invoices"))
	f.tenantRepo.tenants[suspended.ID] = suspended

	key := f.inventoryKey()
	f.seedMovement(t, key, ledger.MovementTypeInbound, 10)
	f.seedLevel(t, key, 8)

	suspendedKey := ledger.InventoryKey{TenantID: suspended.ID, VariantID: uuid.New(), LocationID: uuid.New()}
	f.seedMovement(t, suspendedKey, ledger.MovementTypeInbound, 5)
	f.seedLevel(t, suspendedKey, 1)

	result, err := f.svc.Run(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.KeysChecked)

	// The suspended tenant's stale level is untouched
	level := f.levels.items[suspendedKey.String()]
	assert.True(t, level.OnHand.Equal(decimal.NewFromInt(1)))
}

func TestService_ReconcileKey_PermissionDenied(t *testing.T) {
	f := newFixture(t, testConfig())
	f.authorizer.Deny("reconcile:run")

	_, err := f.svc.ReconcileKey(f.ctx, f.tc, f.inventoryKey())
	assert.ErrorIs(t, err, shared.ErrInsufficientPermission)
}

func TestService_ReconcileKey_ForeignTenant(t *testing.T) {
	f := newFixture(t, testConfig())
	key := ledger.InventoryKey{TenantID: uuid.New(), VariantID: uuid.New(), LocationID: uuid.New()}

	_, err := f.svc.ReconcileKey(f.ctx, f.tc, key)
	assert.ErrorIs(t, err, shared.ErrTenantMismatch)
}
