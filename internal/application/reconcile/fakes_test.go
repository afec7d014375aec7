package reconcile

import (
	"context"
	"testing"
	"time"

	apptrade "github.com/easyshop/backend/internal/application/trade"
	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/inventory"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memMovementRepo struct{ items []ledger.StockMovement }

func (r *memMovementRepo) Append(_ context.Context, movement *ledger.StockMovement) error {
	r.items = append(r.items, *movement)
	return nil
}

func (r *memMovementRepo) FindByKey(_ context.Context, key ledger.InventoryKey) ([]*ledger.StockMovement, error) {
	var result []*ledger.StockMovement
	for idx := range r.items {
		if r.items[idx].Key().String() == key.String() {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memMovementRepo) FindBySource(_ context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.StockMovement, error) {
	var result []*ledger.StockMovement
	for idx := range r.items {
		if r.items[idx].TenantID == tenantID && r.items[idx].Source.Type == source.Type && r.items[idx].Source.ID == source.ID {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memMovementRepo) SumByKey(_ context.Context, key ledger.InventoryKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	for idx := range r.items {
		if r.items[idx].Key().String() == key.String() {
			sum = sum.Add(r.items[idx].SignedQuantity())
		}
	}
	return sum, nil
}

func (r *memMovementRepo) ListKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.InventoryKey, error) {
	seen := make(map[string]bool)
	var keys []ledger.InventoryKey
	for idx := range r.items {
		if r.items[idx].TenantID != tenantID {
			continue
		}
		key := r.items[idx].Key()
		if !seen[key.String()] {
			seen[key.String()] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

type memLedgerRepo struct{ items []ledger.Transaction }

func (r *memLedgerRepo) Append(_ context.Context, tx *ledger.Transaction) error {
	r.items = append(r.items, *tx)
	return nil
}

func (r *memLedgerRepo) FindByParty(_ context.Context, key ledger.BalanceKey) ([]*ledger.Transaction, error) {
	var result []*ledger.Transaction
	for idx := range r.items {
		if bk := r.items[idx].BalanceKey(); bk != nil && bk.String() == key.String() {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) FindByDrawer(_ context.Context, key ledger.DrawerKey) ([]*ledger.Transaction, error) {
	var result []*ledger.Transaction
	for idx := range r.items {
		if dk := r.items[idx].DrawerKey(); dk != nil && dk.String() == key.String() {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) FindBySource(_ context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.Transaction, error) {
	var result []*ledger.Transaction
	for idx := range r.items {
		if r.items[idx].TenantID == tenantID && r.items[idx].Source.Type == source.Type && r.items[idx].Source.ID == source.ID {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) SumBalanceByParty(_ context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	for idx := range r.items {
		if bk := r.items[idx].BalanceKey(); bk != nil && bk.String() == key.String() {
			sum = sum.Add(r.items[idx].SignedBalanceAmount())
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) SumCashByDrawer(_ context.Context, key ledger.DrawerKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	for idx := range r.items {
		if dk := r.items[idx].DrawerKey(); dk != nil && dk.String() == key.String() {
			sum = sum.Add(r.items[idx].SignedDrawerAmount())
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) ListBalanceKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.BalanceKey, error) {
	seen := make(map[string]bool)
	var keys []ledger.BalanceKey
	for idx := range r.items {
		if r.items[idx].TenantID != tenantID {
			continue
		}
		if bk := r.items[idx].BalanceKey(); bk != nil && !seen[bk.String()] {
			seen[bk.String()] = true
			keys = append(keys, *bk)
		}
	}
	return keys, nil
}

func (r *memLedgerRepo) ListDrawerKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.DrawerKey, error) {
	seen := make(map[string]bool)
	var keys []ledger.DrawerKey
	for idx := range r.items {
		if r.items[idx].TenantID != tenantID {
			continue
		}
		if dk := r.items[idx].DrawerKey(); dk != nil && !seen[dk.String()] {
			seen[dk.String()] = true
			keys = append(keys, *dk)
		}
	}
	return keys, nil
}

type memLevelRepo struct{ items map[string]inventory.InventoryLevel }

func (r *memLevelRepo) GetOrCreate(_ context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	if level, exists := r.items[key.String()]; exists {
		c := level
		return &c, nil
	}
	level, err := inventory.NewInventoryLevel(key)
	if err != nil {
		return nil, err
	}
	r.items[key.String()] = *level
	c := *level
	return &c, nil
}

func (r *memLevelRepo) FindByKey(_ context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	level, exists := r.items[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := level
	return &c, nil
}

func (r *memLevelRepo) FindByVariant(_ context.Context, tenantID, variantID uuid.UUID) ([]*inventory.InventoryLevel, error) {
	var result []*inventory.InventoryLevel
	for _, level := range r.items {
		if level.TenantID == tenantID && level.VariantID == variantID {
			c := level
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memLevelRepo) SaveWithLock(_ context.Context, level *inventory.InventoryLevel) error {
	key := level.Key().String()
	existing, exists := r.items[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != level.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.items[key] = *level
	return nil
}

type memBalanceRepo struct{ items map[string]partner.PartyBalance }

func (r *memBalanceRepo) GetOrCreate(_ context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	if balance, exists := r.items[key.String()]; exists {
		c := balance
		return &c, nil
	}
	balance, err := partner.NewPartyBalance(key.TenantID, key.Party)
	if err != nil {
		return nil, err
	}
	r.items[key.String()] = *balance
	c := *balance
	return &c, nil
}

func (r *memBalanceRepo) FindByKey(_ context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	balance, exists := r.items[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := balance
	return &c, nil
}

func (r *memBalanceRepo) SaveWithLock(_ context.Context, balance *partner.PartyBalance) error {
	key := balance.Key().String()
	existing, exists := r.items[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != balance.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.items[key] = *balance
	return nil
}

type memDrawerAmountRepo struct{ items map[string]finance.DrawerAmount }

func (r *memDrawerAmountRepo) GetOrCreate(_ context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	if amount, exists := r.items[key.String()]; exists {
		c := amount
		return &c, nil
	}
	amount, err := finance.NewDrawerAmount(key)
	if err != nil {
		return nil, err
	}
	r.items[key.String()] = *amount
	c := *amount
	return &c, nil
}

func (r *memDrawerAmountRepo) FindByKey(_ context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	amount, exists := r.items[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := amount
	return &c, nil
}

func (r *memDrawerAmountRepo) FindByDrawer(_ context.Context, tenantID, drawerID uuid.UUID) ([]*finance.DrawerAmount, error) {
	var result []*finance.DrawerAmount
	for _, amount := range r.items {
		if amount.TenantID == tenantID && amount.DrawerID == drawerID {
			c := amount
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memDrawerAmountRepo) SaveWithLock(_ context.Context, amount *finance.DrawerAmount) error {
	key := amount.Key().String()
	existing, exists := r.items[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != amount.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.items[key] = *amount
	return nil
}

type memDriftRepo struct{ items []ledger.ReconciliationDrift }

func (r *memDriftRepo) Save(_ context.Context, drift *ledger.ReconciliationDrift) error {
	r.items = append(r.items, *drift)
	return nil
}

func (r *memDriftRepo) FindByTenant(_ context.Context, tenantID uuid.UUID, since time.Time) ([]*ledger.ReconciliationDrift, error) {
	var result []*ledger.ReconciliationDrift
	for idx := range r.items {
		if r.items[idx].TenantID == tenantID && !r.items[idx].DetectedAt.Before(since) {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *memDriftRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]*ledger.ReconciliationDrift, error) {
	var result []*ledger.ReconciliationDrift
	for idx := range r.items {
		if r.items[idx].ReconcileRun == runID {
			c := r.items[idx]
			result = append(result, &c)
		}
	}
	return result, nil
}

type memTenantRepo struct{ tenants map[uuid.UUID]*identity.Tenant }

func (r *memTenantRepo) Create(_ context.Context, tenant *identity.Tenant) error {
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *memTenantRepo) Update(_ context.Context, tenant *identity.Tenant) error {
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, exists := r.tenants[id]
	if !exists {
		return nil, shared.ErrNotFound
	}
	return tenant, nil
}

func (r *memTenantRepo) FindByCode(_ context.Context, code string) (*identity.Tenant, error) {
	for _, tenant := range r.tenants {
		if tenant.Code == code {
			return tenant, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTenantRepo) FindAllActive(_ context.Context) ([]*identity.Tenant, error) {
	var result []*identity.Tenant
	for _, tenant := range r.tenants {
		if tenant.IsActive() {
			result = append(result, tenant)
		}
	}
	return result, nil
}

type allowAuthorizer struct{ denied map[string]bool }

func (a *allowAuthorizer) Deny(permission string) { a.denied[permission] = true }

func (a *allowAuthorizer) Authorize(_ context.Context, _ identity.TenantContext, permission string) error {
	if a.denied[permission] {
		return shared.ErrInsufficientPermission.WithDetails("permission", permission)
	}
	return nil
}

type fixture struct {
	ctx        context.Context
	tc         identity.TenantContext
	tenant     *identity.Tenant
	tenantRepo *memTenantRepo
	movements  *memMovementRepo
	ledgerRepo *memLedgerRepo
	levels     *memLevelRepo
	balances   *memBalanceRepo
	drawers    *memDrawerAmountRepo
	drifts     *memDriftRepo
	locker     *lock.MemoryLocker
	authorizer *allowAuthorizer
	svc        *Service
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	tenant, err := identity.NewTenant("ACME", "Acme Trading")
	require.NoError(t, err)
	user, err := identity.NewActiveUser(tenant.ID, "manager1", "password123")
	require.NoError(t, err)
	tc, err := identity.BindTenant(tenant, user)
	require.NoError(t, err)

	f := &fixture{
		ctx:        context.Background(),
		tc:         tc,
		tenant:     tenant,
		tenantRepo: &memTenantRepo{tenants: map[uuid.UUID]*identity.Tenant{tenant.ID: tenant}},
		movements:  &memMovementRepo{},
		ledgerRepo: &memLedgerRepo{},
		levels:     &memLevelRepo{items: make(map[string]inventory.InventoryLevel)},
		balances:   &memBalanceRepo{items: make(map[string]partner.PartyBalance)},
		drawers:    &memDrawerAmountRepo{items: make(map[string]finance.DrawerAmount)},
		drifts:     &memDriftRepo{},
		locker:     lock.NewMemoryLocker(),
		authorizer: &allowAuthorizer{denied: make(map[string]bool)},
	}

	scope := &apptrade.NoOpTransactionScope{
		Movements: f.movements,
		Ledger:    f.ledgerRepo,
		Levels:    f.levels,
		Balances:  f.balances,
		Drawers:   f.drawers,
		Drifts:    f.drifts,
	}
	f.svc = NewService(scope, f.tenantRepo, f.movements, f.ledgerRepo, f.locker, f.authorizer, config, zap.NewNop())
	return f
}

// seedMovement appends one inbound or outbound movement for the key
func (f *fixture) seedMovement(t *testing.T, key ledger.InventoryKey, movementType ledger.MovementType, qty int64) {
	t.Helper()
	source, err := ledger.NewDocumentRef(ledger.DocumentTypeSale, uuid.New())
	require.NoError(t, err)
	movement, err := ledger.NewStockMovement(key, movementType, decimal.NewFromInt(qty), decimal.NewFromInt(1), decimal.NewFromInt(100), source)
	require.NoError(t, err)
	require.NoError(t, f.movements.Append(f.ctx, movement))
}

// seedLevel caches an on-hand quantity for the key
func (f *fixture) seedLevel(t *testing.T, key ledger.InventoryKey, onHand int64) {
	t.Helper()
	level, err := inventory.NewInventoryLevel(key)
	require.NoError(t, err)
	level.Overwrite(decimal.NewFromInt(onHand))
	f.levels.items[key.String()] = *level
}

func (f *fixture) seedBalanceTx(t *testing.T, txType ledger.TransactionType, party ledger.PartyRef, amount decimal.Decimal) {
	t.Helper()
	source, err := ledger.NewDocumentRef(ledger.DocumentTypeSale, uuid.New())
	require.NoError(t, err)
	tx, err := ledger.NewTransaction(f.tc.TenantID(), txType, amount, f.tc.BaseCurrency(), ledger.PaymentMethodCredit, source)
	require.NoError(t, err)
	tx.WithParty(party)
	require.NoError(t, f.ledgerRepo.Append(f.ctx, tx))
}

func (f *fixture) seedDrawerTx(t *testing.T, txType ledger.TransactionType, drawerID uuid.UUID, amount decimal.Decimal) {
	t.Helper()
	source, err := ledger.NewDocumentRef(ledger.DocumentTypeSale, uuid.New())
	require.NoError(t, err)
	tx, err := ledger.NewTransaction(f.tc.TenantID(), txType, amount, f.tc.BaseCurrency(), ledger.PaymentMethodCash, source)
	require.NoError(t, err)
	tx.WithDrawer(drawerID)
	require.NoError(t, f.ledgerRepo.Append(f.ctx, tx))
}
