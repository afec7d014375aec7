package trade

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/inventory"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeStore holds every aggregate as a value so the fake transaction
// scope can snapshot and restore it, giving tests real all-or-nothing
// semantics without a database. The mutex guards each repo call so
// contention tests can hit the store from several goroutines; the
// ordering of whole operations is still up to the services' key locks.
type fakeStore struct {
	mu sync.Mutex

	sales         map[uuid.UUID]trade.Sale
	purchases     map[uuid.UUID]trade.Purchase
	returns       map[uuid.UUID]trade.Return
	movements     []*ledger.StockMovement
	transactions  []*ledger.Transaction
	levels        map[string]inventory.InventoryLevel
	balances      map[string]partner.PartyBalance
	drawerAmounts map[string]finance.DrawerAmount
	drifts        []*ledger.ReconciliationDrift
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:         make(map[uuid.UUID]trade.Sale),
		purchases:     make(map[uuid.UUID]trade.Purchase),
		returns:       make(map[uuid.UUID]trade.Return),
		levels:        make(map[string]inventory.InventoryLevel),
		balances:      make(map[string]partner.PartyBalance),
		drawerAmounts: make(map[string]finance.DrawerAmount),
	}
}

func copySale(s *trade.Sale) trade.Sale {
	c := *s
	c.Lines = append([]trade.SaleLine(nil), s.Lines...)
	return c
}

func copyPurchase(p *trade.Purchase) trade.Purchase {
	c := *p
	c.Lines = append([]trade.PurchaseLine(nil), p.Lines...)
	return c
}

func copyReturn(r *trade.Return) trade.Return {
	c := *r
	c.Lines = append([]trade.ReturnLine(nil), r.Lines...)
	return c
}

func (s *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	for id, sale := range s.sales {
		snap.sales[id] = copySale(&sale)
	}
	for id, purchase := range s.purchases {
		snap.purchases[id] = copyPurchase(&purchase)
	}
	for id, ret := range s.returns {
		snap.returns[id] = copyReturn(&ret)
	}
	for key, level := range s.levels {
		snap.levels[key] = level
	}
	for key, balance := range s.balances {
		snap.balances[key] = balance
	}
	for key, amount := range s.drawerAmounts {
		snap.drawerAmounts[key] = amount
	}
	snap.movements = append([]*ledger.StockMovement(nil), s.movements...)
	snap.transactions = append([]*ledger.Transaction(nil), s.transactions...)
	snap.drifts = append([]*ledger.ReconciliationDrift(nil), s.drifts...)
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.sales = snap.sales
	s.purchases = snap.purchases
	s.returns = snap.returns
	s.movements = snap.movements
	s.transactions = snap.transactions
	s.levels = snap.levels
	s.balances = snap.balances
	s.drawerAmounts = snap.drawerAmounts
	s.drifts = snap.drifts
}

// fakeScope snapshots the store before running fn and restores it when
// fn fails, mirroring a rolled-back database transaction.
type fakeScope struct {
	store *fakeStore
}

func (s *fakeScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.store.mu.Lock()
	snap := s.store.snapshot()
	s.store.mu.Unlock()
	if err := fn(s); err != nil {
		s.store.mu.Lock()
		s.store.restore(snap)
		s.store.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeScope) SaleRepo() trade.SaleRepository                { return &fakeSaleRepo{s.store} }
func (s *fakeScope) PurchaseRepo() trade.PurchaseRepository        { return &fakePurchaseRepo{s.store} }
func (s *fakeScope) ReturnRepo() trade.ReturnRepository            { return &fakeReturnRepo{s.store} }
func (s *fakeScope) MovementRepo() ledger.StockMovementRepository  { return &fakeMovementRepo{s.store} }
func (s *fakeScope) LedgerRepo() ledger.TransactionRepository      { return &fakeLedgerRepo{s.store} }
func (s *fakeScope) LevelRepo() inventory.InventoryLevelRepository { return &fakeLevelRepo{s.store} }
func (s *fakeScope) BalanceRepo() partner.PartyBalanceRepository   { return &fakeBalanceRepo{s.store} }
func (s *fakeScope) DrawerRepo() finance.DrawerAmountRepository    { return &fakeDrawerAmountRepo{s.store} }
func (s *fakeScope) DriftRepo() ledger.DriftRepository             { return &fakeDriftRepo{s.store} }

var _ TransactionScope = (*fakeScope)(nil)
var _ TransactionalRepositories = (*fakeScope)(nil)

type fakeSaleRepo struct{ store *fakeStore }

func (r *fakeSaleRepo) Create(_ context.Context, sale *trade.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.sales[sale.ID]; exists {
		return shared.NewDomainError("DUPLICATE", "Sale already exists")
	}
	r.store.sales[sale.ID] = copySale(sale)
	return nil
}

func (r *fakeSaleRepo) SaveWithLock(_ context.Context, sale *trade.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, exists := r.store.sales[sale.ID]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != sale.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.sales[sale.ID] = copySale(sale)
	return nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sale, exists := r.store.sales[id]
	if !exists || sale.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := copySale(&sale)
	return &c, nil
}

func (r *fakeSaleRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, number string) (*trade.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sale := range r.store.sales {
		if sale.TenantID == tenantID && sale.Number == number {
			c := copySale(&sale)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSaleRepo) FindByCustomer(_ context.Context, tenantID, customerID uuid.UUID) ([]*trade.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*trade.Sale
	for _, sale := range r.store.sales {
		if sale.TenantID == tenantID && sale.CustomerID != nil && *sale.CustomerID == customerID {
			c := copySale(&sale)
			result = append(result, &c)
		}
	}
	return result, nil
}

type fakePurchaseRepo struct{ store *fakeStore }

func (r *fakePurchaseRepo) Create(_ context.Context, purchase *trade.Purchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.purchases[purchase.ID]; exists {
		return shared.NewDomainError("DUPLICATE", "Purchase already exists")
	}
	r.store.purchases[purchase.ID] = copyPurchase(purchase)
	return nil
}

func (r *fakePurchaseRepo) SaveWithLock(_ context.Context, purchase *trade.Purchase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, exists := r.store.purchases[purchase.ID]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != purchase.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.purchases[purchase.ID] = copyPurchase(purchase)
	return nil
}

func (r *fakePurchaseRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	purchase, exists := r.store.purchases[id]
	if !exists || purchase.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := copyPurchase(&purchase)
	return &c, nil
}

func (r *fakePurchaseRepo) FindByNumber(_ context.Context, tenantID uuid.UUID, number string) (*trade.Purchase, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, purchase := range r.store.purchases {
		if purchase.TenantID == tenantID && purchase.Number == number {
			c := copyPurchase(&purchase)
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

type fakeReturnRepo struct{ store *fakeStore }

func (r *fakeReturnRepo) Create(_ context.Context, ret *trade.Return) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.returns[ret.ID]; exists {
		return shared.NewDomainError("DUPLICATE", "Return already exists")
	}
	r.store.returns[ret.ID] = copyReturn(ret)
	return nil
}

func (r *fakeReturnRepo) SaveWithLock(_ context.Context, ret *trade.Return) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, exists := r.store.returns[ret.ID]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != ret.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.returns[ret.ID] = copyReturn(ret)
	return nil
}

func (r *fakeReturnRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*trade.Return, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ret, exists := r.store.returns[id]
	if !exists || ret.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := copyReturn(&ret)
	return &c, nil
}

func (r *fakeReturnRepo) FindBySale(_ context.Context, tenantID, saleID uuid.UUID) ([]*trade.Return, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*trade.Return
	for _, ret := range r.store.returns {
		if ret.TenantID == tenantID && ret.SaleID == saleID {
			c := copyReturn(&ret)
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *fakeReturnRepo) SumReturnedQuantity(_ context.Context, tenantID, saleLineID uuid.UUID) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := decimal.Zero
	for _, ret := range r.store.returns {
		if ret.TenantID != tenantID || ret.Status == trade.ReturnStatusRejected {
			continue
		}
		for idx := range ret.Lines {
			if ret.Lines[idx].SaleLineID == saleLineID {
				sum = sum.Add(ret.Lines[idx].Quantity)
			}
		}
	}
	return sum, nil
}

type fakeMovementRepo struct{ store *fakeStore }

func (r *fakeMovementRepo) Append(_ context.Context, movement *ledger.StockMovement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.movements = append(r.store.movements, movement)
	return nil
}

func (r *fakeMovementRepo) FindByKey(_ context.Context, key ledger.InventoryKey) ([]*ledger.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.StockMovement
	for _, m := range r.store.movements {
		if m.Key().String() == key.String() {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeMovementRepo) FindBySource(_ context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.StockMovement
	for _, m := range r.store.movements {
		if m.TenantID == tenantID && m.Source.Type == source.Type && m.Source.ID == source.ID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *fakeMovementRepo) SumByKey(_ context.Context, key ledger.InventoryKey) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := decimal.Zero
	for _, m := range r.store.movements {
		if m.Key().String() == key.String() {
			sum = sum.Add(m.SignedQuantity())
		}
	}
	return sum, nil
}

func (r *fakeMovementRepo) ListKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.InventoryKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[string]bool)
	var keys []ledger.InventoryKey
	for _, m := range r.store.movements {
		if m.TenantID != tenantID {
			continue
		}
		key := m.Key()
		if !seen[key.String()] {
			seen[key.String()] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

type fakeLedgerRepo struct{ store *fakeStore }

func (r *fakeLedgerRepo) Append(_ context.Context, tx *ledger.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.transactions = append(r.store.transactions, tx)
	return nil
}

func (r *fakeLedgerRepo) FindByParty(_ context.Context, key ledger.BalanceKey) ([]*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.Transaction
	for _, tx := range r.store.transactions {
		if k := tx.BalanceKey(); k != nil && k.String() == key.String() {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeLedgerRepo) FindByDrawer(_ context.Context, key ledger.DrawerKey) ([]*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.Transaction
	for _, tx := range r.store.transactions {
		if k := tx.DrawerKey(); k != nil && k.String() == key.String() {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeLedgerRepo) FindBySource(_ context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.Transaction
	for _, tx := range r.store.transactions {
		if tx.TenantID == tenantID && tx.Source.Type == source.Type && tx.Source.ID == source.ID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeLedgerRepo) SumBalanceByParty(_ context.Context, key ledger.BalanceKey) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range r.store.transactions {
		if k := tx.BalanceKey(); k != nil && k.String() == key.String() {
			sum = sum.Add(tx.SignedBalanceAmount())
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) SumCashByDrawer(_ context.Context, key ledger.DrawerKey) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := decimal.Zero
	for _, tx := range r.store.transactions {
		if k := tx.DrawerKey(); k != nil && k.String() == key.String() {
			sum = sum.Add(tx.SignedDrawerAmount())
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) ListBalanceKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.BalanceKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[string]bool)
	var keys []ledger.BalanceKey
	for _, tx := range r.store.transactions {
		if tx.TenantID != tenantID {
			continue
		}
		key := tx.BalanceKey()
		if key != nil && !seen[key.String()] {
			seen[key.String()] = true
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

func (r *fakeLedgerRepo) ListDrawerKeys(_ context.Context, tenantID uuid.UUID) ([]ledger.DrawerKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[string]bool)
	var keys []ledger.DrawerKey
	for _, tx := range r.store.transactions {
		if tx.TenantID != tenantID {
			continue
		}
		key := tx.DrawerKey()
		if key != nil && !seen[key.String()] {
			seen[key.String()] = true
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

type fakeLevelRepo struct{ store *fakeStore }

func (r *fakeLevelRepo) GetOrCreate(_ context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if level, exists := r.store.levels[key.String()]; exists {
		c := level
		return &c, nil
	}
	level, err := inventory.NewInventoryLevel(key)
	if err != nil {
		return nil, err
	}
	r.store.levels[key.String()] = *level
	c := *level
	return &c, nil
}

func (r *fakeLevelRepo) FindByKey(_ context.Context, key ledger.InventoryKey) (*inventory.InventoryLevel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	level, exists := r.store.levels[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := level
	return &c, nil
}

func (r *fakeLevelRepo) FindByVariant(_ context.Context, tenantID, variantID uuid.UUID) ([]*inventory.InventoryLevel, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*inventory.InventoryLevel
	for _, level := range r.store.levels {
		if level.TenantID == tenantID && level.VariantID == variantID {
			c := level
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *fakeLevelRepo) SaveWithLock(_ context.Context, level *inventory.InventoryLevel) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := level.Key().String()
	existing, exists := r.store.levels[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != level.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.levels[key] = *level
	return nil
}

type fakeBalanceRepo struct{ store *fakeStore }

func (r *fakeBalanceRepo) GetOrCreate(_ context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if balance, exists := r.store.balances[key.String()]; exists {
		c := balance
		return &c, nil
	}
	balance, err := partner.NewPartyBalance(key.TenantID, key.Party)
	if err != nil {
		return nil, err
	}
	r.store.balances[key.String()] = *balance
	c := *balance
	return &c, nil
}

func (r *fakeBalanceRepo) FindByKey(_ context.Context, key ledger.BalanceKey) (*partner.PartyBalance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	balance, exists := r.store.balances[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := balance
	return &c, nil
}

func (r *fakeBalanceRepo) SaveWithLock(_ context.Context, balance *partner.PartyBalance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := balance.Key().String()
	existing, exists := r.store.balances[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != balance.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.balances[key] = *balance
	return nil
}

type fakeDrawerAmountRepo struct{ store *fakeStore }

func (r *fakeDrawerAmountRepo) GetOrCreate(_ context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if amount, exists := r.store.drawerAmounts[key.String()]; exists {
		c := amount
		return &c, nil
	}
	amount, err := finance.NewDrawerAmount(key)
	if err != nil {
		return nil, err
	}
	r.store.drawerAmounts[key.String()] = *amount
	c := *amount
	return &c, nil
}

func (r *fakeDrawerAmountRepo) FindByKey(_ context.Context, key ledger.DrawerKey) (*finance.DrawerAmount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	amount, exists := r.store.drawerAmounts[key.String()]
	if !exists {
		return nil, shared.ErrNotFound
	}
	c := amount
	return &c, nil
}

func (r *fakeDrawerAmountRepo) FindByDrawer(_ context.Context, tenantID, drawerID uuid.UUID) ([]*finance.DrawerAmount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*finance.DrawerAmount
	for _, amount := range r.store.drawerAmounts {
		if amount.TenantID == tenantID && amount.DrawerID == drawerID {
			c := amount
			result = append(result, &c)
		}
	}
	return result, nil
}

func (r *fakeDrawerAmountRepo) SaveWithLock(_ context.Context, amount *finance.DrawerAmount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := amount.Key().String()
	existing, exists := r.store.drawerAmounts[key]
	if !exists {
		return shared.ErrNotFound
	}
	if existing.Version != amount.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.store.drawerAmounts[key] = *amount
	return nil
}

type fakeDriftRepo struct{ store *fakeStore }

func (r *fakeDriftRepo) Save(_ context.Context, drift *ledger.ReconciliationDrift) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.drifts = append(r.store.drifts, drift)
	return nil
}

func (r *fakeDriftRepo) FindByTenant(_ context.Context, tenantID uuid.UUID, since time.Time) ([]*ledger.ReconciliationDrift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.ReconciliationDrift
	for _, d := range r.store.drifts {
		if d.TenantID == tenantID && !d.DetectedAt.Before(since) {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *fakeDriftRepo) FindByRun(_ context.Context, runID uuid.UUID) ([]*ledger.ReconciliationDrift, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []*ledger.ReconciliationDrift
	for _, d := range r.store.drifts {
		if d.ReconcileRun == runID {
			result = append(result, d)
		}
	}
	return result, nil
}

type fakePartyRepo struct {
	parties map[uuid.UUID]*partner.Party
}

func newFakePartyRepo() *fakePartyRepo {
	return &fakePartyRepo{parties: make(map[uuid.UUID]*partner.Party)}
}

func (r *fakePartyRepo) Create(_ context.Context, party *partner.Party) error {
	r.parties[party.ID] = party
	return nil
}

func (r *fakePartyRepo) Update(_ context.Context, party *partner.Party) error {
	if _, exists := r.parties[party.ID]; !exists {
		return shared.ErrNotFound
	}
	r.parties[party.ID] = party
	return nil
}

func (r *fakePartyRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*partner.Party, error) {
	party, exists := r.parties[id]
	if !exists || party.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return party, nil
}

func (r *fakePartyRepo) FindByRef(_ context.Context, tenantID uuid.UUID, ref ledger.PartyRef) (*partner.Party, error) {
	party, exists := r.parties[ref.ID]
	if !exists || party.TenantID != tenantID || party.Kind != ref.Kind {
		return nil, shared.ErrNotFound
	}
	return party, nil
}

func (r *fakePartyRepo) FindByCode(_ context.Context, tenantID uuid.UUID, kind ledger.PartyKind, code string) (*partner.Party, error) {
	for _, party := range r.parties {
		if party.TenantID == tenantID && party.Kind == kind && party.Code == code {
			return party, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakePartyRepo) FindByKind(_ context.Context, tenantID uuid.UUID, kind ledger.PartyKind) ([]*partner.Party, error) {
	var result []*partner.Party
	for _, party := range r.parties {
		if party.TenantID == tenantID && party.Kind == kind {
			result = append(result, party)
		}
	}
	return result, nil
}

type fakeCashDrawerRepo struct {
	drawers map[uuid.UUID]*finance.CashDrawer
}

func newFakeCashDrawerRepo() *fakeCashDrawerRepo {
	return &fakeCashDrawerRepo{drawers: make(map[uuid.UUID]*finance.CashDrawer)}
}

func (r *fakeCashDrawerRepo) Create(_ context.Context, drawer *finance.CashDrawer) error {
	r.drawers[drawer.ID] = drawer
	return nil
}

func (r *fakeCashDrawerRepo) Update(_ context.Context, drawer *finance.CashDrawer) error {
	if _, exists := r.drawers[drawer.ID]; !exists {
		return shared.ErrNotFound
	}
	r.drawers[drawer.ID] = drawer
	return nil
}

func (r *fakeCashDrawerRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*finance.CashDrawer, error) {
	drawer, exists := r.drawers[id]
	if !exists || drawer.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return drawer, nil
}

func (r *fakeCashDrawerRepo) FindAll(_ context.Context, tenantID uuid.UUID) ([]*finance.CashDrawer, error) {
	var result []*finance.CashDrawer
	for _, drawer := range r.drawers {
		if drawer.TenantID == tenantID {
			result = append(result, drawer)
		}
	}
	return result, nil
}

// fakeSequence numbers documents per kind
type fakeSequence struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeSequence() *fakeSequence {
	return &fakeSequence{counts: make(map[string]int)}
}

func (s *fakeSequence) Next(_ context.Context, tenantID uuid.UUID, kind string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tenantID.String() + ":" + kind
	s.counts[key]++
	return fmt.Sprintf("%s-2026-%06d", kind, s.counts[key]), nil
}

// fakeIdempotency remembers keys without expiry
type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]bool)}
}

func (s *fakeIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotency) Close() error { return nil }

// fakeAuthorizer allows everything unless a permission is denied
type fakeAuthorizer struct {
	denied map[string]bool
}

func newFakeAuthorizer() *fakeAuthorizer {
	return &fakeAuthorizer{denied: make(map[string]bool)}
}

func (a *fakeAuthorizer) Deny(permission string) {
	a.denied[permission] = true
}

func (a *fakeAuthorizer) Authorize(_ context.Context, _ identity.TenantContext, permission string) error {
	if a.denied[permission] {
		return shared.ErrInsufficientPermission.WithDetails("permission", permission)
	}
	return nil
}

// testEnv wires the three trade services over one fake store
type testEnv struct {
	ctx        context.Context
	tc         identity.TenantContext
	store      *fakeStore
	partyRepo  *fakePartyRepo
	drawerRepo *fakeCashDrawerRepo
	locker     *lock.MemoryLocker
	authorizer *fakeAuthorizer

	sales     *SaleService
	purchases *PurchaseService
	returns   *ReturnService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tenant, err := identity.NewTenant("ACME", "Acme Trading")
	require.NoError(t, err)
	user, err := identity.NewActiveUser(tenant.ID, "cashier1", "password123")
	require.NoError(t, err)
	tc, err := identity.BindTenant(tenant, user)
	require.NoError(t, err)

	store := newFakeStore()
	scope := &fakeScope{store: store}
	partyRepo := newFakePartyRepo()
	drawerRepo := newFakeCashDrawerRepo()
	sequence := newFakeSequence()
	idempotency := newFakeIdempotency()
	locker := lock.NewMemoryLocker()
	authorizer := newFakeAuthorizer()

	env := &testEnv{
		ctx:        context.Background(),
		tc:         tc,
		store:      store,
		partyRepo:  partyRepo,
		drawerRepo: drawerRepo,
		locker:     locker,
		authorizer: authorizer,
	}
	env.sales = NewSaleService(scope, &fakeSaleRepo{store}, partyRepo, drawerRepo, sequence, idempotency, locker, authorizer)
	env.purchases = NewPurchaseService(scope, &fakePurchaseRepo{store}, partyRepo, drawerRepo, sequence, idempotency, locker, authorizer)
	env.returns = NewReturnService(scope, &fakeReturnRepo{store}, &fakeSaleRepo{store}, drawerRepo, sequence, idempotency, locker, authorizer)
	for _, svc := range []interface{ SetLockTimings(ttl, wait time.Duration) }{env.sales, env.purchases, env.returns} {
		svc.SetLockTimings(time.Second, 50*time.Millisecond)
	}
	return env
}

func (e *testEnv) createCustomer(t *testing.T) *partner.Party {
	t.Helper()
	customer, err := partner.NewCustomer(e.tc.TenantID(), "CUST-1", "Jordan Lee")
	require.NoError(t, err)
	require.NoError(t, e.partyRepo.Create(e.ctx, customer))
	return customer
}

func (e *testEnv) createVendor(t *testing.T) *partner.Party {
	t.Helper()
	vendor, err := partner.NewVendor(e.tc.TenantID(), "VEND-1", "Acme Supply Co")
	require.NoError(t, err)
	require.NoError(t, e.partyRepo.Create(e.ctx, vendor))
	return vendor
}

func (e *testEnv) createDrawer(t *testing.T) *finance.CashDrawer {
	t.Helper()
	drawer, err := finance.NewCashDrawer(e.tc.TenantID(), "Front Desk")
	require.NoError(t, err)
	require.NoError(t, e.drawerRepo.Create(e.ctx, drawer))
	return drawer
}

// seedStock puts quantity on hand for a variant and location
func (e *testEnv) seedStock(t *testing.T, variantID, locationID uuid.UUID, quantity int64) ledger.InventoryKey {
	t.Helper()
	key := ledger.InventoryKey{TenantID: e.tc.TenantID(), VariantID: variantID, LocationID: locationID}
	level, err := inventory.NewInventoryLevel(key)
	require.NoError(t, err)
	level.Overwrite(decimal.NewFromInt(quantity))
	e.store.levels[key.String()] = *level
	return key
}

// seedDrawerCash puts cash into a drawer's USD amount
func (e *testEnv) seedDrawerCash(t *testing.T, drawerID uuid.UUID, amount int64) ledger.DrawerKey {
	t.Helper()
	key := ledger.DrawerKey{TenantID: e.tc.TenantID(), DrawerID: drawerID, Currency: e.tc.BaseCurrency()}
	row, err := finance.NewDrawerAmount(key)
	require.NoError(t, err)
	row.Overwrite(decimal.NewFromInt(amount))
	e.store.drawerAmounts[key.String()] = *row
	return key
}
