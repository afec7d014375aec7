package trade

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
)

// Authorizer checks that the acting user holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, tc identity.TenantContext, permission string) error
}

// Sequence kinds for document numbering
const (
	SequenceKindSale     = "SALE"
	SequenceKindPurchase = "PURCHASE"
	SequenceKindReturn   = "RETURN"
)

const (
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 3 * time.Second
)

// SaleService handles the sale document lifecycle. Completing a sale is
// the only way sale stock leaves the ledger: the status change, the
// outbound movements and the customer charge commit atomically.
type SaleService struct {
	scope       TransactionScope
	saleRepo    trade.SaleRepository
	partyRepo   partner.PartyRepository
	drawerRepo  finance.CashDrawerRepository
	sequence    shared.NumberSequence
	idempotency shared.IdempotencyStore
	locker      lock.KeyLocker
	authorizer  Authorizer

	eventPublisher shared.EventPublisher
	rates          finance.ExchangeRates
	lockTTL        time.Duration
	lockWait       time.Duration
}

// NewSaleService creates a new SaleService
func NewSaleService(
	scope TransactionScope,
	saleRepo trade.SaleRepository,
	partyRepo partner.PartyRepository,
	drawerRepo finance.CashDrawerRepository,
	sequence shared.NumberSequence,
	idempotency shared.IdempotencyStore,
	locker lock.KeyLocker,
	authorizer Authorizer,
) *SaleService {
	return &SaleService{
		scope:       scope,
		saleRepo:    saleRepo,
		partyRepo:   partyRepo,
		drawerRepo:  drawerRepo,
		sequence:    sequence,
		idempotency: idempotency,
		locker:      locker,
		authorizer:  authorizer,
		lockTTL:     defaultLockTTL,
		lockWait:    defaultLockWait,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLockTimings overrides the default lock TTL and acquire wait
func (s *SaleService) SetLockTimings(ttl, wait time.Duration) {
	s.lockTTL = ttl
	s.lockWait = wait
}

// SetExchangeRates enables payments in currencies other than the
// document currency. Without rates such payments are rejected.
func (s *SaleService) SetExchangeRates(rates finance.ExchangeRates) {
	s.rates = rates
}

// Create creates a new draft sale. Drafts produce no ledger entries.
func (s *SaleService) Create(ctx context.Context, tc identity.TenantContext, req CreateSaleRequest) (*SaleResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermSaleCreate); err != nil {
		return nil, err
	}

	number, err := s.sequence.Next(ctx, tc.TenantID(), SequenceKindSale)
	if err != nil {
		return nil, err
	}

	sale, err := trade.NewSale(tc.TenantID(), number, tc.BaseCurrency())
	if err != nil {
		return nil, err
	}

	if req.CustomerID != nil {
		ref, err := ledger.NewPartyRef(ledger.PartyKindCustomer, *req.CustomerID)
		if err != nil {
			return nil, err
		}
		customer, err := s.partyRepo.FindByRef(ctx, tc.TenantID(), ref)
		if err != nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("customer", req.CustomerID.String())
		}
		if !customer.IsActive() {
			return nil, shared.NewDomainError("PARTY_INACTIVE", "Customer is not active")
		}
		if err := sale.SetCustomer(customer.ID, customer.Name); err != nil {
			return nil, err
		}
	}

	for _, line := range req.Lines {
		if err := s.addLine(sale, tc, line); err != nil {
			return nil, err
		}
	}

	if req.Discount != nil {
		discount, err := valueobject.NewMoney(*req.Discount, tc.BaseCurrency())
		if err != nil {
			return nil, err
		}
		if err := sale.ApplyDiscount(discount); err != nil {
			return nil, err
		}
	}
	if req.Tax != nil {
		tax, err := valueobject.NewMoney(*req.Tax, tc.BaseCurrency())
		if err != nil {
			return nil, err
		}
		if err := sale.ApplyTax(tax); err != nil {
			return nil, err
		}
	}
	if req.Remark != "" {
		sale.Remark = req.Remark
	}

	if err := s.saleRepo.Create(ctx, sale); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sale)

	return NewSaleResponse(sale), nil
}

// AddLine adds a line to a draft sale
func (s *SaleService) AddLine(ctx context.Context, tc identity.TenantContext, req AddSaleLineRequest) (*SaleResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermSaleCreate); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}

	if err := s.addLine(sale, tc, req.Line); err != nil {
		return nil, err
	}

	if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
		return nil, err
	}

	return NewSaleResponse(sale), nil
}

// Complete completes a draft sale: per-line availability is checked under
// the inventory key locks, and one outbound movement per line plus the
// customer charge commit atomically with the status change. Any line
// short of stock aborts the whole operation.
func (s *SaleService) Complete(ctx context.Context, tc identity.TenantContext, req CompleteSaleRequest) (*SaleResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermSaleComplete); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}

	// A retried request that already went through is a success, not an error
	if req.IdempotencyKey != "" {
		done, err := s.idempotency.IsProcessed(ctx, idempotencyKey(tc, "sale-complete", req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if done && sale.Status == trade.SaleStatusCompleted {
			return NewSaleResponse(sale), nil
		}
	}

	lockKeys := inventoryLockKeys(tc, sale)
	if sale.CustomerID != nil {
		balanceKey := ledger.BalanceKey{
			TenantID: tc.TenantID(),
			Party:    ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: *sale.CustomerID},
		}
		lockKeys = append(lockKeys, balanceKey.String())
	}

	release, err := s.obtainAll(ctx, lockKeys)
	if err != nil {
		return nil, err
	}
	defer release()

	var movementIDs, txIDs []uuid.UUID
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movementIDs, txIDs = nil, nil

		fresh, err := repos.SaleRepo().FindByID(ctx, tc.TenantID(), req.SaleID)
		if err != nil {
			return err
		}
		sale = fresh

		if req.IdempotencyKey != "" && sale.Status == trade.SaleStatusCompleted {
			return nil
		}

		if err := sale.Complete(); err != nil {
			return err
		}

		for idx := range sale.Lines {
			line := &sale.Lines[idx]
			key := line.InventoryKey(tc.TenantID())

			level, err := repos.LevelRepo().GetOrCreate(ctx, key)
			if err != nil {
				return err
			}
			if !level.HasAvailable(line.Quantity) {
				return shared.ErrInsufficientStock.WithDetails("variant", line.VariantID.String())
			}

			movement, err := ledger.NewStockMovement(
				key,
				ledger.MovementTypeOutbound,
				line.Quantity,
				line.UnitCost,
				level.OnHand,
				sale.Ref().WithLine(line.ID),
			)
			if err != nil {
				return err
			}
			movement.WithOperatorID(tc.UserID())

			if err := level.Apply(movement); err != nil {
				return err
			}
			if err := repos.MovementRepo().Append(ctx, movement); err != nil {
				return err
			}
			if err := repos.LevelRepo().SaveWithLock(ctx, level); err != nil {
				return err
			}
			movementIDs = append(movementIDs, movement.ID)
		}

		if sale.CustomerID != nil {
			charge, err := s.chargeCustomer(ctx, repos, tc, sale)
			if err != nil {
				return err
			}
			txIDs = append(txIDs, charge.ID)
		}

		return repos.SaleRepo().SaveWithLock(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey(tc, "sale-complete", req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	s.publishEvents(ctx, sale)

	resp := NewSaleResponse(sale)
	resp.MovementIDs = movementIDs
	resp.TransactionIDs = txIDs
	return resp, nil
}

// Cancel cancels a draft sale. Nothing reaches the ledgers.
func (s *SaleService) Cancel(ctx context.Context, tc identity.TenantContext, req CancelSaleRequest) (*SaleResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermSaleCancel); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}

	if err := sale.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.saleRepo.SaveWithLock(ctx, sale); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, sale)

	return NewSaleResponse(sale), nil
}

// RecordPayment settles part of a completed sale. A cash payment appends
// one ledger transaction that both reduces the customer's balance and
// raises the drawer amount, atomically.
func (s *SaleService) RecordPayment(ctx context.Context, tc identity.TenantContext, req RecordPaymentRequest) (*SaleResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermPaymentRecord); err != nil {
		return nil, err
	}
	if !req.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}

	// Foreign-currency amounts convert before anything is locked; the
	// ledger and the drawer only ever see the document currency
	paidAmount := req.Amount
	if req.Currency != "" && valueobject.Currency(req.Currency) != tc.BaseCurrency() {
		currency := valueobject.Currency(req.Currency)
		if !currency.IsValid() {
			return nil, shared.ErrCurrencyNotFound.WithDetails("currency", req.Currency)
		}
		if s.rates == nil {
			return nil, shared.ErrCurrencyNotFound.WithDetails("currency", req.Currency)
		}
		paid, err := valueobject.NewMoney(req.Amount, currency)
		if err != nil {
			return nil, err
		}
		converted, err := finance.Convert(ctx, s.rates, paid, tc.BaseCurrency())
		if err != nil {
			return nil, err
		}
		paidAmount = converted.Amount()
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		done, err := s.idempotency.IsProcessed(ctx, idempotencyKey(tc, "payment", req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if done {
			return NewSaleResponse(sale), nil
		}
	}

	var drawerKey *ledger.DrawerKey
	if req.Method == ledger.PaymentMethodCash {
		if req.DrawerID == nil {
			return nil, shared.NewDomainError("DRAWER_REQUIRED", "Cash payments need a drawer")
		}
		drawer, err := s.drawerRepo.FindByID(ctx, tc.TenantID(), *req.DrawerID)
		if err != nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("drawer", req.DrawerID.String())
		}
		if !drawer.IsOpen {
			return nil, shared.NewDomainError("DRAWER_CLOSED", "Drawer is closed")
		}
		drawerKey = &ledger.DrawerKey{TenantID: tc.TenantID(), DrawerID: drawer.ID, Currency: tc.BaseCurrency()}
	}

	lockKeys := make([]string, 0, 2)
	var balanceKey *ledger.BalanceKey
	if sale.CustomerID != nil {
		balanceKey = &ledger.BalanceKey{
			TenantID: tc.TenantID(),
			Party:    ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: *sale.CustomerID},
		}
		lockKeys = append(lockKeys, balanceKey.String())
	}
	if drawerKey != nil {
		lockKeys = append(lockKeys, drawerKey.String())
	}

	release, err := s.obtainAll(ctx, lockKeys)
	if err != nil {
		return nil, err
	}
	defer release()

	var txIDs []uuid.UUID
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		txIDs = nil
		fresh, err := repos.SaleRepo().FindByID(ctx, tc.TenantID(), req.SaleID)
		if err != nil {
			return err
		}
		sale = fresh

		amount, err := valueobject.NewMoney(paidAmount, tc.BaseCurrency())
		if err != nil {
			return err
		}
		if err := sale.RecordPayment(amount); err != nil {
			return err
		}

		tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypePaymentIn, paidAmount, tc.BaseCurrency(), req.Method, sale.Ref())
		if err != nil {
			return err
		}
		tx.WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Payment for %s", sale.Number))
		if balanceKey != nil {
			tx.WithParty(balanceKey.Party)
		}
		if drawerKey != nil {
			tx.WithDrawer(drawerKey.DrawerID)
		}
		if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
			return err
		}
		txIDs = append(txIDs, tx.ID)

		if balanceKey != nil {
			balance, err := repos.BalanceRepo().GetOrCreate(ctx, *balanceKey)
			if err != nil {
				return err
			}
			if err := balance.Apply(tx); err != nil {
				return err
			}
			if err := repos.BalanceRepo().SaveWithLock(ctx, balance); err != nil {
				return err
			}
		}
		if drawerKey != nil {
			amountRow, err := repos.DrawerRepo().GetOrCreate(ctx, *drawerKey)
			if err != nil {
				return err
			}
			if err := amountRow.Apply(tx); err != nil {
				return err
			}
			if err := repos.DrawerRepo().SaveWithLock(ctx, amountRow); err != nil {
				return err
			}
		}

		return repos.SaleRepo().SaveWithLock(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey(tc, "payment", req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	resp := NewSaleResponse(sale)
	resp.TransactionIDs = txIDs
	return resp, nil
}

// Get returns a sale by ID
func (s *SaleService) Get(ctx context.Context, tc identity.TenantContext, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), saleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}
	return NewSaleResponse(sale), nil
}

func (s *SaleService) addLine(sale *trade.Sale, tc identity.TenantContext, line SaleLineRequest) error {
	unitPrice, err := valueobject.NewMoney(line.UnitPrice, tc.BaseCurrency())
	if err != nil {
		return err
	}
	unitCost, err := valueobject.NewMoney(line.UnitCost, tc.BaseCurrency())
	if err != nil {
		return err
	}
	_, err = sale.AddLine(line.VariantID, line.LocationID, line.ProductName, line.Quantity, unitPrice, unitCost)
	return err
}

// chargeCustomer appends the on-account charge for a completed sale
func (s *SaleService) chargeCustomer(ctx context.Context, repos TransactionalRepositories, tc identity.TenantContext, sale *trade.Sale) (*ledger.Transaction, error) {
	party := ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: *sale.CustomerID}

	tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypeCharge, sale.TotalAmount, tc.BaseCurrency(), ledger.PaymentMethodCredit, sale.Ref())
	if err != nil {
		return nil, err
	}
	tx.WithParty(party).WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Sale %s", sale.Number))

	if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
		return nil, err
	}

	balance, err := repos.BalanceRepo().GetOrCreate(ctx, ledger.BalanceKey{TenantID: tc.TenantID(), Party: party})
	if err != nil {
		return nil, err
	}
	if err := balance.Apply(tx); err != nil {
		return nil, err
	}
	if err := repos.BalanceRepo().SaveWithLock(ctx, balance); err != nil {
		return nil, err
	}
	return tx, nil
}

// obtainAll acquires the given lock keys in sorted order and returns one
// release function. Sorting keeps concurrent multi-key operations from
// deadlocking each other.
func (s *SaleService) obtainAll(ctx context.Context, keys []string) (func(), error) {
	return obtainAll(ctx, s.locker, keys, s.lockTTL, s.lockWait)
}

func (s *SaleService) publishEvents(ctx context.Context, sale *trade.Sale) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, sale.GetDomainEvents()...)
	sale.ClearDomainEvents()
}

func inventoryLockKeys(tc identity.TenantContext, sale *trade.Sale) []string {
	seen := make(map[string]bool, len(sale.Lines))
	keys := make([]string, 0, len(sale.Lines))
	for idx := range sale.Lines {
		key := sale.Lines[idx].InventoryKey(tc.TenantID()).String()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

func idempotencyKey(tc identity.TenantContext, operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", tc.TenantID(), operation, key)
}

func obtainAll(ctx context.Context, locker lock.KeyLocker, keys []string, ttl, wait time.Duration) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	held := make([]lock.Lock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.WithoutCancel(ctx))
		}
	}

	for _, key := range sorted {
		l, err := locker.Obtain(ctx, key, ttl, wait)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, l)
	}
	return release, nil
}
