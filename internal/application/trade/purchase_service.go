package trade

import (
	"context"
	"fmt"
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

// PurchaseService handles the purchase document lifecycle. Receiving a
// purchase appends the inbound movements and the vendor credit
// atomically with the status change.
type PurchaseService struct {
	scope        TransactionScope
	purchaseRepo trade.PurchaseRepository
	partyRepo    partner.PartyRepository
	drawerRepo   finance.CashDrawerRepository
	sequence     shared.NumberSequence
	idempotency  shared.IdempotencyStore
	locker       lock.KeyLocker
	authorizer   Authorizer

	eventPublisher shared.EventPublisher
	lockTTL        time.Duration
	lockWait       time.Duration
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	scope TransactionScope,
	purchaseRepo trade.PurchaseRepository,
	partyRepo partner.PartyRepository,
	drawerRepo finance.CashDrawerRepository,
	sequence shared.NumberSequence,
	idempotency shared.IdempotencyStore,
	locker lock.KeyLocker,
	authorizer Authorizer,
) *PurchaseService {
	return &PurchaseService{
		scope:        scope,
		purchaseRepo: purchaseRepo,
		partyRepo:    partyRepo,
		drawerRepo:   drawerRepo,
		sequence:     sequence,
		idempotency:  idempotency,
		locker:       locker,
		authorizer:   authorizer,
		lockTTL:      defaultLockTTL,
		lockWait:     defaultLockWait,
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PurchaseService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLockTimings overrides the default lock TTL and acquire wait
func (s *PurchaseService) SetLockTimings(ttl, wait time.Duration) {
	s.lockTTL = ttl
	s.lockWait = wait
}

// Create creates a new pending purchase
func (s *PurchaseService) Create(ctx context.Context, tc identity.TenantContext, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermPurchaseCreate); err != nil {
		return nil, err
	}

	vendorRef, err := ledger.NewPartyRef(ledger.PartyKindVendor, req.VendorID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.partyRepo.FindByRef(ctx, tc.TenantID(), vendorRef)
	if err != nil {
		return nil, shared.ErrReferenceNotFound.WithDetails("vendor", req.VendorID.String())
	}
	if !vendor.IsActive() {
		return nil, shared.NewDomainError("PARTY_INACTIVE", "Vendor is not active")
	}

	number, err := s.sequence.Next(ctx, tc.TenantID(), SequenceKindPurchase)
	if err != nil {
		return nil, err
	}

	purchase, err := trade.NewPurchase(tc.TenantID(), number, vendor.ID, vendor.Name, tc.BaseCurrency())
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		unitCost, err := valueobject.NewMoney(line.UnitCost, tc.BaseCurrency())
		if err != nil {
			return nil, err
		}
		if _, err := purchase.AddLine(line.VariantID, line.LocationID, line.ProductName, line.Quantity, unitCost); err != nil {
			return nil, err
		}
	}
	if req.Remark != "" {
		purchase.Remark = req.Remark
	}

	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, purchase)

	return NewPurchaseResponse(purchase), nil
}

// Receive receives a pending purchase: one inbound movement per line and
// the vendor credit commit atomically with the status change.
func (s *PurchaseService) Receive(ctx context.Context, tc identity.TenantContext, req ReceivePurchaseRequest) (*PurchaseResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermPurchaseReceive); err != nil {
		return nil, err
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, tc.TenantID(), req.PurchaseID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(purchase.TenantID); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		done, err := s.idempotency.IsProcessed(ctx, idempotencyKey(tc, "purchase-receive", req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if done && purchase.Status == trade.PurchaseStatusReceived {
			return NewPurchaseResponse(purchase), nil
		}
	}

	if err := assignBatches(purchase, req.BatchAssignments); err != nil {
		return nil, err
	}

	balanceKey := ledger.BalanceKey{
		TenantID: tc.TenantID(),
		Party:    ledger.PartyRef{Kind: ledger.PartyKindVendor, ID: purchase.VendorID},
	}
	lockKeys := make([]string, 0, len(purchase.Lines)+1)
	seen := make(map[string]bool)
	for idx := range purchase.Lines {
		key := purchase.Lines[idx].InventoryKey(tc.TenantID()).String()
		if !seen[key] {
			seen[key] = true
			lockKeys = append(lockKeys, key)
		}
	}
	lockKeys = append(lockKeys, balanceKey.String())

	release, err := obtainAll(ctx, s.locker, lockKeys, s.lockTTL, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var movementIDs, txIDs []uuid.UUID
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movementIDs, txIDs = nil, nil
		fresh, err := repos.PurchaseRepo().FindByID(ctx, tc.TenantID(), req.PurchaseID)
		if err != nil {
			return err
		}
		purchase = fresh

		if req.IdempotencyKey != "" && purchase.Status == trade.PurchaseStatusReceived {
			return nil
		}

		if err := assignBatches(purchase, req.BatchAssignments); err != nil {
			return err
		}
		if err := purchase.Receive(); err != nil {
			return err
		}

		for idx := range purchase.Lines {
			line := &purchase.Lines[idx]
			key := line.InventoryKey(tc.TenantID())

			level, err := repos.LevelRepo().GetOrCreate(ctx, key)
			if err != nil {
				return err
			}

			movement, err := ledger.NewStockMovement(
				key,
				ledger.MovementTypeInbound,
				line.Quantity,
				line.UnitCost,
				level.OnHand,
				purchase.Ref().WithLine(line.ID),
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

		tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypeCredit, purchase.TotalAmount, tc.BaseCurrency(), ledger.PaymentMethodCredit, purchase.Ref())
		if err != nil {
			return err
		}
		tx.WithParty(balanceKey.Party).WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Purchase %s", purchase.Number))
		if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
			return err
		}
		txIDs = append(txIDs, tx.ID)

		balance, err := repos.BalanceRepo().GetOrCreate(ctx, balanceKey)
		if err != nil {
			return err
		}
		if err := balance.Apply(tx); err != nil {
			return err
		}
		if err := repos.BalanceRepo().SaveWithLock(ctx, balance); err != nil {
			return err
		}

		return repos.PurchaseRepo().SaveWithLock(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey(tc, "purchase-receive", req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	s.publishEvents(ctx, purchase)

	resp := NewPurchaseResponse(purchase)
	resp.MovementIDs = movementIDs
	resp.TransactionIDs = txIDs
	return resp, nil
}

// RecordPayment pays down what the tenant owes a vendor for a received
// purchase. The outgoing transaction raises the vendor balance toward
// zero; cash payments also draw the amount out of the drawer.
func (s *PurchaseService) RecordPayment(ctx context.Context, tc identity.TenantContext, req RecordPurchasePaymentRequest) (*PurchaseResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermPaymentRecord); err != nil {
		return nil, err
	}
	if !req.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if !req.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, tc.TenantID(), req.PurchaseID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(purchase.TenantID); err != nil {
		return nil, err
	}
	if purchase.Status != trade.PurchaseStatusReceived {
		return nil, shared.ErrInvalidStateTransition.WithDetails("status", purchase.Status.String())
	}

	if req.IdempotencyKey != "" {
		done, err := s.idempotency.IsProcessed(ctx, idempotencyKey(tc, "vendor-payment", req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if done {
			return NewPurchaseResponse(purchase), nil
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

	balanceKey := ledger.BalanceKey{
		TenantID: tc.TenantID(),
		Party:    ledger.PartyRef{Kind: ledger.PartyKindVendor, ID: purchase.VendorID},
	}
	lockKeys := []string{balanceKey.String()}
	if drawerKey != nil {
		lockKeys = append(lockKeys, drawerKey.String())
	}

	release, err := obtainAll(ctx, s.locker, lockKeys, s.lockTTL, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var txIDs []uuid.UUID
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		txIDs = nil
		fresh, err := repos.PurchaseRepo().FindByID(ctx, tc.TenantID(), req.PurchaseID)
		if err != nil {
			return err
		}
		purchase = fresh

		if purchase.Status != trade.PurchaseStatusReceived {
			return shared.ErrInvalidStateTransition.WithDetails("status", purchase.Status.String())
		}

		tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypePaymentOut, req.Amount, tc.BaseCurrency(), req.Method, purchase.Ref())
		if err != nil {
			return err
		}
		tx.WithParty(balanceKey.Party).WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Payment for %s", purchase.Number))
		if drawerKey != nil {
			tx.WithDrawer(drawerKey.DrawerID)
		}
		if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
			return err
		}
		txIDs = append(txIDs, tx.ID)

		balance, err := repos.BalanceRepo().GetOrCreate(ctx, balanceKey)
		if err != nil {
			return err
		}
		if err := balance.Apply(tx); err != nil {
			return err
		}
		if err := repos.BalanceRepo().SaveWithLock(ctx, balance); err != nil {
			return err
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

		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey(tc, "vendor-payment", req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	resp := NewPurchaseResponse(purchase)
	resp.TransactionIDs = txIDs
	return resp, nil
}

// Cancel cancels a pending purchase
func (s *PurchaseService) Cancel(ctx context.Context, tc identity.TenantContext, req CancelPurchaseRequest) (*PurchaseResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermPurchaseCancel); err != nil {
		return nil, err
	}

	purchase, err := s.purchaseRepo.FindByID(ctx, tc.TenantID(), req.PurchaseID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(purchase.TenantID); err != nil {
		return nil, err
	}

	if err := purchase.Cancel(req.Reason); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.SaveWithLock(ctx, purchase); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, purchase)

	return NewPurchaseResponse(purchase), nil
}

// Get returns a purchase by ID
func (s *PurchaseService) Get(ctx context.Context, tc identity.TenantContext, purchaseID uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, tc.TenantID(), purchaseID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(purchase.TenantID); err != nil {
		return nil, err
	}
	return NewPurchaseResponse(purchase), nil
}

func assignBatches(purchase *trade.Purchase, assignments map[uuid.UUID]uuid.UUID) error {
	for lineID, batchID := range assignments {
		line := purchase.FindLine(lineID)
		if line == nil {
			return shared.ErrReferenceNotFound.WithDetails("purchase_line", lineID.String())
		}
		if err := line.AssignBatch(batchID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PurchaseService) publishEvents(ctx context.Context, purchase *trade.Purchase) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, purchase.GetDomainEvents()...)
	purchase.ClearDomainEvents()
}
