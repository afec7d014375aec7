package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnService handles the return document lifecycle. Completing a
// return appends the restock movements and the refund transaction
// atomically with the status change.
type ReturnService struct {
	scope       TransactionScope
	returnRepo  trade.ReturnRepository
	saleRepo    trade.SaleRepository
	drawerRepo  finance.CashDrawerRepository
	sequence    shared.NumberSequence
	idempotency shared.IdempotencyStore
	locker      lock.KeyLocker
	authorizer  Authorizer

	eventPublisher shared.EventPublisher
	lockTTL        time.Duration
	lockWait       time.Duration
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	scope TransactionScope,
	returnRepo trade.ReturnRepository,
	saleRepo trade.SaleRepository,
	drawerRepo finance.CashDrawerRepository,
	sequence shared.NumberSequence,
	idempotency shared.IdempotencyStore,
	locker lock.KeyLocker,
	authorizer Authorizer,
) *ReturnService {
	return &ReturnService{
		scope:       scope,
		returnRepo:  returnRepo,
		saleRepo:    saleRepo,
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
func (s *ReturnService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLockTimings overrides the default lock TTL and acquire wait
func (s *ReturnService) SetLockTimings(ttl, wait time.Duration) {
	s.lockTTL = ttl
	s.lockWait = wait
}

// Create creates a pending return against a completed sale. Each line is
// capped at the sold quantity minus what earlier returns already took.
func (s *ReturnService) Create(ctx context.Context, tc identity.TenantContext, req CreateReturnRequest) (*ReturnResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReturnCreate); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), req.SaleID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(sale.TenantID); err != nil {
		return nil, err
	}

	number, err := s.sequence.Next(ctx, tc.TenantID(), SequenceKindReturn)
	if err != nil {
		return nil, err
	}

	ret, err := trade.NewReturn(sale, number, req.RefundMethod)
	if err != nil {
		return nil, err
	}

	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_RETURN", "Return must have at least one line")
	}
	for _, line := range req.Lines {
		saleLine := sale.FindLine(line.SaleLineID)
		if saleLine == nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("sale_line", line.SaleLineID.String())
		}
		alreadyReturned, err := s.returnRepo.SumReturnedQuantity(ctx, tc.TenantID(), line.SaleLineID)
		if err != nil {
			return nil, err
		}
		if _, err := ret.AddLine(saleLine, line.Quantity, alreadyReturned, line.Restock, line.Reason); err != nil {
			return nil, err
		}
	}
	if req.Remark != "" {
		ret.Remark = req.Remark
	}

	if err := s.returnRepo.Create(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	return NewReturnResponse(ret), nil
}

// Approve approves a pending return. The sale's state and the per-line
// cap are verified again here: two creates racing the same sale line can
// each pass the check in Create, and the oversubscription has to be
// caught before the return can reach the ledgers.
func (s *ReturnService) Approve(ctx context.Context, tc identity.TenantContext, req ApproveReturnRequest) (*ReturnResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReturnApprove); err != nil {
		return nil, err
	}

	ret, err := s.returnRepo.FindByID(ctx, tc.TenantID(), req.ReturnID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(ret.TenantID); err != nil {
		return nil, err
	}

	sale, err := s.saleRepo.FindByID(ctx, tc.TenantID(), ret.SaleID)
	if err != nil {
		return nil, err
	}
	if sale.Status != trade.SaleStatusCompleted {
		return nil, shared.ErrInvalidStateTransition.WithDetails("sale_status", sale.Status.String())
	}
	if err := checkReturnCap(ctx, s.returnRepo, tc.TenantID(), sale, ret); err != nil {
		return nil, err
	}

	if err := ret.Approve(tc.UserID()); err != nil {
		return nil, err
	}
	if err := s.returnRepo.SaveWithLock(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	return NewReturnResponse(ret), nil
}

// Reject rejects a pending return
func (s *ReturnService) Reject(ctx context.Context, tc identity.TenantContext, req RejectReturnRequest) (*ReturnResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReturnApprove); err != nil {
		return nil, err
	}

	ret, err := s.returnRepo.FindByID(ctx, tc.TenantID(), req.ReturnID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(ret.TenantID); err != nil {
		return nil, err
	}

	if err := ret.Reject(req.Reason); err != nil {
		return nil, err
	}
	if err := s.returnRepo.SaveWithLock(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	return NewReturnResponse(ret), nil
}

// Complete completes an approved return: restocked lines come back on
// hand, the refund goes out through the drawer or the customer balance,
// and a fully returned sale is marked refunded. All of it commits
// atomically with the status change.
func (s *ReturnService) Complete(ctx context.Context, tc identity.TenantContext, req CompleteReturnRequest) (*ReturnResponse, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReturnComplete); err != nil {
		return nil, err
	}

	ret, err := s.returnRepo.FindByID(ctx, tc.TenantID(), req.ReturnID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(ret.TenantID); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		done, err := s.idempotency.IsProcessed(ctx, idempotencyKey(tc, "return-complete", req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		if done && ret.Status == trade.ReturnStatusCompleted {
			return NewReturnResponse(ret), nil
		}
	}

	currency := valueobject.Currency(ret.Currency)

	var drawerKey *ledger.DrawerKey
	if ret.RefundMethod == trade.RefundMethodCash {
		if req.DrawerID == nil {
			return nil, shared.NewDomainError("DRAWER_REQUIRED", "Cash refunds require a drawer")
		}
		drawer, err := s.drawerRepo.FindByID(ctx, tc.TenantID(), *req.DrawerID)
		if err != nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("drawer", req.DrawerID.String())
		}
		if !drawer.IsOpen {
			return nil, shared.NewDomainError("DRAWER_CLOSED", "Drawer is not open")
		}
		drawerKey = &ledger.DrawerKey{TenantID: tc.TenantID(), DrawerID: drawer.ID, Currency: currency}
	}

	var balanceKey *ledger.BalanceKey
	if ret.RefundMethod == trade.RefundMethodBalance {
		if ret.CustomerID == nil {
			return nil, shared.ErrReferenceNotFound.WithDetails("entity", "customer")
		}
		balanceKey = &ledger.BalanceKey{
			TenantID: tc.TenantID(),
			Party:    ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: *ret.CustomerID},
		}
	}

	lockKeys := make([]string, 0, len(ret.Lines)+2)
	seen := make(map[string]bool)
	for idx := range ret.Lines {
		if !ret.Lines[idx].Restock {
			continue
		}
		key := ret.Lines[idx].InventoryKey(tc.TenantID()).String()
		if !seen[key] {
			seen[key] = true
			lockKeys = append(lockKeys, key)
		}
	}
	if drawerKey != nil {
		lockKeys = append(lockKeys, drawerKey.String())
	}
	if balanceKey != nil {
		lockKeys = append(lockKeys, balanceKey.String())
	}

	release, err := obtainAll(ctx, s.locker, lockKeys, s.lockTTL, s.lockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var movementIDs, txIDs []uuid.UUID
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movementIDs, txIDs = nil, nil
		fresh, err := repos.ReturnRepo().FindByID(ctx, tc.TenantID(), req.ReturnID)
		if err != nil {
			return err
		}
		ret = fresh

		if req.IdempotencyKey != "" && ret.Status == trade.ReturnStatusCompleted {
			return nil
		}

		sale, err := repos.SaleRepo().FindByID(ctx, tc.TenantID(), ret.SaleID)
		if err != nil {
			return err
		}

		// Prior returned quantities, read before this return commits.
		prior := make(map[uuid.UUID]decimal.Decimal, len(sale.Lines))
		for idx := range sale.Lines {
			line := &sale.Lines[idx]
			sum, err := repos.ReturnRepo().SumReturnedQuantity(ctx, tc.TenantID(), line.ID)
			if err != nil {
				return err
			}
			prior[line.ID] = sum
		}
		// The sums above include this return's own lines. Drop them so
		// saleFullyReturned counts this return exactly once.
		for idx := range ret.Lines {
			line := &ret.Lines[idx]
			prior[line.SaleLineID] = prior[line.SaleLineID].Sub(line.Quantity)
		}

		// Last line of defense for the cap, inside the atomic unit. An
		// oversubscribed return that somehow reached APPROVED must not
		// restock or refund.
		for idx := range ret.Lines {
			line := &ret.Lines[idx]
			saleLine := sale.FindLine(line.SaleLineID)
			if saleLine == nil {
				return shared.ErrReferenceNotFound.WithDetails("sale_line", line.SaleLineID.String())
			}
			if prior[line.SaleLineID].Add(line.Quantity).GreaterThan(saleLine.Quantity) {
				return shared.ErrInvalidStateTransition.WithDetails("sale_line", line.SaleLineID.String())
			}
		}

		if err := ret.Complete(); err != nil {
			return err
		}

		for _, line := range ret.RestockLines() {
			key := line.InventoryKey(tc.TenantID())
			saleLine := sale.FindLine(line.SaleLineID)
			if saleLine == nil {
				return shared.ErrReferenceNotFound.WithDetails("sale_line", line.SaleLineID.String())
			}

			level, err := repos.LevelRepo().GetOrCreate(ctx, key)
			if err != nil {
				return err
			}

			movement, err := ledger.NewStockMovement(
				key,
				ledger.MovementTypeReturnIn,
				line.Quantity,
				saleLine.UnitCost,
				level.OnHand,
				ret.Ref().WithLine(line.ID),
			)
			if err != nil {
				return err
			}
			movement.WithReason(line.Reason).WithOperatorID(tc.UserID())

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

		refund, err := ret.RefundMoney()
		if err != nil {
			return err
		}

		switch ret.RefundMethod {
		case trade.RefundMethodCash:
			tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypeRefund, refund.Amount(), currency, ledger.PaymentMethodCash, ret.Ref())
			if err != nil {
				return err
			}
			tx.WithDrawer(drawerKey.DrawerID).WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Refund for return %s", ret.Number))
			if ret.CustomerID != nil {
				tx.WithParty(ledger.PartyRef{Kind: ledger.PartyKindCustomer, ID: *ret.CustomerID})
			}
			if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
				return err
			}
			txIDs = append(txIDs, tx.ID)

			amount, err := repos.DrawerRepo().GetOrCreate(ctx, *drawerKey)
			if err != nil {
				return err
			}
			if err := amount.Apply(tx); err != nil {
				return err
			}
			if err := repos.DrawerRepo().SaveWithLock(ctx, amount); err != nil {
				return err
			}

		case trade.RefundMethodBalance:
			tx, err := ledger.NewTransaction(tc.TenantID(), ledger.TransactionTypeCredit, refund.Amount(), currency, ledger.PaymentMethodCredit, ret.Ref())
			if err != nil {
				return err
			}
			tx.WithParty(balanceKey.Party).WithOperatorID(tc.UserID()).WithDescription(fmt.Sprintf("Credit for return %s", ret.Number))
			if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
				return err
			}
			txIDs = append(txIDs, tx.ID)

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

		if saleFullyReturned(sale, ret, prior) {
			if err := sale.MarkRefunded(); err != nil {
				return err
			}
			if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
				return err
			}
		}

		return repos.ReturnRepo().SaveWithLock(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idempotencyKey(tc, "return-complete", req.IdempotencyKey), shared.DefaultIdempotencyConfig().TTL); err != nil {
			return nil, err
		}
	}

	s.publishEvents(ctx, ret)

	resp := NewReturnResponse(ret)
	resp.MovementIDs = movementIDs
	resp.TransactionIDs = txIDs
	return resp, nil
}

// Get returns a return by ID
func (s *ReturnService) Get(ctx context.Context, tc identity.TenantContext, returnID uuid.UUID) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, tc.TenantID(), returnID)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(ret.TenantID); err != nil {
		return nil, err
	}
	return NewReturnResponse(ret), nil
}

func (s *ReturnService) publishEvents(ctx context.Context, ret *trade.Return) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, ret.GetDomainEvents()...)
	ret.ClearDomainEvents()
}

// checkReturnCap verifies no sale line on the return is oversubscribed
// once every non-rejected return is counted. The sum includes this
// return's own lines, so exceeding the sold quantity means a concurrent
// return claimed the same units.
func checkReturnCap(ctx context.Context, repo trade.ReturnRepository, tenantID uuid.UUID, sale *trade.Sale, ret *trade.Return) error {
	for idx := range ret.Lines {
		line := &ret.Lines[idx]
		saleLine := sale.FindLine(line.SaleLineID)
		if saleLine == nil {
			return shared.ErrReferenceNotFound.WithDetails("sale_line", line.SaleLineID.String())
		}
		claimed, err := repo.SumReturnedQuantity(ctx, tenantID, line.SaleLineID)
		if err != nil {
			return err
		}
		if claimed.GreaterThan(saleLine.Quantity) {
			return shared.ErrInvalidStateTransition.WithDetails("sale_line", line.SaleLineID.String())
		}
	}
	return nil
}

// saleFullyReturned reports whether every sale line is fully covered by
// prior completed returns plus this one.
func saleFullyReturned(sale *trade.Sale, ret *trade.Return, prior map[uuid.UUID]decimal.Decimal) bool {
	returning := make(map[uuid.UUID]decimal.Decimal, len(ret.Lines))
	for idx := range ret.Lines {
		line := &ret.Lines[idx]
		returning[line.SaleLineID] = returning[line.SaleLineID].Add(line.Quantity)
	}

	for idx := range sale.Lines {
		line := &sale.Lines[idx]
		total := returning[line.ID].Add(prior[line.ID])
		if total.LessThan(line.Quantity) {
			return false
		}
	}
	return true
}
