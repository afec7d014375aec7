package reconcile

import (
	"context"
	"errors"
	"time"

	apptrade "github.com/easyshop/backend/internal/application/trade"
	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config controls how reconciliation corrects drift. Inventory levels
// and party balances are always overwritten from the ledger; cash
// drawers may instead get a corrective ledger entry, treating the
// counted drawer amount as the truth the ledger has to catch up with.
type Config struct {
	DrawerResolution ledger.DriftResolution
	LockTTL          time.Duration
	LockWait         time.Duration
}

// DefaultConfig returns the default reconciliation configuration
func DefaultConfig() Config {
	return Config{
		DrawerResolution: ledger.DriftResolutionOverwrite,
		LockTTL:          30 * time.Second,
		LockWait:         3 * time.Second,
	}
}

// Service recomputes cached aggregates from their ledgers. Every key is
// checked under the same lock the document services hold, so a check
// never races a transition. Drift is logged and corrected, never
// surfaced to callers.
type Service struct {
	scope        apptrade.TransactionScope
	tenantRepo   identity.TenantRepository
	movementRepo ledger.StockMovementRepository
	ledgerRepo   ledger.TransactionRepository
	locker       lock.KeyLocker
	authorizer   apptrade.Authorizer
	config       Config
	logger       *zap.Logger
}

// NewService creates a new reconciliation service
func NewService(
	scope apptrade.TransactionScope,
	tenantRepo identity.TenantRepository,
	movementRepo ledger.StockMovementRepository,
	ledgerRepo ledger.TransactionRepository,
	locker lock.KeyLocker,
	authorizer apptrade.Authorizer,
	config Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		scope:        scope,
		tenantRepo:   tenantRepo,
		movementRepo: movementRepo,
		ledgerRepo:   ledgerRepo,
		locker:       locker,
		authorizer:   authorizer,
		config:       config,
		logger:       logger,
	}
}

// DriftReport describes one corrected drift
type DriftReport struct {
	AggregateKey string          `json:"aggregate_key"`
	CachedValue  decimal.Decimal `json:"cached_value"`
	LedgerValue  decimal.Decimal `json:"ledger_value"`
	Resolution   string          `json:"resolution"`

	// CorrectionID names the ledger entry a corrective-entry
	// resolution appended. Nil when the cache was overwritten.
	CorrectionID *uuid.UUID `json:"correction_id,omitempty"`
}

// Result summarizes one reconcile run
type Result struct {
	RunID       uuid.UUID     `json:"run_id"`
	KeysChecked int           `json:"keys_checked"`
	Drifts      []DriftReport `json:"drifts"`
}

// ReconcileKey reconciles a single aggregate key on demand
func (s *Service) ReconcileKey(ctx context.Context, tc identity.TenantContext, key ledger.AggregateKey) (*Result, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReconcileRun); err != nil {
		return nil, err
	}
	if err := tc.Owns(key.Tenant()); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New()}
	if err := s.reconcileOne(ctx, key, tc.BaseCurrency(), result); err != nil {
		return nil, err
	}
	return result, nil
}

// ReconcileTenant sweeps every aggregate key of one tenant
func (s *Service) ReconcileTenant(ctx context.Context, tc identity.TenantContext) (*Result, error) {
	if err := s.authorizer.Authorize(ctx, tc, identity.PermReconcileRun); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New()}
	if err := s.sweepTenant(ctx, tc.TenantID(), tc.BaseCurrency(), result); err != nil {
		return nil, err
	}

	s.logger.Info("Reconcile run finished",
		zap.String("run_id", result.RunID.String()),
		zap.String("tenant_id", tc.TenantID().String()),
		zap.Int("keys_checked", result.KeysChecked),
		zap.Int("drifts", len(result.Drifts)))

	return result, nil
}

// Run sweeps every active tenant. The background loop calls this on a
// fixed interval.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	tenants, err := s.tenantRepo.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New()}
	for _, tenant := range tenants {
		if err := s.sweepTenant(ctx, tenant.ID, tenant.BaseCurrency(), result); err != nil {
			s.logger.Error("Tenant sweep failed",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Reconcile run finished",
		zap.String("run_id", result.RunID.String()),
		zap.Int("tenants", len(tenants)),
		zap.Int("keys_checked", result.KeysChecked),
		zap.Int("drifts", len(result.Drifts)))

	return result, nil
}

func (s *Service) sweepTenant(ctx context.Context, tenantID uuid.UUID, baseCurrency valueobject.Currency, result *Result) error {
	inventoryKeys, err := s.movementRepo.ListKeys(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, key := range inventoryKeys {
		if err := s.reconcileOne(ctx, key, baseCurrency, result); err != nil {
			return err
		}
	}

	balanceKeys, err := s.ledgerRepo.ListBalanceKeys(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, key := range balanceKeys {
		if err := s.reconcileOne(ctx, key, baseCurrency, result); err != nil {
			return err
		}
	}

	drawerKeys, err := s.ledgerRepo.ListDrawerKeys(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, key := range drawerKeys {
		if err := s.reconcileOne(ctx, key, baseCurrency, result); err != nil {
			return err
		}
	}

	return nil
}

// reconcileOne checks one key under its lock. A key another operation
// holds right now is skipped; the next run picks it up.
func (s *Service) reconcileOne(ctx context.Context, key ledger.AggregateKey, baseCurrency valueobject.Currency, result *Result) error {
	held, err := s.locker.Obtain(ctx, key.String(), s.config.LockTTL, s.config.LockWait)
	if err != nil {
		if errors.Is(err, shared.ErrBusy) {
			s.logger.Debug("Aggregate key busy, skipping", zap.String("key", key.String()))
			return nil
		}
		return err
	}
	defer func() { _ = held.Release(context.WithoutCancel(ctx)) }()

	result.KeysChecked++

	switch k := key.(type) {
	case ledger.InventoryKey:
		return s.reconcileInventory(ctx, k, result)
	case ledger.BalanceKey:
		return s.reconcileBalance(ctx, k, baseCurrency, result)
	case ledger.DrawerKey:
		return s.reconcileDrawer(ctx, k, result)
	default:
		return shared.NewDomainError("UNKNOWN_AGGREGATE_KEY", "Unknown aggregate key type")
	}
}

func (s *Service) reconcileInventory(ctx context.Context, key ledger.InventoryKey, result *Result) error {
	return s.scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		ledgerSum, err := repos.MovementRepo().SumByKey(ctx, key)
		if err != nil {
			return err
		}
		level, err := repos.LevelRepo().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}

		// Quantities reconcile exactly; there is no rounding to tolerate.
		if level.OnHand.Equal(ledgerSum) {
			return nil
		}

		if _, err := s.recordDrift(ctx, repos, key, level.OnHand, ledgerSum, ledger.DriftResolutionOverwrite, result); err != nil {
			return err
		}

		level.Overwrite(ledgerSum)
		return repos.LevelRepo().SaveWithLock(ctx, level)
	})
}

func (s *Service) reconcileBalance(ctx context.Context, key ledger.BalanceKey, baseCurrency valueobject.Currency, result *Result) error {
	return s.scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		ledgerSum, err := repos.LedgerRepo().SumBalanceByParty(ctx, key)
		if err != nil {
			return err
		}
		balance, err := repos.BalanceRepo().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}

		if withinEpsilon(balance.Balance, ledgerSum, baseCurrency) {
			return nil
		}

		if _, err := s.recordDrift(ctx, repos, key, balance.Balance, ledgerSum, ledger.DriftResolutionOverwrite, result); err != nil {
			return err
		}

		balance.Overwrite(ledgerSum)
		return repos.BalanceRepo().SaveWithLock(ctx, balance)
	})
}

func (s *Service) reconcileDrawer(ctx context.Context, key ledger.DrawerKey, result *Result) error {
	return s.scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		ledgerSum, err := repos.LedgerRepo().SumCashByDrawer(ctx, key)
		if err != nil {
			return err
		}
		amount, err := repos.DrawerRepo().GetOrCreate(ctx, key)
		if err != nil {
			return err
		}

		if withinEpsilon(amount.Amount, ledgerSum, key.Currency) {
			return nil
		}

		resolution := s.config.DrawerResolution
		if _, err := s.recordDrift(ctx, repos, key, amount.Amount, ledgerSum, resolution, result); err != nil {
			return err
		}

		if resolution == ledger.DriftResolutionCorrectiveEntry {
			// The counted drawer amount stays; append the entry that
			// brings the ledger sum up to it.
			correctionID, err := s.appendDrawerCorrection(ctx, repos, key, amount.Amount.Sub(ledgerSum), result.RunID)
			if err != nil {
				return err
			}
			result.Drifts[len(result.Drifts)-1].CorrectionID = &correctionID
			return nil
		}

		amount.Overwrite(ledgerSum)
		return repos.DrawerRepo().SaveWithLock(ctx, amount)
	})
}

func (s *Service) appendDrawerCorrection(
	ctx context.Context,
	repos apptrade.TransactionalRepositories,
	key ledger.DrawerKey,
	diff decimal.Decimal,
	runID uuid.UUID,
) (uuid.UUID, error) {
	txType := ledger.TransactionTypeDrawerDeposit
	if diff.IsNegative() {
		txType = ledger.TransactionTypeDrawerWithdrawal
	}

	source, err := ledger.NewDocumentRef(ledger.DocumentTypeReconcile, runID)
	if err != nil {
		return uuid.Nil, err
	}
	tx, err := ledger.NewTransaction(key.TenantID, txType, diff.Abs(), key.Currency, ledger.PaymentMethodCash, source)
	if err != nil {
		return uuid.Nil, err
	}
	tx.WithDrawer(key.DrawerID).WithDescription("Reconciliation correction")

	if err := repos.LedgerRepo().Append(ctx, tx); err != nil {
		return uuid.Nil, err
	}
	return tx.ID, nil
}

func (s *Service) recordDrift(
	ctx context.Context,
	repos apptrade.TransactionalRepositories,
	key ledger.AggregateKey,
	cached, ledgerSum decimal.Decimal,
	resolution ledger.DriftResolution,
	result *Result,
) (*ledger.ReconciliationDrift, error) {
	drift, err := ledger.NewReconciliationDrift(key, cached, ledgerSum, resolution, result.RunID)
	if err != nil {
		return nil, err
	}
	if err := repos.DriftRepo().Save(ctx, drift); err != nil {
		return nil, err
	}

	s.logger.Warn("Reconciliation drift detected",
		zap.String("run_id", result.RunID.String()),
		zap.String("key", key.String()),
		zap.String("cached", cached.String()),
		zap.String("ledger", ledgerSum.String()),
		zap.String("resolution", string(resolution)))

	result.Drifts = append(result.Drifts, DriftReport{
		AggregateKey: key.String(),
		CachedValue:  cached,
		LedgerValue:  ledgerSum,
		Resolution:   string(resolution),
	})

	return drift, nil
}

// withinEpsilon tolerates rounding up to half a minor unit of the
// currency, the same tolerance Money.WithinEpsilon uses.
func withinEpsilon(cached, ledgerSum decimal.Decimal, currency valueobject.Currency) bool {
	return cached.Sub(ledgerSum).Abs().LessThanOrEqual(currency.Epsilon())
}
