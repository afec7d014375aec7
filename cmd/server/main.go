package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	identityapp "github.com/easyshop/backend/internal/application/identity"
	"github.com/easyshop/backend/internal/application/reconcile"
	tradeapp "github.com/easyshop/backend/internal/application/trade"
	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/infrastructure/cache"
	"github.com/easyshop/backend/internal/infrastructure/config"
	"github.com/easyshop/backend/internal/infrastructure/event"
	"github.com/easyshop/backend/internal/infrastructure/lock"
	"github.com/easyshop/backend/internal/infrastructure/logger"
	"github.com/easyshop/backend/internal/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting EasyShop Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database migrated")

	// Locking and idempotency live in Redis when available so multiple
	// instances share them, otherwise in process memory
	var (
		locker      lock.KeyLocker
		idempotency shared.IdempotencyStore
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		locker = lock.NewRedisLocker(redisClient)
		idempotency = cache.NewRedisIdempotencyStore(redisClient, "idempotency:")
		log.Info("Using Redis for locks and idempotency", zap.String("addr", cfg.Redis.Addr()))
	} else {
		locker = lock.NewMemoryLocker()
		memStore := cache.NewMemoryIdempotencyStore()
		defer func() {
			_ = memStore.Close()
		}()
		idempotency = memStore
		log.Info("Using in-memory locks and idempotency")
	}

	// Repositories
	gormDB := db.DB
	tenantRepo := persistence.NewGormTenantRepository(gormDB)
	userRepo := persistence.NewGormUserRepository(gormDB)
	roleRepo := persistence.NewGormRoleRepository(gormDB)
	partyRepo := persistence.NewGormPartyRepository(gormDB)
	cashDrawerRepo := persistence.NewGormCashDrawerRepository(gormDB)
	saleRepo := persistence.NewGormSaleRepository(gormDB)
	purchaseRepo := persistence.NewGormPurchaseRepository(gormDB)
	returnRepo := persistence.NewGormReturnRepository(gormDB)
	movementRepo := persistence.NewGormStockMovementRepository(gormDB)
	ledgerRepo := persistence.NewGormTransactionRepository(gormDB)
	sequence := persistence.NewGormNumberSequence(gormDB)
	scope := persistence.NewGormTransactionScope(gormDB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewLoggingHandler(log))

	// Identity services
	permissionService := identityapp.NewPermissionService(userRepo, roleRepo, log)
	authService := identityapp.NewAuthService(tenantRepo, userRepo, permissionService, log)
	tenantService := identityapp.NewTenantService(tenantRepo, userRepo, roleRepo, log)
	userService := identityapp.NewUserService(userRepo, roleRepo, log)
	roleService := identityapp.NewRoleService(roleRepo, log)

	// Trade services
	saleService := tradeapp.NewSaleService(scope, saleRepo, partyRepo, cashDrawerRepo,
		sequence, idempotency, locker, permissionService)
	purchaseService := tradeapp.NewPurchaseService(scope, purchaseRepo, partyRepo, cashDrawerRepo,
		sequence, idempotency, locker, permissionService)
	returnService := tradeapp.NewReturnService(scope, returnRepo, saleRepo, cashDrawerRepo,
		sequence, idempotency, locker, permissionService)

	for _, s := range []interface {
		SetEventPublisher(shared.EventPublisher)
		SetLockTimings(ttl, wait time.Duration)
	}{saleService, purchaseService, returnService} {
		s.SetEventPublisher(eventBus)
		s.SetLockTimings(cfg.Lock.TTL, cfg.Lock.AcquireWait)
	}

	if len(cfg.Exchange.Rates) > 0 {
		rates := make(finance.StaticRates, len(cfg.Exchange.Rates))
		for pair, value := range cfg.Exchange.Rates {
			rate, err := decimal.NewFromString(value)
			if err != nil {
				log.Fatal("Invalid exchange rate", zap.String("pair", pair), zap.Error(err))
			}
			rates[strings.ToUpper(pair)] = rate
		}
		saleService.SetExchangeRates(rates)
		log.Info("Exchange rates loaded", zap.Int("pairs", len(rates)))
	}

	// Reconciliation
	reconcileConfig := reconcile.DefaultConfig()
	reconcileConfig.LockTTL = cfg.Lock.TTL
	reconcileConfig.LockWait = cfg.Lock.AcquireWait
	if cfg.Reconciliation.DrawerResolution == "corrective-entry" {
		reconcileConfig.DrawerResolution = ledger.DriftResolutionCorrectiveEntry
	}
	reconcileService := reconcile.NewService(scope, tenantRepo, movementRepo, ledgerRepo,
		locker, permissionService, reconcileConfig, log)

	// The service container is what an interface layer (HTTP, CLI, jobs)
	// consumes. Background reconciliation is the only consumer wired here.
	app := &services{
		Auth:      authService,
		Tenants:   tenantService,
		Users:     userService,
		Roles:     roleService,
		Sales:     saleService,
		Purchases: purchaseService,
		Returns:   returnService,
		Reconcile: reconcileService,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reconciliation.Enabled {
		go runReconciliationLoop(ctx, app.Reconcile, cfg.Reconciliation.Interval, log)
	}

	log.Info("EasyShop Backend started")
	<-ctx.Done()
	log.Info("Shutting down")
}

// services aggregates every application service the backend exposes
type services struct {
	Auth      *identityapp.AuthService
	Tenants   *identityapp.TenantService
	Users     *identityapp.UserService
	Roles     *identityapp.RoleService
	Sales     *tradeapp.SaleService
	Purchases *tradeapp.PurchaseService
	Returns   *tradeapp.ReturnService
	Reconcile *reconcile.Service
}

// runReconciliationLoop sweeps every active tenant on a fixed interval
// until the context is cancelled
func runReconciliationLoop(ctx context.Context, svc *reconcile.Service, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.Run(ctx)
			if err != nil {
				log.Error("Reconciliation run failed", zap.Error(err))
				continue
			}
			log.Info("Reconciliation run finished",
				zap.String("run_id", result.RunID.String()),
				zap.Int("keys_checked", result.KeysChecked),
				zap.Int("drifts", len(result.Drifts)),
			)
		}
	}
}
