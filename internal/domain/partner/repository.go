package partner

import (
	"context"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
)

// PartyRepository defines the interface for party persistence
type PartyRepository interface {
	// Create creates a new party
	Create(ctx context.Context, party *Party) error

	// Update updates an existing party
	Update(ctx context.Context, party *Party) error

	// FindByID finds a party by ID within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Party, error)

	// FindByRef finds a party by its ledger reference within the tenant
	FindByRef(ctx context.Context, tenantID uuid.UUID, ref ledger.PartyRef) (*Party, error)

	// FindByCode finds a party by kind and code within the tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, kind ledger.PartyKind, code string) (*Party, error)

	// FindByKind returns all parties of one kind for the tenant
	FindByKind(ctx context.Context, tenantID uuid.UUID, kind ledger.PartyKind) ([]*Party, error)
}

// PartyBalanceRepository defines the interface for cached balance persistence
type PartyBalanceRepository interface {
	// GetOrCreate returns the balance for a party, creating a zero one if
	// none exists
	GetOrCreate(ctx context.Context, key ledger.BalanceKey) (*PartyBalance, error)

	// FindByKey returns the balance for a party, or ErrNotFound
	FindByKey(ctx context.Context, key ledger.BalanceKey) (*PartyBalance, error)

	// SaveWithLock updates a balance if its version is unchanged, returning
	// ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, balance *PartyBalance) error
}
