package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// Create creates a new sale with its lines
	Create(ctx context.Context, sale *Sale) error

	// SaveWithLock updates a sale and its lines if the version is
	// unchanged, returning ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, sale *Sale) error

	// FindByID finds a sale with its lines within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)

	// FindByNumber finds a sale by document number within the tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Sale, error)

	// FindByCustomer returns all sales for a customer, newest first
	FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) ([]*Sale, error)
}

// PurchaseRepository defines the interface for purchase persistence
type PurchaseRepository interface {
	// Create creates a new purchase with its lines
	Create(ctx context.Context, purchase *Purchase) error

	// SaveWithLock updates a purchase and its lines if the version is
	// unchanged, returning ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, purchase *Purchase) error

	// FindByID finds a purchase with its lines within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)

	// FindByNumber finds a purchase by document number within the tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Purchase, error)
}

// ReturnRepository defines the interface for return persistence
type ReturnRepository interface {
	// Create creates a new return with its lines
	Create(ctx context.Context, ret *Return) error

	// SaveWithLock updates a return and its lines if the version is
	// unchanged, returning ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, ret *Return) error

	// FindByID finds a return with its lines within the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Return, error)

	// FindBySale returns all returns against one sale
	FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]*Return, error)

	// SumReturnedQuantity returns the quantity of one sale line already
	// returned by non-rejected returns
	SumReturnedQuantity(ctx context.Context, tenantID, saleLineID uuid.UUID) (decimal.Decimal, error)
}
