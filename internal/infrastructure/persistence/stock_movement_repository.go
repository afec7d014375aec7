package persistence

import (
	"context"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements the append-only stock ledger
// on GORM. There is no update or delete path.
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Append persists a new movement
func (r *GormStockMovementRepository) Append(ctx context.Context, movement *ledger.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByKey returns all movements for an inventory key, oldest first
func (r *GormStockMovementRepository) FindByKey(ctx context.Context, key ledger.InventoryKey) ([]*ledger.StockMovement, error) {
	var movements []*ledger.StockMovement
	if err := byInventoryKey(r.db.WithContext(ctx), key).
		Order("occurred_at ASC, created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindBySource returns all movements produced by one document
func (r *GormStockMovementRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, source ledger.DocumentRef) ([]*ledger.StockMovement, error) {
	var movements []*ledger.StockMovement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_type = ? AND source_id = ?", tenantID, source.Type, source.ID).
		Order("occurred_at ASC, created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// SumByKey returns the signed-quantity sum over all movements for a key
func (r *GormStockMovementRepository) SumByKey(ctx context.Context, key ledger.InventoryKey) (decimal.Decimal, error) {
	increases := []ledger.MovementType{
		ledger.MovementTypeInbound,
		ledger.MovementTypeReturnIn,
		ledger.MovementTypeAdjustmentIncrease,
	}

	var sum decimal.NullDecimal
	if err := byInventoryKey(r.db.WithContext(ctx).Model(&ledger.StockMovement{}), key).
		Select("SUM(CASE WHEN movement_type IN ? THEN quantity ELSE -quantity END)", increases).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// ListKeys returns every distinct inventory key with at least one
// movement for the tenant
func (r *GormStockMovementRepository) ListKeys(ctx context.Context, tenantID uuid.UUID) ([]ledger.InventoryKey, error) {
	var rows []struct {
		VariantID  uuid.UUID
		LocationID uuid.UUID
		BatchID    *uuid.UUID
	}
	if err := r.db.WithContext(ctx).Model(&ledger.StockMovement{}).
		Distinct("variant_id", "location_id", "batch_id").
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make([]ledger.InventoryKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, ledger.InventoryKey{
			TenantID:   tenantID,
			VariantID:  row.VariantID,
			LocationID: row.LocationID,
			BatchID:    row.BatchID,
		})
	}
	return keys, nil
}

func byInventoryKey(db *gorm.DB, key ledger.InventoryKey) *gorm.DB {
	db = db.Where("tenant_id = ? AND variant_id = ? AND location_id = ?",
		key.TenantID, key.VariantID, key.LocationID)
	if key.BatchID != nil {
		return db.Where("batch_id = ?", *key.BatchID)
	}
	return db.Where("batch_id IS NULL")
}

var _ ledger.StockMovementRepository = (*GormStockMovementRepository)(nil)
