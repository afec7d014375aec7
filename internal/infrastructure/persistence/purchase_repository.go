package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseRepository implements PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// Create creates a new purchase with its lines
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *trade.Purchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(purchase).Error; err != nil {
			return err
		}
		for i := range purchase.Lines {
			purchase.Lines[i].PurchaseID = purchase.ID
			if err := tx.Create(&purchase.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock updates a purchase and its lines if the version is
// unchanged
func (r *GormPurchaseRepository) SaveWithLock(ctx context.Context, purchase *trade.Purchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&trade.Purchase{}).
			Where("id = ? AND version = ?", purchase.ID, purchase.Version-1).
			Updates(map[string]interface{}{
				"vendor_id":     purchase.VendorID,
				"vendor_name":   purchase.VendorName,
				"total_amount":  purchase.TotalAmount,
				"status":        purchase.Status,
				"remark":        purchase.Remark,
				"received_at":   purchase.ReceivedAt,
				"cancelled_at":  purchase.CancelledAt,
				"cancel_reason": purchase.CancelReason,
				"version":       purchase.Version,
				"updated_at":    purchase.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		lineIDs := make([]uuid.UUID, len(purchase.Lines))
		for i := range purchase.Lines {
			lineIDs[i] = purchase.Lines[i].ID
		}
		query := tx.Where("purchase_id = ?", purchase.ID)
		if len(lineIDs) > 0 {
			query = query.Where("id NOT IN ?", lineIDs)
		}
		if err := query.Delete(&trade.PurchaseLine{}).Error; err != nil {
			return err
		}
		for i := range purchase.Lines {
			purchase.Lines[i].PurchaseID = purchase.ID
			if err := tx.Save(&purchase.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a purchase with its lines within the tenant
func (r *GormPurchaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindByNumber finds a purchase by document number within the tenant
func (r *GormPurchaseRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*trade.Purchase, error) {
	var purchase trade.Purchase
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &purchase); err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *GormPurchaseRepository) loadLines(ctx context.Context, purchase *trade.Purchase) error {
	var lines []trade.PurchaseLine
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchase.ID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	purchase.Lines = lines
	return nil
}

var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
