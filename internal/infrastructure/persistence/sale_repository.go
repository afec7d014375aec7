package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Create creates a new sale with its lines
func (r *GormSaleRepository) Create(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		for i := range sale.Lines {
			sale.Lines[i].SaleID = sale.ID
			if err := tx.Create(&sale.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock updates a sale and its lines if the version is unchanged
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&trade.Sale{}).
			Where("id = ? AND version = ?", sale.ID, sale.Version-1).
			Updates(map[string]interface{}{
				"customer_id":     sale.CustomerID,
				"customer_name":   sale.CustomerName,
				"subtotal":        sale.Subtotal,
				"discount_amount": sale.DiscountAmount,
				"tax_amount":      sale.TaxAmount,
				"total_amount":    sale.TotalAmount,
				"paid_amount":     sale.PaidAmount,
				"status":          sale.Status,
				"payment_status":  sale.PaymentStatus,
				"remark":          sale.Remark,
				"completed_at":    sale.CompletedAt,
				"cancelled_at":    sale.CancelledAt,
				"cancel_reason":   sale.CancelReason,
				"version":         sale.Version,
				"updated_at":      sale.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return syncSaleLines(tx, sale)
	})
}

func syncSaleLines(tx *gorm.DB, sale *trade.Sale) error {
	lineIDs := make([]uuid.UUID, len(sale.Lines))
	for i := range sale.Lines {
		lineIDs[i] = sale.Lines[i].ID
	}
	query := tx.Where("sale_id = ?", sale.ID)
	if len(lineIDs) > 0 {
		query = query.Where("id NOT IN ?", lineIDs)
	}
	if err := query.Delete(&trade.SaleLine{}).Error; err != nil {
		return err
	}
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
		if err := tx.Save(&sale.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID finds a sale with its lines within the tenant
func (r *GormSaleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	var sale trade.Sale
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByNumber finds a sale by document number within the tenant
func (r *GormSaleRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*trade.Sale, error) {
	var sale trade.Sale
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number = ?", tenantID, number).
		First(&sale).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// FindByCustomer returns all sales for a customer, newest first
func (r *GormSaleRepository) FindByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) ([]*trade.Sale, error) {
	var sales []*trade.Sale
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	for _, sale := range sales {
		if err := r.loadLines(ctx, sale); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (r *GormSaleRepository) loadLines(ctx context.Context, sale *trade.Sale) error {
	var lines []trade.SaleLine
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", sale.ID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	sale.Lines = lines
	return nil
}

var _ trade.SaleRepository = (*GormSaleRepository)(nil)
