package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReturnRepository implements ReturnRepository using GORM
type GormReturnRepository struct {
	db *gorm.DB
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// Create creates a new return with its lines
func (r *GormReturnRepository) Create(ctx context.Context, ret *trade.Return) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ret).Error; err != nil {
			return err
		}
		for i := range ret.Lines {
			ret.Lines[i].ReturnID = ret.ID
			if err := tx.Create(&ret.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock updates a return and its lines if the version is
// unchanged
func (r *GormReturnRepository) SaveWithLock(ctx context.Context, ret *trade.Return) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&trade.Return{}).
			Where("id = ? AND version = ?", ret.ID, ret.Version-1).
			Updates(map[string]interface{}{
				"refund_amount": ret.RefundAmount,
				"refund_method": ret.RefundMethod,
				"status":        ret.Status,
				"remark":        ret.Remark,
				"approved_by":   ret.ApprovedBy,
				"approved_at":   ret.ApprovedAt,
				"completed_at":  ret.CompletedAt,
				"rejected_at":   ret.RejectedAt,
				"reject_reason": ret.RejectReason,
				"version":       ret.Version,
				"updated_at":    ret.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		lineIDs := make([]uuid.UUID, len(ret.Lines))
		for i := range ret.Lines {
			lineIDs[i] = ret.Lines[i].ID
		}
		query := tx.Where("return_id = ?", ret.ID)
		if len(lineIDs) > 0 {
			query = query.Where("id NOT IN ?", lineIDs)
		}
		if err := query.Delete(&trade.ReturnLine{}).Error; err != nil {
			return err
		}
		for i := range ret.Lines {
			ret.Lines[i].ReturnID = ret.ID
			if err := tx.Save(&ret.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a return with its lines within the tenant
func (r *GormReturnRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Return, error) {
	var ret trade.Return
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// FindBySale returns all returns against one sale
func (r *GormReturnRepository) FindBySale(ctx context.Context, tenantID, saleID uuid.UUID) ([]*trade.Return, error) {
	var returns []*trade.Return
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sale_id = ?", tenantID, saleID).
		Order("created_at ASC").
		Find(&returns).Error; err != nil {
		return nil, err
	}
	for _, ret := range returns {
		if err := r.loadLines(ctx, ret); err != nil {
			return nil, err
		}
	}
	return returns, nil
}

// SumReturnedQuantity returns the quantity of one sale line already
// claimed by non-rejected returns. Pending and approved returns count
// so that concurrent returns cannot oversubscribe a sale line.
func (r *GormReturnRepository) SumReturnedQuantity(ctx context.Context, tenantID, saleLineID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&trade.ReturnLine{}).
		Select("SUM(return_lines.quantity)").
		Joins("JOIN returns ON returns.id = return_lines.return_id").
		Where("returns.tenant_id = ? AND return_lines.sale_line_id = ? AND returns.status <> ?",
			tenantID, saleLineID, trade.ReturnStatusRejected).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *GormReturnRepository) loadLines(ctx context.Context, ret *trade.Return) error {
	var lines []trade.ReturnLine
	if err := r.db.WithContext(ctx).
		Where("return_id = ?", ret.ID).
		Order("created_at ASC").
		Find(&lines).Error; err != nil {
		return err
	}
	ret.Lines = lines
	return nil
}

var _ trade.ReturnRepository = (*GormReturnRepository)(nil)
