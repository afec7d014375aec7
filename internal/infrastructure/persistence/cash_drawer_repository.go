package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/finance"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashDrawerRepository implements CashDrawerRepository using GORM
type GormCashDrawerRepository struct {
	db *gorm.DB
}

// NewGormCashDrawerRepository creates a new GormCashDrawerRepository
func NewGormCashDrawerRepository(db *gorm.DB) *GormCashDrawerRepository {
	return &GormCashDrawerRepository{db: db}
}

// Create creates a new drawer
func (r *GormCashDrawerRepository) Create(ctx context.Context, drawer *finance.CashDrawer) error {
	return r.db.WithContext(ctx).Create(drawer).Error
}

// Update updates an existing drawer
func (r *GormCashDrawerRepository) Update(ctx context.Context, drawer *finance.CashDrawer) error {
	return r.db.WithContext(ctx).Save(drawer).Error
}

// FindByID finds a drawer by ID within the tenant
func (r *GormCashDrawerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.CashDrawer, error) {
	var drawer finance.CashDrawer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&drawer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &drawer, nil
}

// FindAll returns all drawers for the tenant
func (r *GormCashDrawerRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]*finance.CashDrawer, error) {
	var drawers []*finance.CashDrawer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&drawers).Error; err != nil {
		return nil, err
	}
	return drawers, nil
}

var _ finance.CashDrawerRepository = (*GormCashDrawerRepository)(nil)
