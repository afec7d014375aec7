package persistence

import (
	"context"
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDriftRepository stores reconciliation drift audit records
type GormDriftRepository struct {
	db *gorm.DB
}

// NewGormDriftRepository creates a new GormDriftRepository
func NewGormDriftRepository(db *gorm.DB) *GormDriftRepository {
	return &GormDriftRepository{db: db}
}

// Save persists a drift record
func (r *GormDriftRepository) Save(ctx context.Context, drift *ledger.ReconciliationDrift) error {
	return r.db.WithContext(ctx).Create(drift).Error
}

// FindByTenant returns drift records for a tenant detected since the
// given time, newest first
func (r *GormDriftRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]*ledger.ReconciliationDrift, error) {
	var drifts []*ledger.ReconciliationDrift
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND detected_at >= ?", tenantID, since).
		Order("detected_at DESC").
		Find(&drifts).Error; err != nil {
		return nil, err
	}
	return drifts, nil
}

// FindByRun returns all drift records from one reconcile run
func (r *GormDriftRepository) FindByRun(ctx context.Context, runID uuid.UUID) ([]*ledger.ReconciliationDrift, error) {
	var drifts []*ledger.ReconciliationDrift
	if err := r.db.WithContext(ctx).
		Where("reconcile_run = ?", runID).
		Order("detected_at ASC").
		Find(&drifts).Error; err != nil {
		return nil, err
	}
	return drifts, nil
}

var _ ledger.DriftRepository = (*GormDriftRepository)(nil)
