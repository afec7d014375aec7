package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// numberSequenceRow is one per-tenant, per-kind counter
type numberSequenceRow struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind      string    `gorm:"type:varchar(20);primaryKey"`
	Counter   int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (numberSequenceRow) TableName() string {
	return "number_sequences"
}

// GormNumberSequence allocates document numbers from a counter table.
// Each allocation commits its own increment, so aborted transitions
// leave gaps rather than duplicates.
type GormNumberSequence struct {
	db *gorm.DB
}

// NewGormNumberSequence creates a new GormNumberSequence
func NewGormNumberSequence(db *gorm.DB) *GormNumberSequence {
	return &GormNumberSequence{db: db}
}

// Next returns the next number for the tenant and kind, formatted as
// KIND-YYYY-NNNNNN
func (s *GormNumberSequence) Next(ctx context.Context, tenantID uuid.UUID, kind string) (string, error) {
	if tenantID == uuid.Nil {
		return "", shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	var counter int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "kind"}},
			DoNothing: true,
		}).Create(&numberSequenceRow{TenantID: tenantID, Kind: kind}).Error; err != nil {
			return err
		}

		if err := tx.Model(&numberSequenceRow{}).
			Where("tenant_id = ? AND kind = ?", tenantID, kind).
			Update("counter", gorm.Expr("counter + 1")).Error; err != nil {
			return err
		}

		var row numberSequenceRow
		if err := tx.Where("tenant_id = ? AND kind = ?", tenantID, kind).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		counter = row.Counter
		return nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%d-%06d", kind, time.Now().Year(), counter), nil
}

var _ shared.NumberSequence = (*GormNumberSequence)(nil)
