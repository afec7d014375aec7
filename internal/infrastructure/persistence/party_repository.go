package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/partner"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartyRepository implements PartyRepository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// Create creates a new party
func (r *GormPartyRepository) Create(ctx context.Context, party *partner.Party) error {
	return r.db.WithContext(ctx).Create(party).Error
}

// Update updates an existing party
func (r *GormPartyRepository) Update(ctx context.Context, party *partner.Party) error {
	return r.db.WithContext(ctx).Save(party).Error
}

// FindByID finds a party by ID within the tenant
func (r *GormPartyRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*partner.Party, error) {
	var party partner.Party
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&party).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &party, nil
}

// FindByRef finds a party by its ledger reference within the tenant
func (r *GormPartyRepository) FindByRef(ctx context.Context, tenantID uuid.UUID, ref ledger.PartyRef) (*partner.Party, error) {
	var party partner.Party
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND id = ?", tenantID, ref.Kind, ref.ID).
		First(&party).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &party, nil
}

// FindByCode finds a party by kind and code within the tenant
func (r *GormPartyRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, kind ledger.PartyKind, code string) (*partner.Party, error) {
	var party partner.Party
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND code = ?", tenantID, kind, code).
		First(&party).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &party, nil
}

// FindByKind returns all parties of one kind for the tenant
func (r *GormPartyRepository) FindByKind(ctx context.Context, tenantID uuid.UUID, kind ledger.PartyKind) ([]*partner.Party, error) {
	var parties []*partner.Party
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Order("code ASC").
		Find(&parties).Error; err != nil {
		return nil, err
	}
	return parties, nil
}

var _ partner.PartyRepository = (*GormPartyRepository)(nil)
