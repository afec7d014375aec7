package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRoleRepository implements RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Create creates a new role
func (r *GormRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// Update updates an existing role
func (r *GormRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Save(role).Error
}

// Delete deletes a non-system role and its permission grants
func (r *GormRoleRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ? AND is_system_role = ?", tenantID, id, false).
			Delete(&identity.Role{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		if err := tx.Where("role_id = ?", id).
			Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("role_id = ?", id).
			Delete(&identity.UserRole{}).Error
	})
}

// FindByID finds a role by ID within the tenant
func (r *GormRoleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Role, error) {
	var role identity.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByCode finds a role by code within the tenant
func (r *GormRoleRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*identity.Role, error) {
	var role identity.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// FindByIDs finds multiple roles by IDs within the tenant
func (r *GormRoleRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*identity.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var roles []*identity.Role
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// SavePermissions replaces the role's permission grants with the
// current Permissions slice
func (r *GormRoleRepository) SavePermissions(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).
			Delete(&identity.RolePermission{}).Error; err != nil {
			return err
		}
		if len(role.Permissions) == 0 {
			return nil
		}
		rows := make([]identity.RolePermission, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			rows = append(rows, identity.RolePermission{
				RoleID:      role.ID,
				TenantID:    role.TenantID,
				Code:        p.Code,
				Resource:    p.Resource,
				Action:      p.Action,
				Description: p.Description,
			})
		}
		return tx.Create(&rows).Error
	})
}

// LoadPermissions loads permissions for a role
func (r *GormRoleRepository) LoadPermissions(ctx context.Context, role *identity.Role) error {
	var rows []identity.RolePermission
	if err := r.db.WithContext(ctx).
		Where("role_id = ?", role.ID).
		Find(&rows).Error; err != nil {
		return err
	}
	role.Permissions = make([]identity.Permission, 0, len(rows))
	for _, row := range rows {
		role.Permissions = append(role.Permissions, identity.Permission{
			Code:        row.Code,
			Resource:    row.Resource,
			Action:      row.Action,
			Description: row.Description,
		})
	}
	return nil
}

var _ identity.RoleRepository = (*GormRoleRepository)(nil)
