package persistence

import (
	"context"
	"errors"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update updates an existing user
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByID finds a user by ID within the tenant
func (r *GormUserRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username within the tenant
func (r *GormUserRepository) FindByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND username = ?", tenantID, username).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SaveUserRoles replaces the user's role assignments with the current
// RoleIDs slice
func (r *GormUserRepository) SaveUserRoles(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&identity.UserRole{}).Error; err != nil {
			return err
		}
		if len(user.RoleIDs) == 0 {
			return nil
		}
		rows := make([]identity.UserRole, 0, len(user.RoleIDs))
		for _, roleID := range user.RoleIDs {
			rows = append(rows, identity.UserRole{
				UserID:   user.ID,
				RoleID:   roleID,
				TenantID: user.TenantID,
			})
		}
		return tx.Create(&rows).Error
	})
}

// LoadUserRoles loads the user's role IDs
func (r *GormUserRepository) LoadUserRoles(ctx context.Context, user *identity.User) error {
	var rows []identity.UserRole
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Find(&rows).Error; err != nil {
		return err
	}
	user.RoleIDs = make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		user.RoleIDs = append(user.RoleIDs, row.RoleID)
	}
	return nil
}

// SaveOverrides replaces the user's permission overrides with the
// current Overrides slice
func (r *GormUserRepository) SaveOverrides(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&identity.PermissionOverride{}).Error; err != nil {
			return err
		}
		if len(user.Overrides) == 0 {
			return nil
		}
		return tx.Create(&user.Overrides).Error
	})
}

// LoadOverrides loads the user's permission overrides
func (r *GormUserRepository) LoadOverrides(ctx context.Context, user *identity.User) error {
	var rows []identity.PermissionOverride
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Find(&rows).Error; err != nil {
		return err
	}
	user.Overrides = rows
	return nil
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
