package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusPending     UserStatus = "pending"
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
)

const bcryptCost = 12

// OverrideEffect is the effect of a per-user permission override
type OverrideEffect string

const (
	OverrideAllow OverrideEffect = "allow"
	OverrideDeny  OverrideEffect = "deny"
)

// PermissionOverride grants or denies a single permission for one user,
// taking precedence over anything the user's roles say.
type PermissionOverride struct {
	UserID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index"`
	PermissionCode string         `gorm:"type:varchar(100);primaryKey"`
	Effect         OverrideEffect `gorm:"type:varchar(10);not null"`
	Reason         string         `gorm:"type:varchar(200)"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (PermissionOverride) TableName() string {
	return "user_permission_overrides"
}

// User represents a user in the system.
// It is the aggregate root for user-related operations.
type User struct {
	shared.TenantAggregateRoot
	Username     string     `gorm:"type:varchar(100);not null;index:idx_user_tenant_username,unique"`
	Email        string     `gorm:"type:varchar(200)"`
	Phone        string     `gorm:"type:varchar(50)"`
	PasswordHash string     `gorm:"type:varchar(200);not null"`
	DisplayName  string     `gorm:"type:varchar(200)"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	LastLoginAt  *time.Time

	// Loaded by the repository, not a gorm association
	RoleIDs   []uuid.UUID          `gorm:"-"`
	Overrides []PermissionOverride `gorm:"-"`
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// UserRole represents the many-to-many relationship between users and roles
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (UserRole) TableName() string {
	return "user_roles"
}

// NewUser creates a new user with required fields
func NewUser(tenantID uuid.UUID, username, password string) (*User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Username:            strings.ToLower(strings.TrimSpace(username)),
		PasswordHash:        passwordHash,
		Status:              UserStatusPending,
		RoleIDs:             make([]uuid.UUID, 0),
		Overrides:           make([]PermissionOverride, 0),
	}

	return user, nil
}

// NewActiveUser creates a new user that is immediately active
func NewActiveUser(tenantID uuid.UUID, username, password string) (*User, error) {
	user, err := NewUser(tenantID, username, password)
	if err != nil {
		return nil, err
	}

	user.Status = UserStatusActive
	return user, nil
}

// SetEmail sets the user's email
func (u *User) SetEmail(email string) error {
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
		email = strings.ToLower(strings.TrimSpace(email))
	}

	u.Email = email
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// SetDisplayName sets the user's display name
func (u *User) SetDisplayName(displayName string) error {
	if displayName != "" && len(displayName) > 200 {
		return shared.NewDomainError("INVALID_DISPLAY_NAME", "Display name cannot exceed 200 characters")
	}

	u.DisplayName = strings.TrimSpace(displayName)
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// ChangePassword changes the user's password after verifying the old one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	return u.SetPassword(newPassword)
}

// SetPassword sets a new password (admin reset, no old password check)
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// VerifyPassword checks the given password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Activate activates a pending or deactivated user
func (u *User) Activate() error {
	if u.Status == UserStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "User is already active")
	}

	u.Status = UserStatusActive
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// Deactivate deactivates the user
func (u *User) Deactivate() error {
	if u.Status == UserStatusDeactivated {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "User is already deactivated")
	}

	u.Status = UserStatusDeactivated
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// IsActive returns true if the user can perform operations
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// RecordLogin records a successful login
func (u *User) RecordLogin() {
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
}

// AssignRole assigns a role to the user
func (u *User) AssignRole(roleID uuid.UUID) error {
	if roleID == uuid.Nil {
		return shared.NewDomainError("INVALID_ROLE_ID", "Role ID cannot be empty")
	}

	for _, id := range u.RoleIDs {
		if id == roleID {
			return shared.NewDomainError("ROLE_ALREADY_ASSIGNED", "User already has this role")
		}
	}

	u.RoleIDs = append(u.RoleIDs, roleID)
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// RemoveRole removes a role from the user
func (u *User) RemoveRole(roleID uuid.UUID) error {
	found := false
	newRoles := make([]uuid.UUID, 0, len(u.RoleIDs))
	for _, id := range u.RoleIDs {
		if id != roleID {
			newRoles = append(newRoles, id)
		} else {
			found = true
		}
	}

	if !found {
		return shared.NewDomainError("ROLE_NOT_ASSIGNED", "User does not have this role")
	}

	u.RoleIDs = newRoles
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// SetOverride adds or replaces a per-user permission override
func (u *User) SetOverride(permissionCode string, effect OverrideEffect, reason string) error {
	if _, err := NewPermissionFromCode(permissionCode); err != nil {
		return err
	}
	if effect != OverrideAllow && effect != OverrideDeny {
		return shared.NewDomainError("INVALID_OVERRIDE_EFFECT", "Override effect must be allow or deny")
	}

	for i, o := range u.Overrides {
		if o.PermissionCode == permissionCode {
			u.Overrides[i].Effect = effect
			u.Overrides[i].Reason = reason
			u.UpdatedAt = time.Now()
			u.IncrementVersion()
			return nil
		}
	}

	u.Overrides = append(u.Overrides, PermissionOverride{
		UserID:         u.ID,
		TenantID:       u.TenantID,
		PermissionCode: permissionCode,
		Effect:         effect,
		Reason:         reason,
		CreatedAt:      time.Now(),
	})
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// ClearOverride removes a per-user permission override
func (u *User) ClearOverride(permissionCode string) error {
	found := false
	kept := make([]PermissionOverride, 0, len(u.Overrides))
	for _, o := range u.Overrides {
		if o.PermissionCode != permissionCode {
			kept = append(kept, o)
		} else {
			found = true
		}
	}

	if !found {
		return shared.NewDomainError("OVERRIDE_NOT_FOUND", "User does not have this override")
	}

	u.Overrides = kept
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,100}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be 3-100 characters of letters, numbers, dots, hyphens or underscores")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 128 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return shared.NewDomainError("INVALID_EMAIL", "Email format is invalid")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
