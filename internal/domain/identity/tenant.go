package identity

import (
	"strings"
	"time"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/easyshop/backend/internal/domain/shared/valueobject"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// IsValid checks if the tenant status is valid
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusInactive, TenantStatusSuspended:
		return true
	}
	return false
}

// TenantConfig holds configurable settings for a tenant
type TenantConfig struct {
	Currency string `json:"currency"` // Base currency code for ledgers and drawers
	Timezone string `json:"timezone"`
	Locale   string `json:"locale"`
}

// DefaultTenantConfig returns the default configuration for a new tenant
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		Currency: string(valueobject.DefaultCurrency),
		Timezone: "UTC",
		Locale:   "en-US",
	}
}

// Tenant represents an organization in the multi-tenant system.
// Every ledger entry, document and aggregate belongs to exactly one tenant.
type Tenant struct {
	shared.BaseAggregateRoot
	Code         string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string       `gorm:"type:varchar(200);not null"`
	Status       TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ContactName  string       `gorm:"type:varchar(100)"`
	ContactPhone string       `gorm:"type:varchar(50)"`
	ContactEmail string       `gorm:"type:varchar(200)"`
	Address      string       `gorm:"type:text"`
	Config       TenantConfig `gorm:"embedded;embeddedPrefix:config_"`
	Notes        string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active tenant with default configuration
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
		Config:            DefaultTenantConfig(),
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// Update updates the tenant's basic information
func (t *Tenant) Update(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}

	t.Name = name
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	t.ContactName = contactName
	t.ContactPhone = phone
	t.ContactEmail = email
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetCurrency sets the tenant's base currency
func (t *Tenant) SetCurrency(currency valueobject.Currency) error {
	if !currency.IsValid() {
		return shared.ErrCurrencyNotFound.WithDetails("currency", currency.String())
	}
	t.Config.Currency = string(currency)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// BaseCurrency returns the tenant's configured base currency
func (t *Tenant) BaseCurrency() valueobject.Currency {
	if t.Config.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return valueobject.Currency(t.Config.Currency)
}

// Suspend suspends the tenant, blocking all operations under it
func (t *Tenant) Suspend(reason string) error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}

	t.Status = TenantStatusSuspended
	if reason != "" {
		t.Notes = reason
	}
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantSuspendedEvent(t, reason))

	return nil
}

// Activate reactivates an inactive or suspended tenant
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// Deactivate marks the tenant inactive
func (t *Tenant) Deactivate() error {
	if t.Status == TenantStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Tenant is already inactive")
	}

	t.Status = TenantStatusInactive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// IsActive returns true if the tenant can perform operations
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_TENANT_CODE", "Tenant code is required")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_TENANT_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !isAlphanumeric(r) && r != '-' && r != '_' {
			return shared.NewDomainError("INVALID_TENANT_CODE", "Tenant code can only contain letters, numbers, hyphens and underscores")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
