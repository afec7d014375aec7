package partner

import (
	"strings"
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyStatus represents the status of a party
type PartyStatus string

const (
	PartyStatusActive    PartyStatus = "active"
	PartyStatusInactive  PartyStatus = "inactive"
	PartyStatusSuspended PartyStatus = "suspended" // Suspended due to credit issues
)

// Party is anyone the tenant trades or settles money with: customers,
// vendors, employees and members share one directory, distinguished by
// kind. It is the aggregate root for party-related operations.
type Party struct {
	shared.TenantAggregateRoot
	Kind        ledger.PartyKind `gorm:"type:varchar(20);not null;index:idx_party_tenant_code,unique,priority:2"`
	Code        string           `gorm:"type:varchar(50);not null;index:idx_party_tenant_code,unique,priority:3"`
	Name        string           `gorm:"type:varchar(200);not null"`
	Status      PartyStatus      `gorm:"type:varchar(20);not null;default:'active'"`
	ContactName string           `gorm:"type:varchar(100)"`
	Phone       string           `gorm:"type:varchar(50);index"`
	Email       string           `gorm:"type:varchar(200)"`
	Address     string           `gorm:"type:text"`
	TaxID       string           `gorm:"type:varchar(50)"`
	CreditLimit decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Notes       string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Party) TableName() string {
	return "parties"
}

// NewParty creates a new active party
func NewParty(tenantID uuid.UUID, kind ledger.PartyKind, code, name string) (*Party, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_PARTY_KIND", "Invalid party kind")
	}
	if err := validatePartyCode(code); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name is required")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot exceed 200 characters")
	}

	return &Party{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Kind:                kind,
		Code:                strings.ToUpper(strings.TrimSpace(code)),
		Name:                strings.TrimSpace(name),
		Status:              PartyStatusActive,
		CreditLimit:         decimal.Zero,
	}, nil
}

// NewCustomer creates a new customer party
func NewCustomer(tenantID uuid.UUID, code, name string) (*Party, error) {
	return NewParty(tenantID, ledger.PartyKindCustomer, code, name)
}

// NewVendor creates a new vendor party
func NewVendor(tenantID uuid.UUID, code, name string) (*Party, error) {
	return NewParty(tenantID, ledger.PartyKindVendor, code, name)
}

// Ref returns the ledger reference for this party
func (p *Party) Ref() ledger.PartyRef {
	return ledger.PartyRef{Kind: p.Kind, ID: p.ID}
}

// Update updates the party's basic information
func (p *Party) Update(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_PARTY_NAME", "Party name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot exceed 200 characters")
	}

	p.Name = strings.TrimSpace(name)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetContact sets the party's contact information
func (p *Party) SetContact(contactName, phone, email string) error {
	if contactName != "" && len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT_NAME", "Contact name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}

	p.ContactName = contactName
	p.Phone = phone
	p.Email = email
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetCreditLimit sets the maximum balance the party may owe
func (p *Party) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}

	p.CreditLimit = limit
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Suspend suspends the party, blocking new credit trade
func (p *Party) Suspend() error {
	if p.Status == PartyStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Party is already suspended")
	}

	p.Status = PartyStatusSuspended
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// Activate reactivates the party
func (p *Party) Activate() error {
	if p.Status == PartyStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Party is already active")
	}

	p.Status = PartyStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// IsActive returns true if the party can trade
func (p *Party) IsActive() bool {
	return p.Status == PartyStatusActive
}

func validatePartyCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_PARTY_CODE", "Party code is required")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_PARTY_CODE", "Party code cannot exceed 50 characters")
	}
	return nil
}
