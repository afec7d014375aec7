package ledger

import (
	"fmt"

	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentType identifies the kind of business document that produced a
// ledger entry. Documents are the only producers of ledger entries.
type DocumentType string

const (
	DocumentTypeSale         DocumentType = "SALE"
	DocumentTypePurchase     DocumentType = "PURCHASE"
	DocumentTypeReturn       DocumentType = "RETURN"
	DocumentTypeAdjustment   DocumentType = "ADJUSTMENT"
	DocumentTypeReconcile    DocumentType = "RECONCILE"
	DocumentTypeInitialStock DocumentType = "INITIAL_STOCK"
)

// String returns the string representation of DocumentType
func (d DocumentType) String() string {
	return string(d)
}

// IsValid returns true if the document type is valid
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeSale, DocumentTypePurchase, DocumentTypeReturn,
		DocumentTypeAdjustment, DocumentTypeReconcile, DocumentTypeInitialStock:
		return true
	}
	return false
}

// DocumentRef points at the source document of a ledger entry. The
// index tag stays unnamed so each embedding table gets its own index
// name instead of every ledger table fighting over one.
type DocumentRef struct {
	Type   DocumentType `gorm:"column:source_type;type:varchar(30);not null"`
	ID     uuid.UUID    `gorm:"column:source_id;type:uuid;not null;index"`
	LineID *uuid.UUID   `gorm:"column:source_line_id;type:uuid"`
}

// NewDocumentRef creates a reference to a source document
func NewDocumentRef(docType DocumentType, id uuid.UUID) (DocumentRef, error) {
	if !docType.IsValid() {
		return DocumentRef{}, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source document type")
	}
	if id == uuid.Nil {
		return DocumentRef{}, shared.NewDomainError("INVALID_SOURCE_ID", "Source document ID cannot be empty")
	}
	return DocumentRef{Type: docType, ID: id}, nil
}

// WithLine attaches the source line to the reference
func (r DocumentRef) WithLine(lineID uuid.UUID) DocumentRef {
	r.LineID = &lineID
	return r
}

// IsZero returns true if the reference is empty
func (r DocumentRef) IsZero() bool {
	return r.ID == uuid.Nil
}

func (r DocumentRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// PartyKind identifies the kind of counterparty on a financial entry.
type PartyKind string

const (
	PartyKindCustomer PartyKind = "CUSTOMER"
	PartyKindVendor   PartyKind = "VENDOR"
	PartyKindEmployee PartyKind = "EMPLOYEE"
	PartyKindMember   PartyKind = "MEMBER"
)

// String returns the string representation of PartyKind
func (k PartyKind) String() string {
	return string(k)
}

// IsValid returns true if the party kind is valid
func (k PartyKind) IsValid() bool {
	switch k {
	case PartyKindCustomer, PartyKindVendor, PartyKindEmployee, PartyKindMember:
		return true
	}
	return false
}

// PartyRef identifies the counterparty of a financial transaction.
type PartyRef struct {
	Kind PartyKind `gorm:"column:party_kind;type:varchar(20);not null;index:idx_party"`
	ID   uuid.UUID `gorm:"column:party_id;type:uuid;not null;index:idx_party"`
}

// NewPartyRef creates a counterparty reference
func NewPartyRef(kind PartyKind, id uuid.UUID) (PartyRef, error) {
	if !kind.IsValid() {
		return PartyRef{}, shared.NewDomainError("INVALID_PARTY_KIND", "Invalid party kind")
	}
	if id == uuid.Nil {
		return PartyRef{}, shared.NewDomainError("INVALID_PARTY_ID", "Party ID cannot be empty")
	}
	return PartyRef{Kind: kind, ID: id}, nil
}

// IsZero returns true if the reference is empty
func (r PartyRef) IsZero() bool {
	return r.ID == uuid.Nil
}

func (r PartyRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}
