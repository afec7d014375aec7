package trade

import (
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeSale     = "Sale"
	AggregateTypePurchase = "Purchase"
	AggregateTypeReturn   = "Return"
)

// Event type constants
const (
	EventTypeSaleCreated       = "SaleCreated"
	EventTypeSaleCompleted     = "SaleCompleted"
	EventTypeSaleCancelled     = "SaleCancelled"
	EventTypePurchaseCreated   = "PurchaseCreated"
	EventTypePurchaseReceived  = "PurchaseReceived"
	EventTypePurchaseCancelled = "PurchaseCancelled"
	EventTypeReturnCreated     = "ReturnCreated"
	EventTypeReturnApproved    = "ReturnApproved"
	EventTypeReturnCompleted   = "ReturnCompleted"
	EventTypeReturnRejected    = "ReturnRejected"
)

// SaleCreatedEvent is published when a new sale is created
type SaleCreatedEvent struct {
	shared.BaseDomainEvent
	Number   string `json:"number"`
	Currency string `json:"currency"`
}

// NewSaleCreatedEvent creates a new SaleCreatedEvent
func NewSaleCreatedEvent(sale *Sale) *SaleCreatedEvent {
	return &SaleCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCreated, AggregateTypeSale, sale.ID, sale.TenantID),
		Number:          sale.Number,
		Currency:        sale.Currency,
	}
}

// SaleCompletedEvent is published when a sale is completed
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// NewSaleCompletedEvent creates a new SaleCompletedEvent
func NewSaleCompletedEvent(sale *Sale) *SaleCompletedEvent {
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, sale.ID, sale.TenantID),
		Number:          sale.Number,
		TotalAmount:     sale.TotalAmount,
		LineCount:       len(sale.Lines),
	}
}

// SaleCancelledEvent is published when a sale is cancelled
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason,omitempty"`
}

// NewSaleCancelledEvent creates a new SaleCancelledEvent
func NewSaleCancelledEvent(sale *Sale, reason string) *SaleCancelledEvent {
	return &SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCancelled, AggregateTypeSale, sale.ID, sale.TenantID),
		Number:          sale.Number,
		Reason:          reason,
	}
}

// PurchaseCreatedEvent is published when a new purchase is created
type PurchaseCreatedEvent struct {
	shared.BaseDomainEvent
	Number     string `json:"number"`
	VendorName string `json:"vendor_name"`
}

// NewPurchaseCreatedEvent creates a new PurchaseCreatedEvent
func NewPurchaseCreatedEvent(purchase *Purchase) *PurchaseCreatedEvent {
	return &PurchaseCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseCreated, AggregateTypePurchase, purchase.ID, purchase.TenantID),
		Number:          purchase.Number,
		VendorName:      purchase.VendorName,
	}
}

// PurchaseReceivedEvent is published when a purchase is received
type PurchaseReceivedEvent struct {
	shared.BaseDomainEvent
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	LineCount   int             `json:"line_count"`
}

// NewPurchaseReceivedEvent creates a new PurchaseReceivedEvent
func NewPurchaseReceivedEvent(purchase *Purchase) *PurchaseReceivedEvent {
	return &PurchaseReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseReceived, AggregateTypePurchase, purchase.ID, purchase.TenantID),
		Number:          purchase.Number,
		TotalAmount:     purchase.TotalAmount,
		LineCount:       len(purchase.Lines),
	}
}

// PurchaseCancelledEvent is published when a purchase is cancelled
type PurchaseCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason,omitempty"`
}

// NewPurchaseCancelledEvent creates a new PurchaseCancelledEvent
func NewPurchaseCancelledEvent(purchase *Purchase, reason string) *PurchaseCancelledEvent {
	return &PurchaseCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseCancelled, AggregateTypePurchase, purchase.ID, purchase.TenantID),
		Number:          purchase.Number,
		Reason:          reason,
	}
}

// ReturnCreatedEvent is published when a new return is created
type ReturnCreatedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewReturnCreatedEvent creates a new ReturnCreatedEvent
func NewReturnCreatedEvent(ret *Return) *ReturnCreatedEvent {
	return &ReturnCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCreated, AggregateTypeReturn, ret.ID, ret.TenantID),
		Number:          ret.Number,
	}
}

// ReturnApprovedEvent is published when a return is approved
type ReturnApprovedEvent struct {
	shared.BaseDomainEvent
	Number       string          `json:"number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// NewReturnApprovedEvent creates a new ReturnApprovedEvent
func NewReturnApprovedEvent(ret *Return) *ReturnApprovedEvent {
	return &ReturnApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnApproved, AggregateTypeReturn, ret.ID, ret.TenantID),
		Number:          ret.Number,
		RefundAmount:    ret.RefundAmount,
	}
}

// ReturnCompletedEvent is published when a return is completed
type ReturnCompletedEvent struct {
	shared.BaseDomainEvent
	Number       string          `json:"number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundMethod RefundMethod    `json:"refund_method"`
}

// NewReturnCompletedEvent creates a new ReturnCompletedEvent
func NewReturnCompletedEvent(ret *Return) *ReturnCompletedEvent {
	return &ReturnCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCompleted, AggregateTypeReturn, ret.ID, ret.TenantID),
		Number:          ret.Number,
		RefundAmount:    ret.RefundAmount,
		RefundMethod:    ret.RefundMethod,
	}
}

// ReturnRejectedEvent is published when a return is rejected
type ReturnRejectedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
	Reason string `json:"reason,omitempty"`
}

// NewReturnRejectedEvent creates a new ReturnRejectedEvent
func NewReturnRejectedEvent(ret *Return, reason string) *ReturnRejectedEvent {
	return &ReturnRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRejected, AggregateTypeReturn, ret.ID, ret.TenantID),
		Number:          ret.Number,
		Reason:          reason,
	}
}
