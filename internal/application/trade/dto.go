package trade

import (
	"time"

	"github.com/easyshop/backend/internal/domain/ledger"
	"github.com/easyshop/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleLineRequest is one line of a sale being created
type SaleLineRequest struct {
	VariantID   uuid.UUID       `json:"variant_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// CreateSaleRequest creates a draft sale
type CreateSaleRequest struct {
	CustomerID   *uuid.UUID        `json:"customer_id,omitempty"`
	Lines        []SaleLineRequest `json:"lines"`
	Discount     *decimal.Decimal  `json:"discount,omitempty"`
	Tax          *decimal.Decimal  `json:"tax,omitempty"`
	Remark       string            `json:"remark,omitempty"`
}

// AddSaleLineRequest adds one line to a draft sale
type AddSaleLineRequest struct {
	SaleID uuid.UUID       `json:"sale_id"`
	Line   SaleLineRequest `json:"line"`
}

// CompleteSaleRequest completes a draft sale
type CompleteSaleRequest struct {
	SaleID         uuid.UUID `json:"sale_id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// CancelSaleRequest cancels a draft sale
type CancelSaleRequest struct {
	SaleID uuid.UUID `json:"sale_id"`
	Reason string    `json:"reason,omitempty"`
}

// RecordPaymentRequest settles part of a completed sale
type RecordPaymentRequest struct {
	SaleID         uuid.UUID            `json:"sale_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       string               `json:"currency,omitempty"` // Empty means the document currency
	Method         ledger.PaymentMethod `json:"method"`
	DrawerID       *uuid.UUID           `json:"drawer_id,omitempty"` // Required for cash
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

// SaleLineResponse is one sale line in API responses
type SaleLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// SaleResponse is a sale in API responses
type SaleResponse struct {
	ID             uuid.UUID           `json:"id"`
	Number         string              `json:"number"`
	CustomerID     *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName   string              `json:"customer_name,omitempty"`
	Lines          []SaleLineResponse  `json:"lines"`
	Currency       string              `json:"currency"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	Status         trade.SaleStatus    `json:"status"`
	PaymentStatus  trade.PaymentStatus `json:"payment_status"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`

	// Ledger entries produced by the transition that returned this
	// response. Empty for reads and no-op retries.
	MovementIDs    []uuid.UUID `json:"movement_ids,omitempty"`
	TransactionIDs []uuid.UUID `json:"transaction_ids,omitempty"`
}

// NewSaleResponse maps a sale aggregate to its response
func NewSaleResponse(sale *trade.Sale) *SaleResponse {
	lines := make([]SaleLineResponse, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		lines = append(lines, SaleLineResponse{
			ID:          l.ID,
			VariantID:   l.VariantID,
			LocationID:  l.LocationID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		})
	}
	return &SaleResponse{
		ID:             sale.ID,
		Number:         sale.Number,
		CustomerID:     sale.CustomerID,
		CustomerName:   sale.CustomerName,
		Lines:          lines,
		Currency:       sale.Currency,
		Subtotal:       sale.Subtotal,
		DiscountAmount: sale.DiscountAmount,
		TaxAmount:      sale.TaxAmount,
		TotalAmount:    sale.TotalAmount,
		PaidAmount:     sale.PaidAmount,
		Status:         sale.Status,
		PaymentStatus:  sale.PaymentStatus,
		CompletedAt:    sale.CompletedAt,
		CreatedAt:      sale.CreatedAt,
	}
}

// PurchaseLineRequest is one line of a purchase being created
type PurchaseLineRequest struct {
	VariantID   uuid.UUID       `json:"variant_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseRequest creates a pending purchase
type CreatePurchaseRequest struct {
	VendorID uuid.UUID             `json:"vendor_id"`
	Lines    []PurchaseLineRequest `json:"lines"`
	Remark   string                `json:"remark,omitempty"`
}

// ReceivePurchaseRequest receives a pending purchase. BatchAssignments
// maps line IDs to batch IDs for batch-tracked variants.
type ReceivePurchaseRequest struct {
	PurchaseID       uuid.UUID               `json:"purchase_id"`
	BatchAssignments map[uuid.UUID]uuid.UUID `json:"batch_assignments,omitempty"`
	IdempotencyKey   string                  `json:"idempotency_key,omitempty"`
}

// RecordPurchasePaymentRequest pays a vendor for a received purchase
type RecordPurchasePaymentRequest struct {
	PurchaseID     uuid.UUID            `json:"purchase_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Method         ledger.PaymentMethod `json:"method"`
	DrawerID       *uuid.UUID           `json:"drawer_id,omitempty"` // Required for cash
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
}

// CancelPurchaseRequest cancels a pending purchase
type CancelPurchaseRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	Reason     string    `json:"reason,omitempty"`
}

// PurchaseResponse is a purchase in API responses
type PurchaseResponse struct {
	ID          uuid.UUID            `json:"id"`
	Number      string               `json:"number"`
	VendorID    uuid.UUID            `json:"vendor_id"`
	VendorName  string               `json:"vendor_name"`
	Currency    string               `json:"currency"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Status      trade.PurchaseStatus `json:"status"`
	LineCount   int                  `json:"line_count"`
	ReceivedAt  *time.Time           `json:"received_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`

	// Ledger entries produced by the transition that returned this
	// response. Empty for reads and no-op retries.
	MovementIDs    []uuid.UUID `json:"movement_ids,omitempty"`
	TransactionIDs []uuid.UUID `json:"transaction_ids,omitempty"`
}

// NewPurchaseResponse maps a purchase aggregate to its response
func NewPurchaseResponse(purchase *trade.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:          purchase.ID,
		Number:      purchase.Number,
		VendorID:    purchase.VendorID,
		VendorName:  purchase.VendorName,
		Currency:    purchase.Currency,
		TotalAmount: purchase.TotalAmount,
		Status:      purchase.Status,
		LineCount:   len(purchase.Lines),
		ReceivedAt:  purchase.ReceivedAt,
		CreatedAt:   purchase.CreatedAt,
	}
}

// ReturnLineRequest is one line of a return being created
type ReturnLineRequest struct {
	SaleLineID uuid.UUID       `json:"sale_line_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Restock    bool            `json:"restock"`
	Reason     string          `json:"reason,omitempty"`
}

// CreateReturnRequest creates a pending return against a completed sale
type CreateReturnRequest struct {
	SaleID       uuid.UUID           `json:"sale_id"`
	RefundMethod trade.RefundMethod  `json:"refund_method"`
	Lines        []ReturnLineRequest `json:"lines"`
	Remark       string              `json:"remark,omitempty"`
}

// ApproveReturnRequest approves a pending return
type ApproveReturnRequest struct {
	ReturnID uuid.UUID `json:"return_id"`
}

// RejectReturnRequest rejects a pending return
type RejectReturnRequest struct {
	ReturnID uuid.UUID `json:"return_id"`
	Reason   string    `json:"reason,omitempty"`
}

// CompleteReturnRequest completes an approved return
type CompleteReturnRequest struct {
	ReturnID       uuid.UUID  `json:"return_id"`
	DrawerID       *uuid.UUID `json:"drawer_id,omitempty"` // Required for cash refunds
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
}

// ReturnResponse is a return in API responses
type ReturnResponse struct {
	ID           uuid.UUID          `json:"id"`
	Number       string             `json:"number"`
	SaleID       uuid.UUID          `json:"sale_id"`
	Currency     string             `json:"currency"`
	RefundAmount decimal.Decimal    `json:"refund_amount"`
	RefundMethod trade.RefundMethod `json:"refund_method"`
	Status       trade.ReturnStatus `json:"status"`
	LineCount    int                `json:"line_count"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`

	// Ledger entries produced by the transition that returned this
	// response. Empty for reads and no-op retries.
	MovementIDs    []uuid.UUID `json:"movement_ids,omitempty"`
	TransactionIDs []uuid.UUID `json:"transaction_ids,omitempty"`
}

// NewReturnResponse maps a return aggregate to its response
func NewReturnResponse(ret *trade.Return) *ReturnResponse {
	return &ReturnResponse{
		ID:           ret.ID,
		Number:       ret.Number,
		SaleID:       ret.SaleID,
		Currency:     ret.Currency,
		RefundAmount: ret.RefundAmount,
		RefundMethod: ret.RefundMethod,
		Status:       ret.Status,
		LineCount:    len(ret.Lines),
		CompletedAt:  ret.CompletedAt,
		CreatedAt:    ret.CreatedAt,
	}
}
