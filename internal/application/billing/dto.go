package billing

import (
	"time"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Invoice DTOs
// =============================================================================

// InvoiceItemRequest represents one line item on an invoice request
type InvoiceItemRequest struct {
	ItemName  string          `json:"item_name" binding:"required,min=1,max=200"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
	Tax       decimal.Decimal `json:"tax"`
}

// CreateInvoiceRequest represents a request to create a new invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number" binding:"required,min=1,max=50"`
	InvoiceDate   time.Time            `json:"invoice_date" binding:"required"`
	DueDate       time.Time            `json:"due_date" binding:"required"`
	CustomerID    uuid.UUID            `json:"customer_id" binding:"required"`
	Description   string               `json:"description" binding:"max=2000"`
	Currency      string               `json:"currency" binding:"required,currency"`
	Discount      decimal.Decimal      `json:"discount"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateInvoiceRequest represents a request to update an invoice. Omitted
// fields keep their current value. Changing items or discount recalculates
// the totals and rebases every recorded payment.
type UpdateInvoiceRequest struct {
	InvoiceNumber *string              `json:"invoice_number" binding:"omitempty,min=1,max=50"`
	InvoiceDate   *time.Time           `json:"invoice_date"`
	DueDate       *time.Time           `json:"due_date"`
	CustomerID    *uuid.UUID           `json:"customer_id"`
	Description   *string              `json:"description" binding:"omitempty,max=2000"`
	Currency      *string              `json:"currency" binding:"omitempty,currency"`
	Discount      *decimal.Decimal     `json:"discount"`
	Items         []InvoiceItemRequest `json:"items" binding:"omitempty,min=1,dive"`
}

// InvoiceListFilter represents filtering options for listing invoices
type InvoiceListFilter struct {
	Skip     int    `form:"skip" binding:"min=0"`
	Take     int    `form:"take" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status   string `form:"status"`
}

// InvoiceItemResponse represents a line item in API responses
type InvoiceItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Tax       decimal.Decimal `json:"tax"`
	TotalTax  decimal.Decimal `json:"total_tax"`
	Total     decimal.Decimal `json:"total"`
}

// CustomerSnapshotResponse represents the billed party as presented on an
// invoice or payment
type CustomerSnapshotResponse struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID             uuid.UUID                `json:"id"`
	InvoiceNumber  string                   `json:"invoice_number"`
	InvoiceDate    time.Time                `json:"invoice_date"`
	DueDate        time.Time                `json:"due_date"`
	UserID         uuid.UUID                `json:"user_id"`
	CustomerID     *uuid.UUID               `json:"customer_id,omitempty"`
	Customer       CustomerSnapshotResponse `json:"customer"`
	Description    string                   `json:"description,omitempty"`
	Items          []InvoiceItemResponse    `json:"items"`
	Currency       string                   `json:"currency"`
	CurrencySymbol string                   `json:"currency_symbol"`
	Discount       decimal.Decimal          `json:"discount"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	TaxAmount      decimal.Decimal          `json:"tax_amount"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	Total          decimal.Decimal          `json:"total"`
	PaymentStatus  string                   `json:"payment_status"`
	Overdue        bool                     `json:"overdue"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ToInvoiceResponse converts an invoice to its API representation. The
// customer block shows the live record when attached, the stored snapshot
// otherwise.
func ToInvoiceResponse(inv *billing.Invoice, liveCustomer *billing.CustomerSnapshot) InvoiceResponse {
	effective := inv.EffectiveCustomer(liveCustomer)

	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemResponse{
			ID:        item.ID,
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Tax:       item.Tax,
			TotalTax:  item.TotalTax,
			Total:     item.Total,
		}
	}

	return InvoiceResponse{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		InvoiceDate:    inv.InvoiceDate,
		DueDate:        inv.DueDate,
		UserID:         inv.UserID,
		CustomerID:     inv.CustomerID,
		Customer:       toSnapshotResponse(effective),
		Description:    inv.Description,
		Items:          items,
		Currency:       string(inv.Currency),
		CurrencySymbol: inv.CurrencySymbol(),
		Discount:       inv.Discount,
		Subtotal:       inv.Totals.Subtotal,
		TaxAmount:      inv.Totals.TaxAmount,
		DiscountAmount: inv.Totals.DiscountAmount,
		Total:          inv.Totals.Total,
		PaymentStatus:  string(inv.PaymentStatus),
		Overdue:        inv.IsOverdue(),
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func toSnapshotResponse(s billing.CustomerSnapshot) CustomerSnapshotResponse {
	return CustomerSnapshotResponse{
		Name:        s.Name,
		CompanyName: s.CompanyName,
		Email:       s.Email,
		Phone:       s.Phone,
		Address:     s.Address,
	}
}

// =============================================================================
// Payment DTOs
// =============================================================================

// SubmitPaymentRequest represents a request to record a payment against an
// invoice. TotalAmount optionally overrides the invoice total as the base
// for this reconciliation.
type SubmitPaymentRequest struct {
	InvoiceID     uuid.UUID        `json:"invoice_id" binding:"required"`
	PaymentNumber string           `json:"payment_number" binding:"required,min=1,max=50"`
	Method        string           `json:"method" binding:"required"`
	PaymentDate   time.Time        `json:"payment_date" binding:"required"`
	AmountPaid    decimal.Decimal  `json:"amount_paid"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
}

// UpdatePaymentRequest represents a request to correct a recorded payment
type UpdatePaymentRequest struct {
	PaymentNumber *string          `json:"payment_number" binding:"omitempty,min=1,max=50"`
	Method        *string          `json:"method"`
	PaymentDate   *time.Time       `json:"payment_date"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
}

// PaymentListFilter represents filtering options for listing payments
type PaymentListFilter struct {
	Skip      int        `form:"skip" binding:"min=0"`
	Take      int        `form:"take" binding:"min=0,max=100"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	InvoiceID *uuid.UUID `form:"invoice_id"`
	Status    string     `form:"status"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID                `json:"id"`
	InvoiceID     uuid.UUID                `json:"invoice_id"`
	PaymentNumber string                   `json:"payment_number"`
	Method        string                   `json:"method"`
	PaymentDate   time.Time                `json:"payment_date"`
	AmountPaid    decimal.Decimal          `json:"amount_paid"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	LeftToPay     decimal.Decimal          `json:"left_to_pay"`
	Status        string                   `json:"status"`
	Customer      CustomerSnapshotResponse `json:"customer"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// ToPaymentResponse converts a payment to its API representation
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		PaymentNumber: p.PaymentNumber,
		Method:        string(p.Method),
		PaymentDate:   p.PaymentDate,
		AmountPaid:    p.AmountPaid,
		TotalAmount:   p.TotalAmount,
		LeftToPay:     p.LeftToPay,
		Status:        string(p.Status),
		Customer:      toSnapshotResponse(p.Customer),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToPaymentResponses converts a payment slice to API representations
func ToPaymentResponses(payments []billing.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}
