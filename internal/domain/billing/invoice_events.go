package billing

import (
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	UserID        uuid.UUID       `json:"user_id"`
	CustomerName  string          `json:"customer_name"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		UserID:          inv.UserID,
		CustomerName:    inv.Customer.Name,
		Currency:        string(inv.Currency),
		Total:           inv.Totals.Total,
	}
}

// InvoicePaymentStatusChangedEvent is raised when reconciliation moves the
// invoice to a different payment status
type InvoicePaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID     `json:"invoice_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	NewStatus      PaymentStatus `json:"new_status"`
}

// EventType returns the event type name
func (e *InvoicePaymentStatusChangedEvent) EventType() string {
	return "InvoicePaymentStatusChanged"
}

// NewInvoicePaymentStatusChangedEvent creates a new InvoicePaymentStatusChangedEvent
func NewInvoicePaymentStatusChangedEvent(inv *Invoice, previous PaymentStatus) *InvoicePaymentStatusChangedEvent {
	return &InvoicePaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaymentStatusChanged", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousStatus:  previous,
		NewStatus:       inv.PaymentStatus,
	}
}
