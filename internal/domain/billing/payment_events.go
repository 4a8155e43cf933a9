package billing

import (
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecordedEvent is raised when a payment is recorded against an invoice
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	PaymentNumber string          `json:"payment_number"`
	Method        PaymentMethod   `json:"method"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return "PaymentRecorded"
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentRecorded", "Payment", p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		PaymentNumber:   p.PaymentNumber,
		Method:          p.Method,
		AmountPaid:      p.AmountPaid,
	}
}
