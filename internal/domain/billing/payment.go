package billing

import (
	"time"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "Credit Card"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodPayPal       PaymentMethod = "PayPal"
)

// IsValid checks if the payment method is one of the supported values
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodBankTransfer, PaymentMethodCash, PaymentMethodPayPal:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment represents a payment recorded against an invoice. TotalAmount is a
// snapshot of the invoice total at reconciliation time; LeftToPay and Status
// are derived by the ReconciliationService and never set directly by callers.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID     uuid.UUID
	PaymentNumber string
	Method        PaymentMethod
	PaymentDate   time.Time
	AmountPaid    decimal.Decimal
	TotalAmount   decimal.Decimal // invoice total snapshot
	LeftToPay     decimal.Decimal // clamped to >= 0
	Status        PaymentStatus
	Customer      CustomerSnapshot // mirrored from the invoice
}

// NewPayment creates a new payment shell for an invoice. Balance fields are
// populated by ApplyReconciliation before the payment is persisted.
func NewPayment(invoiceID uuid.UUID, paymentNumber string, method PaymentMethod, paymentDate time.Time, amountPaid decimal.Decimal, customer CustomerSnapshot) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if amountPaid.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be at least 0")
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		PaymentNumber:     paymentNumber,
		Method:            method,
		PaymentDate:       paymentDate,
		AmountPaid:        amountPaid,
		Status:            PaymentStatusUnpaid,
		Customer:          customer,
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// ApplyReconciliation records the outcome of a reconciled submission on the
// payment.
func (p *Payment) ApplyReconciliation(plan SubmissionPlan) {
	p.TotalAmount = plan.TotalAmount
	p.LeftToPay = plan.LeftToPay
	p.Status = plan.Status
	p.Touch()
	p.IncrementVersion()
}

// UpdateSubmission replaces the caller-editable fields of the payment. The
// balance fields are re-derived afterwards via ApplyReconciliation.
func (p *Payment) UpdateSubmission(paymentNumber string, method PaymentMethod, paymentDate time.Time, amountPaid decimal.Decimal) error {
	if paymentNumber == "" {
		return shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number is required")
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", "Invalid payment method")
	}
	if amountPaid.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be at least 0")
	}
	p.PaymentNumber = paymentNumber
	p.Method = method
	p.PaymentDate = paymentDate
	p.AmountPaid = amountPaid
	p.Touch()
	return nil
}

// SetCustomerSnapshot refreshes the mirrored customer contact fields
func (p *Payment) SetCustomerSnapshot(snapshot CustomerSnapshot) {
	p.Customer = snapshot
	p.Touch()
}

// IsUnpaid returns true if the payment is in UNPAID status
func (p *Payment) IsUnpaid() bool {
	return p.Status == PaymentStatusUnpaid
}

// applyRebase is invoked by the ReconciliationService when the invoice total
// changes underneath existing payments.
func (p *Payment) applyRebase(newTotal, leftToPay decimal.Decimal, status PaymentStatus) {
	p.TotalAmount = newTotal
	p.LeftToPay = leftToPay
	p.Status = status
	p.Touch()
	p.IncrementVersion()
}
