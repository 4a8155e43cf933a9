package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the settlement state of an invoice or of a single
// payment recorded against it.
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusPending       PaymentStatus = "PENDING" // accepted on input, never derived
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusPaid, PaymentStatusPending:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// OverpaymentError is returned when a payment submission exceeds the amount
// left to pay on the invoice. It carries the remaining payable amount so
// callers can report it.
type OverpaymentError struct {
	Remaining decimal.Decimal
}

// Error implements the error interface
func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("You cannot pay more than the remaining amount. The remaining amount is %s.", e.Remaining.StringFixed(2))
}

// NewOverpaymentError creates an OverpaymentError for the given remaining amount
func NewOverpaymentError(remaining decimal.Decimal) *OverpaymentError {
	return &OverpaymentError{Remaining: remaining}
}

// ReconciliationService is a stateless domain service that derives payment
// balances and statuses. All methods are pure: they read the inputs, compute,
// and return; persistence is the caller's concern.
type ReconciliationService struct{}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// DeriveStatus derives a payment status from the remaining balance and the
// cumulative amount paid. leftToPay is the pre-clamp value: a negative
// leftToPay never reaches this method because overpayment is rejected first,
// but the zero comparison must see the exact arithmetic result.
//
// Evaluation order matters:
//  1. leftToPay == 0            -> PAID
//  2. leftToPay > 0, paid > 0   -> PARTIALLY_PAID
//  3. otherwise (paid == 0)     -> UNPAID
func (s *ReconciliationService) DeriveStatus(leftToPay, totalPaid decimal.Decimal) PaymentStatus {
	switch {
	case leftToPay.IsZero():
		return PaymentStatusPaid
	case leftToPay.IsPositive() && totalPaid.IsPositive():
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusUnpaid
	}
}

// SubmissionInput describes a payment submission to be reconciled against an
// invoice. OtherPaymentsPaid is the sum of AmountPaid across every payment
// already recorded on the invoice, excluding the payment being updated (if
// any). TotalOverride, when set, replaces the invoice total as the base
// amount for this reconciliation.
type SubmissionInput struct {
	InvoiceTotal      decimal.Decimal
	OtherPaymentsPaid decimal.Decimal
	AmountPaid        decimal.Decimal
	TotalOverride     *decimal.Decimal
}

// SubmissionPlan is the reconciliation outcome for a payment submission.
// LeftToPay is already clamped to >= 0 for persistence; Status was derived
// from the pre-clamp value.
type SubmissionPlan struct {
	TotalAmount decimal.Decimal
	TotalPaid   decimal.Decimal
	LeftToPay   decimal.Decimal
	Status      PaymentStatus
}

// PlanSubmission validates and reconciles a payment submission.
// Returns an OverpaymentError when the submitted amount exceeds what is left
// to pay; no other business rule can fail.
func (s *ReconciliationService) PlanSubmission(in SubmissionInput) (*SubmissionPlan, error) {
	totalAmount := in.InvoiceTotal
	if in.TotalOverride != nil && !in.TotalOverride.IsZero() {
		totalAmount = *in.TotalOverride
	}

	remaining := totalAmount.Sub(in.OtherPaymentsPaid)
	if in.AmountPaid.GreaterThan(remaining) {
		return nil, NewOverpaymentError(remaining)
	}

	totalPaid := in.OtherPaymentsPaid.Add(in.AmountPaid)
	leftToPay := totalAmount.Sub(totalPaid)
	status := s.DeriveStatus(leftToPay, totalPaid)

	if leftToPay.IsNegative() {
		leftToPay = decimal.Zero
	}

	return &SubmissionPlan{
		TotalAmount: totalAmount,
		TotalPaid:   totalPaid,
		LeftToPay:   leftToPay,
		Status:      status,
	}, nil
}

// RebasePayments recomputes every payment's balance and status against a new
// invoice total, mutating the payments in place. It is invoked when an
// invoice's total changes after payments were recorded.
func (s *ReconciliationService) RebasePayments(payments []Payment, newTotal decimal.Decimal) {
	for i := range payments {
		leftToPay := newTotal.Sub(payments[i].AmountPaid)
		// A lowered total can leave a payment above the new total; the
		// balance clamps to zero and the payment reads as paid in full.
		if leftToPay.IsNegative() {
			leftToPay = decimal.Zero
		}
		status := s.DeriveStatus(leftToPay, payments[i].AmountPaid)
		payments[i].applyRebase(newTotal, leftToPay, status)
	}
}

// DeriveInvoiceStatus derives an invoice's payment status from the aggregate
// of all its payments rather than from any single payment: PAID when the sum
// of amounts paid covers the total, PARTIALLY_PAID when something but not
// everything was paid, UNPAID otherwise.
func (s *ReconciliationService) DeriveInvoiceStatus(payments []Payment, invoiceTotal decimal.Decimal) PaymentStatus {
	totalPaid := decimal.Zero
	for i := range payments {
		totalPaid = totalPaid.Add(payments[i].AmountPaid)
	}

	switch {
	case totalPaid.IsZero():
		return PaymentStatusUnpaid
	case totalPaid.GreaterThanOrEqual(invoiceTotal):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartiallyPaid
	}
}
