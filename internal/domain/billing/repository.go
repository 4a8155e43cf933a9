package billing

import (
	"context"
	"time"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	UserID        *uuid.UUID     // scope to the issuing user
	CustomerEmail *string        // scope to a billed customer's email (live or snapshot)
	Status        *PaymentStatus // filter by payment status
	DueBefore     *time.Time     // only invoices due before this instant and not fully paid
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID     *uuid.UUID // scope to one invoice
	UserID        *uuid.UUID // scope to the user who issued the parent invoice
	CustomerEmail *string    // scope to the mirrored customer email
	Status        *PaymentStatus
}

// InvoiceRepository defines the interface for invoice persistence.
// Invoices are always loaded and saved together with their line items.
type InvoiceRepository interface {
	// FindByID finds an invoice by ID, items included
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds an invoice by its unique number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll finds invoices matching the filter
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// Save creates or updates an invoice and replaces its items in one
	// transaction
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithPayments updates the invoice (with a version check), replaces
	// its items, and persists the rebased payments in one transaction. Used
	// when an invoice total change forces every payment to be reconciled
	// against the new total.
	SaveWithPayments(ctx context.Context, invoice *Invoice, payments []Payment) error

	// UpdatePaymentStatus sets only the invoice's payment status
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error

	// Delete removes an invoice and cascades to its line items
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByInvoice lists all payments recorded against an invoice in
	// creation order
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)

	// FindUnpaidByInvoice returns the invoice's UNPAID payment, or nil when
	// none exists. At most one can exist at any time.
	FindUnpaidByInvoice(ctx context.Context, invoiceID uuid.UUID) (*Payment, error)

	// FindAll finds payments matching the filter
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)

	// Count counts payments matching the filter
	Count(ctx context.Context, filter PaymentFilter) (int64, error)

	// CountByInvoice counts the payments recorded against an invoice
	CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)

	// SaveWithInvoiceStatus persists the payment and the invoice's derived
	// payment status in one transaction, with an optimistic version check on
	// the invoice row. A concurrent reconciliation of the same invoice makes
	// the version check fail with a concurrency conflict.
	SaveWithInvoiceStatus(ctx context.Context, payment *Payment, invoice *Invoice) error

	// DeleteWithInvoiceReset deletes the payment and, when no payments
	// remain for the invoice, resets the invoice's payment status to UNPAID
	// in the same transaction.
	DeleteWithInvoiceReset(ctx context.Context, paymentID, invoiceID uuid.UUID) error
}
