package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentService handles payment submission and reconciliation against
// invoices. Balances and statuses are always derived by the
// ReconciliationService and persisted together with the invoice's status in
// one transaction.
type PaymentService struct {
	paymentRepo    billing.PaymentRepository
	invoiceRepo    billing.InvoiceRepository
	customerRepo   partner.CustomerRepository
	reconciler     *billing.ReconciliationService
	authz          *identity.Authorizer
	eventPublisher shared.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	customerRepo partner.CustomerRepository,
) *PaymentService {
	return &PaymentService{
		paymentRepo:  paymentRepo,
		invoiceRepo:  invoiceRepo,
		customerRepo: customerRepo,
		reconciler:   billing.NewReconciliationService(),
		authz:        identity.NewAuthorizer(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PaymentService) publishEvents(ctx context.Context, payment *billing.Payment, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	events := append(payment.GetDomainEvents(), invoice.GetDomainEvents()...)
	_ = s.eventPublisher.Publish(ctx, events...)
	payment.ClearDomainEvents()
	invoice.ClearDomainEvents()
}

// Submit records a payment against an invoice. When the invoice already has
// an open UNPAID payment, the submission folds into it instead of creating a
// second one, so at most one UNPAID payment exists per invoice at any time.
// Submissions exceeding the remaining balance are rejected.
func (s *PaymentService) Submit(ctx context.Context, p identity.Principal, req SubmitPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "submit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.AmountPaid.String(),
	)

	invoice, live, access, err := s.loadInvoice(ctx, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !s.authz.CanRecordPayment(p, access) {
		return nil, shared.ErrForbidden
	}

	method := billing.PaymentMethod(req.Method)

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Fold into the open UNPAID payment when one exists.
	var target *billing.Payment
	for i := range payments {
		if payments[i].IsUnpaid() {
			target = &payments[i]
			break
		}
	}

	if target != nil {
		if err := target.UpdateSubmission(req.PaymentNumber, method, req.PaymentDate, req.AmountPaid); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		snapshot := invoice.EffectiveCustomer(live)
		target, err = billing.NewPayment(invoice.ID, req.PaymentNumber, method, req.PaymentDate, req.AmountPaid, snapshot)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	plan, err := s.reconciler.PlanSubmission(billing.SubmissionInput{
		InvoiceTotal:      invoice.Total(),
		OtherPaymentsPaid: sumOtherPayments(payments, target.ID),
		AmountPaid:        req.AmountPaid,
		TotalOverride:     req.TotalAmount,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	target.ApplyReconciliation(*plan)

	// Derive against the plan's total so a caller-supplied override moves
	// the invoice status together with the payment it rebased.
	invoice.SetPaymentStatus(s.deriveInvoiceStatus(payments, target, plan.TotalAmount))

	if err := s.paymentRepo.SaveWithInvoiceStatus(ctx, target, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, target, invoice)

	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, string(target.Status))
	resp := ToPaymentResponse(target)
	return &resp, nil
}

// Update corrects a recorded payment and re-reconciles it against the
// invoice, excluding the payment's own previous amount from the balance.
func (s *PaymentService) Update(ctx context.Context, p identity.Principal, paymentID uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String())

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, _, access, err := s.loadInvoice(ctx, payment.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !s.authz.CanRecordPayment(p, access) {
		return nil, shared.ErrForbidden
	}

	number := payment.PaymentNumber
	if req.PaymentNumber != nil {
		number = *req.PaymentNumber
	}
	method := payment.Method
	if req.Method != nil {
		method = billing.PaymentMethod(*req.Method)
	}
	paymentDate := payment.PaymentDate
	if req.PaymentDate != nil {
		paymentDate = *req.PaymentDate
	}
	amountPaid := payment.AmountPaid
	if req.AmountPaid != nil {
		amountPaid = *req.AmountPaid
	}

	if err := payment.UpdateSubmission(number, method, paymentDate, amountPaid); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	plan, err := s.reconciler.PlanSubmission(billing.SubmissionInput{
		InvoiceTotal:      invoice.Total(),
		OtherPaymentsPaid: sumOtherPayments(payments, payment.ID),
		AmountPaid:        amountPaid,
		TotalOverride:     req.TotalAmount,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.ApplyReconciliation(*plan)

	invoice.SetPaymentStatus(s.deriveInvoiceStatus(payments, payment, plan.TotalAmount))

	if err := s.paymentRepo.SaveWithInvoiceStatus(ctx, payment, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, payment, invoice)

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// Delete removes a payment. When it was the invoice's last payment, the
// invoice drops back to UNPAID in the same transaction; otherwise the
// invoice status is left as derived from the remaining payments.
func (s *PaymentService) Delete(ctx context.Context, p identity.Principal, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String())

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	_, _, access, err := s.loadInvoice(ctx, payment.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if !s.authz.CanDeletePayment(p, access) {
		return shared.ErrForbidden
	}

	if err := s.paymentRepo.DeleteWithInvoiceReset(ctx, payment.ID, payment.InvoiceID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// GetByID returns a payment the principal may read
func (s *PaymentService) GetByID(ctx context.Context, p identity.Principal, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	_, _, access, err := s.loadInvoice(ctx, payment.InvoiceID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanViewInvoice(p, access) {
		return nil, shared.ErrForbidden
	}

	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns the payments visible to the principal, scoped the same way
// invoice listing is.
func (s *PaymentService) List(ctx context.Context, p identity.Principal, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	domainFilter := billing.PaymentFilter{Filter: toSharedFilter(filter.Skip, filter.Take, filter.OrderBy, filter.OrderDir)}
	domainFilter.InvoiceID = filter.InvoiceID

	if filter.Status != "" {
		status := billing.PaymentStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Invalid payment status filter")
		}
		domainFilter.Status = &status
	}

	switch p.Role {
	case identity.RoleAdmin:
		// unrestricted
	case identity.RoleUser:
		userID := p.ID
		domainFilter.UserID = &userID
	case identity.RoleCustomer:
		email := p.Email
		domainFilter.CustomerEmail = &email
	default:
		return nil, 0, shared.ErrForbidden
	}

	payments, err := s.paymentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.paymentRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToPaymentResponses(payments), total, nil
}

// ListByInvoice returns every payment recorded against one invoice
func (s *PaymentService) ListByInvoice(ctx context.Context, p identity.Principal, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	_, _, access, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanViewInvoice(p, access) {
		return nil, shared.ErrForbidden
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return ToPaymentResponses(payments), nil
}

func (s *PaymentService) loadInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, *billing.CustomerSnapshot, identity.InvoiceAccess, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, identity.InvoiceAccess{}, fmt.Errorf("failed to get invoice: %w", err)
	}

	access := identity.InvoiceAccess{OwnerUserID: invoice.UserID}

	var live *billing.CustomerSnapshot
	if invoice.CustomerID != nil {
		customer, err := s.customerRepo.FindByID(ctx, *invoice.CustomerID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, nil, identity.InvoiceAccess{}, err
		}
		if customer != nil {
			snap := customer.Snapshot()
			live = &snap
			access.LinkedUserIDs = customer.LinkedUserIDs
		}
	}

	access.CustomerEmail = invoice.EffectiveCustomer(live).Email

	return invoice, live, access, nil
}

// deriveInvoiceStatus folds the in-flight payment into the persisted set
// before deriving the invoice's aggregate status.
func (s *PaymentService) deriveInvoiceStatus(persisted []billing.Payment, current *billing.Payment, invoiceTotal decimal.Decimal) billing.PaymentStatus {
	all := make([]billing.Payment, 0, len(persisted)+1)
	found := false
	for i := range persisted {
		if persisted[i].ID == current.ID {
			all = append(all, *current)
			found = true
			continue
		}
		all = append(all, persisted[i])
	}
	if !found {
		all = append(all, *current)
	}
	return s.reconciler.DeriveInvoiceStatus(all, invoiceTotal)
}

func sumOtherPayments(payments []billing.Payment, excludeID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for i := range payments {
		if payments[i].ID == excludeID {
			continue
		}
		sum = sum.Add(payments[i].AmountPaid)
	}
	return sum
}
