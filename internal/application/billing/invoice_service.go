package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/domain/shared/valueobject"
	"github.com/invoicely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// InvoiceService handles invoice-related business operations. Every method
// takes the acting principal explicitly and enforces role-based access
// through the Authorizer before touching any aggregate.
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	paymentRepo    billing.PaymentRepository
	customerRepo   partner.CustomerRepository
	userRepo       identity.UserRepository
	reconciler     *billing.ReconciliationService
	authz          *identity.Authorizer
	eventPublisher shared.EventPublisher
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	customerRepo partner.CustomerRepository,
	userRepo identity.UserRepository,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		userRepo:     userRepo,
		reconciler:   billing.NewReconciliationService(),
		authz:        identity.NewAuthorizer(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *InvoiceService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, invoice.GetDomainEvents()...)
	invoice.ClearDomainEvents()
}

// Create issues a new invoice for the acting principal
func (s *InvoiceService) Create(ctx context.Context, p identity.Principal, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceNumber, req.InvoiceNumber,
		telemetry.SpanAttrUserID, p.ID.String(),
	)

	if !s.authz.CanCreateInvoice(p) {
		return nil, shared.ErrForbidden
	}

	existing, err := s.invoiceRepo.FindByInvoiceNumber(ctx, req.InvoiceNumber)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice with this number already exists")
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	issuer, err := s.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get issuing user: %w", err)
	}

	invoice, err := billing.NewInvoice(
		req.InvoiceNumber,
		req.InvoiceDate,
		req.DueDate,
		p.ID,
		customer.ID,
		customer.Snapshot(),
		billing.IssuerSnapshot{Name: issuer.Name, Email: issuer.Email, CompanyName: issuer.CompanyName},
		valueobject.Currency(req.Currency),
		req.Discount,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items, err := buildItems(req.Items)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := invoice.SetItems(items); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.Description != "" {
		invoice.Description = req.Description
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, invoice)

	live := customer.Snapshot()
	resp := ToInvoiceResponse(invoice, &live)
	return &resp, nil
}

// GetByID returns an invoice the principal may read
func (s *InvoiceService) GetByID(ctx context.Context, p identity.Principal, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	invoice, live, access, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanViewInvoice(p, access) {
		return nil, shared.ErrForbidden
	}

	resp := ToInvoiceResponse(invoice, live)
	return &resp, nil
}

// List returns the invoices visible to the principal. Admins see everything,
// users see the invoices they issued, customers see the invoices billed to
// their email.
func (s *InvoiceService) List(ctx context.Context, p identity.Principal, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{Filter: toSharedFilter(filter.Skip, filter.Take, filter.OrderBy, filter.OrderDir)}

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

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		live := s.liveSnapshot(ctx, &invoices[i])
		responses[i] = ToInvoiceResponse(&invoices[i], live)
	}

	return responses, total, nil
}

// Update modifies an invoice. When the update changes the grand total,
// every recorded payment is rebased against the new total and the invoice
// status is re-derived from the payment aggregate, all in one transaction.
func (s *InvoiceService) Update(ctx context.Context, p identity.Principal, invoiceID uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	invoice, live, access, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !s.authz.CanManageInvoice(p, access) {
		return nil, shared.ErrForbidden
	}

	previousTotal := invoice.Total()

	number := invoice.InvoiceNumber
	if req.InvoiceNumber != nil && *req.InvoiceNumber != invoice.InvoiceNumber {
		existing, err := s.invoiceRepo.FindByInvoiceNumber(ctx, *req.InvoiceNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if existing != nil {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice with this number already exists")
		}
		number = *req.InvoiceNumber
	}

	invoiceDate := invoice.InvoiceDate
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}
	dueDate := invoice.DueDate
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}
	description := invoice.Description
	if req.Description != nil {
		description = *req.Description
	}
	currency := invoice.Currency
	if req.Currency != nil {
		currency = valueobject.Currency(*req.Currency)
	}

	if err := invoice.UpdateDetails(number, invoiceDate, dueDate, description, currency); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.CustomerID != nil {
		customer, err := s.customerRepo.FindByID(ctx, *req.CustomerID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
		if err := invoice.AttachCustomer(customer.ID, customer.Snapshot()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		snap := customer.Snapshot()
		live = &snap
	}

	if req.Items != nil {
		items, err := buildItems(req.Items)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := invoice.SetItems(items); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if req.Discount != nil {
		if err := invoice.SetDiscount(*req.Discount); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	invoice.IncrementVersion()

	if !invoice.Total().Equal(previousTotal) {
		payments, err := s.paymentRepo.FindByInvoice(ctx, invoice.ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		s.reconciler.RebasePayments(payments, invoice.Total())
		if len(payments) > 0 {
			invoice.SetPaymentStatus(s.reconciler.DeriveInvoiceStatus(payments, invoice.Total()))
		}

		if err := s.invoiceRepo.SaveWithPayments(ctx, invoice, payments); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	s.publishEvents(ctx, invoice)

	resp := ToInvoiceResponse(invoice, live)
	return &resp, nil
}

// Delete removes an invoice together with its line items and payments
func (s *InvoiceService) Delete(ctx context.Context, p identity.Principal, invoiceID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	_, _, access, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if !s.authz.CanManageInvoice(p, access) {
		return shared.ErrForbidden
	}

	if err := s.invoiceRepo.Delete(ctx, invoiceID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// loadInvoice loads the invoice, the live customer snapshot (nil when the
// customer was deleted), and the access facts for authorization.
func (s *InvoiceService) loadInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Invoice, *billing.CustomerSnapshot, identity.InvoiceAccess, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, identity.InvoiceAccess{}, err
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

// liveSnapshot resolves the live customer for display, swallowing lookup
// failures so one stale row cannot break a listing.
func (s *InvoiceService) liveSnapshot(ctx context.Context, invoice *billing.Invoice) *billing.CustomerSnapshot {
	if invoice.CustomerID == nil {
		return nil
	}
	customer, err := s.customerRepo.FindByID(ctx, *invoice.CustomerID)
	if err != nil || customer == nil {
		return nil
	}
	snap := customer.Snapshot()
	return &snap
}

func buildItems(reqs []InvoiceItemRequest) ([]billing.InvoiceItem, error) {
	items := make([]billing.InvoiceItem, 0, len(reqs))
	for _, r := range reqs {
		item, err := billing.NewInvoiceItem(r.ItemName, r.Quantity, r.UnitPrice, r.Tax)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func toSharedFilter(skip, take int, orderBy, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	if skip > 0 {
		f.Skip = skip
	}
	if take > 0 {
		f.Take = take
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}
