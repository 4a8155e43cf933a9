package partner

import (
	"context"

	"github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo   partner.CustomerRepository
	authz          *identity.Authorizer
	eventPublisher shared.EventPublisher
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		authz:        identity.NewAuthorizer(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CustomerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *CustomerService) publishEvents(ctx context.Context, customer *partner.Customer) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, customer.GetDomainEvents()...)
	customer.ClearDomainEvents()
}

// Create creates a new customer linked to the acting principal
func (s *CustomerService) Create(ctx context.Context, p identity.Principal, req CreateCustomerRequest) (*CustomerResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "create")
	defer span.End()

	if !s.authz.CanCreateCustomer(p) {
		return nil, shared.ErrForbidden
	}

	exists, err := s.customerRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this email already exists")
	}

	customer, err := partner.NewCustomer(req.Name, req.CompanyName, req.Email, req.Phone, req.Address)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// The creating user manages the customer they created.
	if p.Role == identity.RoleUser {
		if err := customer.LinkUser(p.ID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, customer)

	telemetry.SetAttribute(span, telemetry.SpanAttrCustomerID, customer.ID.String())
	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// GetByID returns a customer the principal may read
func (s *CustomerService) GetByID(ctx context.Context, p identity.Principal, customerID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanViewCustomer(p, customerAccess(customer)) {
		return nil, shared.ErrForbidden
	}

	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// List returns the customers visible to the principal. Admins see everyone,
// users see the customers linked to them, customers see only their own
// record.
func (s *CustomerService) List(ctx context.Context, p identity.Principal, filter CustomerListFilter) ([]CustomerResponse, int64, error) {
	domainFilter := partner.CustomerFilter{}
	domainFilter.Filter = shared.DefaultFilter()
	if filter.Skip > 0 {
		domainFilter.Skip = filter.Skip
	}
	if filter.Take > 0 {
		domainFilter.Take = filter.Take
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Search != "" {
		search := filter.Search
		domainFilter.Search = &search
	}

	switch p.Role {
	case identity.RoleAdmin:
		// unrestricted
	case identity.RoleUser:
		userID := p.ID
		domainFilter.LinkedUserID = &userID
	case identity.RoleCustomer:
		customer, err := s.customerRepo.FindByEmail(ctx, p.Email)
		if err != nil {
			return []CustomerResponse{}, 0, nil
		}
		return []CustomerResponse{ToCustomerResponse(customer)}, 1, nil
	default:
		return nil, 0, shared.ErrForbidden
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToCustomerResponses(customers), total, nil
}

// Update modifies a customer's contact details. Open invoices keep showing
// the live record; stored snapshots are left untouched.
func (s *CustomerService) Update(ctx context.Context, p identity.Principal, customerID uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCustomerID, customerID.String())

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !s.authz.CanManageCustomer(p, customerAccess(customer)) {
		return nil, shared.ErrForbidden
	}

	name := customer.Name
	if req.Name != nil {
		name = *req.Name
	}
	companyName := customer.CompanyName
	if req.CompanyName != nil {
		companyName = *req.CompanyName
	}
	email := customer.Email
	if req.Email != nil {
		if *req.Email != customer.Email {
			exists, err := s.customerRepo.ExistsByEmail(ctx, *req.Email)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			if exists {
				return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this email already exists")
			}
		}
		email = *req.Email
	}
	phone := customer.Phone
	if req.Phone != nil {
		phone = *req.Phone
	}
	address := customer.Address
	if req.Address != nil {
		address = *req.Address
	}

	if err := customer.Update(name, companyName, email, phone, address); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, customer)

	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// LinkUser grants a user access to the customer
func (s *CustomerService) LinkUser(ctx context.Context, p identity.Principal, customerID, userID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanManageCustomer(p, customerAccess(customer)) {
		return nil, shared.ErrForbidden
	}

	if err := customer.LinkUser(userID); err != nil {
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// UnlinkUser revokes a user's access to the customer
func (s *CustomerService) UnlinkUser(ctx context.Context, p identity.Principal, customerID, userID uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanManageCustomer(p, customerAccess(customer)) {
		return nil, shared.ErrForbidden
	}

	customer.UnlinkUser(userID)

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}

	resp := ToCustomerResponse(customer)
	return &resp, nil
}

// Delete removes a customer. Invoices and payments that reference it fall
// back to their stored snapshot of the contact fields.
func (s *CustomerService) Delete(ctx context.Context, p identity.Principal, customerID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCustomerID, customerID.String())

	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if !s.authz.CanManageCustomer(p, customerAccess(customer)) {
		return shared.ErrForbidden
	}

	if err := s.customerRepo.Delete(ctx, customerID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func customerAccess(c *partner.Customer) identity.CustomerAccess {
	return identity.CustomerAccess{
		Email:         c.Email,
		LinkedUserIDs: c.LinkedUserIDs,
	}
}
