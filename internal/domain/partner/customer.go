package partner

import (
	"regexp"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer represents a billed party in the partner context. It is the
// aggregate root for customer-related operations. Users linked to the
// customer may manage its invoices and payments.
type Customer struct {
	shared.BaseAggregateRoot
	Name          string
	CompanyName   string
	Email         string
	Phone         string
	Address       string
	LinkedUserIDs []uuid.UUID
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NewCustomer creates a new customer with required fields
func NewCustomer(name, companyName, email, phone, address string) (*Customer, error) {
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}
	if err := validateCustomerEmail(email); err != nil {
		return nil, err
	}
	if err := validateCustomerContact(phone, address); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CompanyName:       companyName,
		Email:             email,
		Phone:             phone,
		Address:           address,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// Update updates the customer's contact information
func (c *Customer) Update(name, companyName, email, phone, address string) error {
	if err := validateCustomerName(name); err != nil {
		return err
	}
	if err := validateCustomerEmail(email); err != nil {
		return err
	}
	if err := validateCustomerContact(phone, address); err != nil {
		return err
	}

	c.Name = name
	c.CompanyName = companyName
	c.Email = email
	c.Phone = phone
	c.Address = address
	c.Touch()
	c.IncrementVersion()

	c.AddDomainEvent(NewCustomerUpdatedEvent(c))

	return nil
}

// LinkUser grants a user access to this customer's invoices and payments.
// Linking an already linked user is a no-op.
func (c *Customer) LinkUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if c.IsLinkedTo(userID) {
		return nil
	}

	c.LinkedUserIDs = append(c.LinkedUserIDs, userID)
	c.Touch()
	c.IncrementVersion()

	return nil
}

// UnlinkUser revokes a user's access to this customer
func (c *Customer) UnlinkUser(userID uuid.UUID) {
	for i, id := range c.LinkedUserIDs {
		if id == userID {
			c.LinkedUserIDs = append(c.LinkedUserIDs[:i], c.LinkedUserIDs[i+1:]...)
			c.Touch()
			c.IncrementVersion()
			return
		}
	}
}

// IsLinkedTo returns true if the user is linked to this customer
func (c *Customer) IsLinkedTo(userID uuid.UUID) bool {
	for _, id := range c.LinkedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Snapshot returns the customer's contact fields as a billing snapshot,
// ready to be denormalized onto invoices and payments.
func (c *Customer) Snapshot() billing.CustomerSnapshot {
	return billing.CustomerSnapshot{
		Name:        c.Name,
		CompanyName: c.CompanyName,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
	}
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

func validateCustomerEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Customer email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validateCustomerContact(phone, address string) error {
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	return nil
}
