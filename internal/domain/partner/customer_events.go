package partner

import (
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerCreatedEvent is raised when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

// EventType returns the event type name
func (e *CustomerCreatedEvent) EventType() string {
	return "CustomerCreated"
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(c *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("CustomerCreated", "Customer", c.ID),
		CustomerID:      c.ID,
		Name:            c.Name,
		Email:           c.Email,
	}
}

// CustomerUpdatedEvent is raised when a customer's contact details change.
// Open invoices keep presenting the live record; only detached snapshots
// retain the old values.
type CustomerUpdatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
}

// EventType returns the event type name
func (e *CustomerUpdatedEvent) EventType() string {
	return "CustomerUpdated"
}

// NewCustomerUpdatedEvent creates a new CustomerUpdatedEvent
func NewCustomerUpdatedEvent(c *Customer) *CustomerUpdatedEvent {
	return &CustomerUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("CustomerUpdated", "Customer", c.ID),
		CustomerID:      c.ID,
		Name:            c.Name,
		Email:           c.Email,
	}
}
