package partner

import (
	"context"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerFilter defines filtering options for customer queries
type CustomerFilter struct {
	shared.Filter
	LinkedUserID *uuid.UUID // customers a user may act for
	Search       *string    // matches name, company name, or email
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by ID, linked users included
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByEmail finds a customer by email
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// FindAll finds customers matching the filter
	FindAll(ctx context.Context, filter CustomerFilter) ([]Customer, error)

	// Count counts customers matching the filter
	Count(ctx context.Context, filter CustomerFilter) (int64, error)

	// ExistsByEmail checks whether a customer with the email already exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Save creates or updates a customer and replaces its user links in one
	// transaction
	Save(ctx context.Context, customer *Customer) error

	// SaveWithLock updates a customer with an optimistic version check
	SaveWithLock(ctx context.Context, customer *Customer) error

	// Delete removes a customer. Invoices and payments keep their stored
	// snapshot of the customer's contact fields.
	Delete(ctx context.Context, id uuid.UUID) error
}
