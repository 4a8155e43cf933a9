package partner

import (
	"time"

	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	CompanyName string `json:"company_name" binding:"max=200"`
	Email       string `json:"email" binding:"required,email,max=200"`
	Phone       string `json:"phone" binding:"max=50"`
	Address     string `json:"address" binding:"max=500"`
}

// UpdateCustomerRequest represents a request to update a customer. Omitted
// fields keep their current value.
type UpdateCustomerRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	CompanyName *string `json:"company_name" binding:"omitempty,max=200"`
	Email       *string `json:"email" binding:"omitempty,email,max=200"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
}

// CustomerListFilter represents filtering options for listing customers
type CustomerListFilter struct {
	Skip     int    `form:"skip" binding:"min=0"`
	Take     int    `form:"take" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	CompanyName   string      `json:"company_name,omitempty"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone,omitempty"`
	Address       string      `json:"address,omitempty"`
	LinkedUserIDs []uuid.UUID `json:"linked_user_ids"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ToCustomerResponse converts a customer to its API representation
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	linked := c.LinkedUserIDs
	if linked == nil {
		linked = []uuid.UUID{}
	}
	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		CompanyName:   c.CompanyName,
		Email:         c.Email,
		Phone:         c.Phone,
		Address:       c.Address,
		LinkedUserIDs: linked,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// ToCustomerResponses converts a customer slice to API representations
func ToCustomerResponses(customers []partner.Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i := range customers {
		out[i] = ToCustomerResponse(&customers[i])
	}
	return out
}
