package identity

import (
	"github.com/google/uuid"
)

// InvoiceAccess describes the facts about an invoice that authorization
// decisions depend on. CustomerEmail is the effective billed email: the live
// customer's when attached, the stored snapshot's otherwise.
type InvoiceAccess struct {
	OwnerUserID   uuid.UUID
	CustomerEmail string
	LinkedUserIDs []uuid.UUID // users linked to the live customer
}

// CustomerAccess describes the facts about a customer that authorization
// decisions depend on.
type CustomerAccess struct {
	Email         string
	LinkedUserIDs []uuid.UUID
}

// Authorizer decides what a principal may do. It is a stateless domain
// service: every decision is a pure function of the principal and the
// resource facts passed in.
//
// Role semantics:
//   - ADMIN operates on everything.
//   - USER operates on invoices they issued and on customers linked to them.
//   - CUSTOMER reads invoices billed to their email and records payments on
//     them. Customers never delete anything and never create invoices,
//     customers, or users.
type Authorizer struct{}

// NewAuthorizer creates a new Authorizer
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// CanViewInvoice reports whether the principal may read the invoice
func (a *Authorizer) CanViewInvoice(p Principal, access InvoiceAccess) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return p.ID == access.OwnerUserID || containsID(access.LinkedUserIDs, p.ID)
	case RoleCustomer:
		return p.EmailMatches(access.CustomerEmail)
	}
	return false
}

// CanCreateInvoice reports whether the principal may issue new invoices
func (a *Authorizer) CanCreateInvoice(p Principal) bool {
	return p.Role == RoleAdmin || p.Role == RoleUser
}

// CanManageInvoice reports whether the principal may update or delete the
// invoice
func (a *Authorizer) CanManageInvoice(p Principal, access InvoiceAccess) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return p.ID == access.OwnerUserID || containsID(access.LinkedUserIDs, p.ID)
	}
	return false
}

// CanRecordPayment reports whether the principal may create or update a
// payment against the invoice. Customers may pay their own invoices.
func (a *Authorizer) CanRecordPayment(p Principal, access InvoiceAccess) bool {
	if a.CanManageInvoice(p, access) {
		return true
	}
	return p.Role == RoleCustomer && p.EmailMatches(access.CustomerEmail)
}

// CanDeletePayment reports whether the principal may delete a payment.
// Customers never delete payments, even on their own invoices.
func (a *Authorizer) CanDeletePayment(p Principal, access InvoiceAccess) bool {
	return a.CanManageInvoice(p, access)
}

// CanViewCustomer reports whether the principal may read the customer record
func (a *Authorizer) CanViewCustomer(p Principal, access CustomerAccess) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return containsID(access.LinkedUserIDs, p.ID)
	case RoleCustomer:
		return p.EmailMatches(access.Email)
	}
	return false
}

// CanCreateCustomer reports whether the principal may create customer records
func (a *Authorizer) CanCreateCustomer(p Principal) bool {
	return p.Role == RoleAdmin || p.Role == RoleUser
}

// CanManageCustomer reports whether the principal may update or delete the
// customer record
func (a *Authorizer) CanManageCustomer(p Principal, access CustomerAccess) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return containsID(access.LinkedUserIDs, p.ID)
	}
	return false
}

// CanManageUsers reports whether the principal may administer user accounts
func (a *Authorizer) CanManageUsers(p Principal) bool {
	return p.Role == RoleAdmin
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
