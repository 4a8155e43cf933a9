package billing

import (
	"time"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceItem represents a line item on an invoice
type InvoiceItem struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	ItemName  string
	Quantity  decimal.Decimal // positive
	UnitPrice decimal.Decimal // non-negative
	Tax       decimal.Decimal // percentage, non-negative
	TotalTax  decimal.Decimal // quantity * unitPrice * tax/100
	Total     decimal.Decimal // quantity * unitPrice + totalTax
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInvoiceItem creates a new invoice line item with derived amounts
func NewInvoiceItem(itemName string, quantity, unitPrice, tax decimal.Decimal) (*InvoiceItem, error) {
	if itemName == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if tax.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX", "Tax must be a positive value or zero")
	}

	now := time.Now()
	line := quantity.Mul(unitPrice)
	totalTax := line.Mul(tax).Div(decimal.NewFromInt(100))

	return &InvoiceItem{
		ID:        uuid.New(),
		ItemName:  itemName,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Tax:       tax,
		TotalTax:  totalTax,
		Total:     line.Add(totalTax),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IssuerSnapshot is a denormalized copy of the issuing user's display fields,
// captured onto the invoice at write time.
type IssuerSnapshot struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CompanyName string `json:"company_name"`
}

// Invoice represents an invoice aggregate root. It owns its line items and
// the derived monetary totals; payment state is reconciled onto it by the
// ReconciliationService.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	UserID        uuid.UUID  // issuing user
	CustomerID    *uuid.UUID // live relation, nil once the customer is deleted
	Customer      CustomerSnapshot
	Issuer        IssuerSnapshot
	Description   string
	Items         []InvoiceItem
	Discount      decimal.Decimal // percentage, 0..100
	Currency      valueobject.Currency
	Totals        Totals
	PaymentStatus PaymentStatus
}

// NewInvoice creates a new invoice in UNPAID status with no items yet.
// Items are attached through SetItems, which derives the totals.
func NewInvoice(
	invoiceNumber string,
	invoiceDate, dueDate time.Time,
	userID, customerID uuid.UUID,
	customer CustomerSnapshot,
	issuer IssuerSnapshot,
	currency valueobject.Currency,
	discount decimal.Decimal,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Issuing user ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be one of USD, EUR, RON, GBP, AUD, CAD, or CHF")
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100")
	}

	cid := customerID
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		UserID:            userID,
		CustomerID:        &cid,
		Customer:          customer,
		Issuer:            issuer,
		Discount:          discount,
		Currency:          currency,
		PaymentStatus:     PaymentStatusUnpaid,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// SetItems replaces the invoice's line items and recalculates the totals.
// At least one item is required.
func (inv *Invoice) SetItems(items []InvoiceItem) error {
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_ITEMS", "At least one item is required")
	}
	for i := range items {
		items[i].InvoiceID = inv.ID
	}
	inv.Items = items
	inv.recalculateTotals()
	inv.Touch()
	return nil
}

// SetDiscount updates the order-level discount percentage and recalculates
// the totals.
func (inv *Invoice) SetDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100")
	}
	inv.Discount = discount
	inv.recalculateTotals()
	inv.Touch()
	return nil
}

// UpdateDetails updates the invoice header fields
func (inv *Invoice) UpdateDetails(invoiceNumber string, invoiceDate, dueDate time.Time, description string, currency valueobject.Currency) error {
	if invoiceNumber == "" {
		return shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if !currency.IsValid() {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be one of USD, EUR, RON, GBP, AUD, CAD, or CHF")
	}
	inv.InvoiceNumber = invoiceNumber
	inv.InvoiceDate = invoiceDate
	inv.DueDate = dueDate
	inv.Description = description
	inv.Currency = currency
	inv.Touch()
	return nil
}

// AttachCustomer re-points the invoice at a customer and refreshes the
// denormalized snapshot from the live record.
func (inv *Invoice) AttachCustomer(customerID uuid.UUID, snapshot CustomerSnapshot) error {
	if customerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	cid := customerID
	inv.CustomerID = &cid
	inv.Customer = snapshot
	inv.Touch()
	return nil
}

// DetachCustomer clears the live customer relation. The snapshot fields stay
// behind as the fallback source of truth.
func (inv *Invoice) DetachCustomer() {
	inv.CustomerID = nil
	inv.Touch()
}

// SetPaymentStatus records the reconciled payment status on the invoice
func (inv *Invoice) SetPaymentStatus(status PaymentStatus) {
	if inv.PaymentStatus == status {
		return
	}
	previous := inv.PaymentStatus
	inv.PaymentStatus = status
	inv.Touch()
	inv.AddDomainEvent(NewInvoicePaymentStatusChangedEvent(inv, previous))
}

// EffectiveCustomer returns the customer contact fields to present and
// authorize against: the live relation when attached, the stored snapshot
// otherwise.
func (inv *Invoice) EffectiveCustomer(live *CustomerSnapshot) CustomerSnapshot {
	if inv.CustomerID == nil {
		return inv.Customer
	}
	return inv.Customer.ResolveWith(live)
}

// Total returns the invoice grand total
func (inv *Invoice) Total() decimal.Decimal {
	return inv.Totals.Total
}

// TotalMoney returns the grand total as Money in the invoice currency
func (inv *Invoice) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.Totals.Total, inv.Currency)
	return m
}

// CurrencySymbol returns the denormalized display symbol for the invoice's
// currency
func (inv *Invoice) CurrencySymbol() string {
	return inv.Currency.Symbol()
}

// IsOverdue returns true if the invoice is past its due date and not fully
// paid
func (inv *Invoice) IsOverdue() bool {
	if inv.PaymentStatus == PaymentStatusPaid {
		return false
	}
	return time.Now().After(inv.DueDate)
}

func (inv *Invoice) recalculateTotals() {
	inv.Totals = CalculateInvoiceTotals(inv.Items, inv.Discount)
}
