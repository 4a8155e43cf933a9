package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for invoices. The billed customer's
// contact fields are denormalized onto the row so invoices survive customer
// deletion.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	InvoiceDate   time.Time  `gorm:"not null"`
	DueDate       time.Time  `gorm:"not null"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index"`

	CustomerName        string `gorm:"type:varchar(255);not null"`
	CustomerCompanyName string `gorm:"type:varchar(255)"`
	CustomerEmail       string `gorm:"type:varchar(255);not null;index"`
	CustomerPhone       string `gorm:"type:varchar(50)"`
	CustomerAddress     string `gorm:"type:text"`

	IssuerName        string `gorm:"type:varchar(255);not null"`
	IssuerEmail       string `gorm:"type:varchar(255);not null"`
	IssuerCompanyName string `gorm:"type:varchar(255)"`

	Description    string          `gorm:"type:text"`
	Discount       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	PaymentStatus  string          `gorm:"type:varchar(20);not null;index"`

	Items []InvoiceItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for InvoiceModel
func (InvoiceModel) TableName() string {
	return "invoices"
}

// FromDomain populates the model from a domain invoice
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.UserID = inv.UserID
	m.CustomerID = inv.CustomerID
	m.CustomerName = inv.Customer.Name
	m.CustomerCompanyName = inv.Customer.CompanyName
	m.CustomerEmail = inv.Customer.Email
	m.CustomerPhone = inv.Customer.Phone
	m.CustomerAddress = inv.Customer.Address
	m.IssuerName = inv.Issuer.Name
	m.IssuerEmail = inv.Issuer.Email
	m.IssuerCompanyName = inv.Issuer.CompanyName
	m.Description = inv.Description
	m.Discount = inv.Discount
	m.Currency = string(inv.Currency)
	m.Subtotal = inv.Totals.Subtotal
	m.TaxAmount = inv.Totals.TaxAmount
	m.DiscountAmount = inv.Totals.DiscountAmount
	m.Total = inv.Totals.Total
	m.PaymentStatus = string(inv.PaymentStatus)

	m.Items = make([]InvoiceItemModel, 0, len(inv.Items))
	for _, item := range inv.Items {
		var im InvoiceItemModel
		im.FromDomain(&item)
		im.InvoiceID = m.ID
		m.Items = append(m.Items, im)
	}
}

// ToDomain converts the model back to a domain invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		InvoiceDate:       m.InvoiceDate,
		DueDate:           m.DueDate,
		UserID:            m.UserID,
		CustomerID:        m.CustomerID,
		Customer: billing.CustomerSnapshot{
			Name:        m.CustomerName,
			CompanyName: m.CustomerCompanyName,
			Email:       m.CustomerEmail,
			Phone:       m.CustomerPhone,
			Address:     m.CustomerAddress,
		},
		Issuer: billing.IssuerSnapshot{
			Name:        m.IssuerName,
			Email:       m.IssuerEmail,
			CompanyName: m.IssuerCompanyName,
		},
		Description: m.Description,
		Discount:    m.Discount,
		Currency:    valueobject.Currency(m.Currency),
		Totals: billing.Totals{
			Subtotal:       m.Subtotal,
			TaxAmount:      m.TaxAmount,
			DiscountAmount: m.DiscountAmount,
			Total:          m.Total,
		},
		PaymentStatus: billing.PaymentStatus(m.PaymentStatus),
	}

	inv.Items = make([]billing.InvoiceItem, 0, len(m.Items))
	for _, im := range m.Items {
		inv.Items = append(inv.Items, *im.ToDomain())
	}

	return inv
}

// InvoiceItemModel is the persistence model for invoice line items
type InvoiceItemModel struct {
	BaseModel
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemName  string          `gorm:"type:varchar(255);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Tax       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	TotalTax  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Total     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
}

// TableName returns the table name for InvoiceItemModel
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// FromDomain populates the model from a domain invoice item
func (m *InvoiceItemModel) FromDomain(item *billing.InvoiceItem) {
	m.ID = item.ID
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
	m.InvoiceID = item.InvoiceID
	m.ItemName = item.ItemName
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.Tax = item.Tax
	m.TotalTax = item.TotalTax
	m.Total = item.Total
}

// ToDomain converts the model back to a domain invoice item
func (m *InvoiceItemModel) ToDomain() *billing.InvoiceItem {
	return &billing.InvoiceItem{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		ItemName:  m.ItemName,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Tax:       m.Tax,
		TotalTax:  m.TotalTax,
		Total:     m.Total,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// PaymentModel is the persistence model for payments. The customer contact
// fields mirror the parent invoice's snapshot at reconciliation time.
type PaymentModel struct {
	AggregateModel
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentNumber string          `gorm:"type:varchar(50);not null"`
	Method        string          `gorm:"type:varchar(20);not null"`
	PaymentDate   time.Time       `gorm:"not null"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	LeftToPay     decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Status        string          `gorm:"type:varchar(20);not null;index"`

	CustomerName        string `gorm:"type:varchar(255)"`
	CustomerCompanyName string `gorm:"type:varchar(255)"`
	CustomerEmail       string `gorm:"type:varchar(255);index"`
	CustomerPhone       string `gorm:"type:varchar(50)"`
	CustomerAddress     string `gorm:"type:text"`
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string {
	return "payments"
}

// FromDomain populates the model from a domain payment
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.PaymentNumber = p.PaymentNumber
	m.Method = string(p.Method)
	m.PaymentDate = p.PaymentDate
	m.AmountPaid = p.AmountPaid
	m.TotalAmount = p.TotalAmount
	m.LeftToPay = p.LeftToPay
	m.Status = string(p.Status)
	m.CustomerName = p.Customer.Name
	m.CustomerCompanyName = p.Customer.CompanyName
	m.CustomerEmail = p.Customer.Email
	m.CustomerPhone = p.Customer.Phone
	m.CustomerAddress = p.Customer.Address
}

// ToDomain converts the model back to a domain payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		InvoiceID:         m.InvoiceID,
		PaymentNumber:     m.PaymentNumber,
		Method:            billing.PaymentMethod(m.Method),
		PaymentDate:       m.PaymentDate,
		AmountPaid:        m.AmountPaid,
		TotalAmount:       m.TotalAmount,
		LeftToPay:         m.LeftToPay,
		Status:            billing.PaymentStatus(m.Status),
		Customer: billing.CustomerSnapshot{
			Name:        m.CustomerName,
			CompanyName: m.CustomerCompanyName,
			Email:       m.CustomerEmail,
			Phone:       m.CustomerPhone,
			Address:     m.CustomerAddress,
		},
	}
}
