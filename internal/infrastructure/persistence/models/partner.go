package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/invoicely/backend/internal/domain/partner"
)

// CustomerModel is the persistence model for customers
type CustomerModel struct {
	AggregateModel
	Name        string `gorm:"type:varchar(255);not null"`
	CompanyName string `gorm:"type:varchar(255)"`
	Email       string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone       string `gorm:"type:varchar(50)"`
	Address     string `gorm:"type:text"`

	UserLinks []CustomerUserLinkModel `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for CustomerModel
func (CustomerModel) TableName() string {
	return "customers"
}

// FromDomain populates the model from a domain customer
func (m *CustomerModel) FromDomain(c *partner.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.CompanyName = c.CompanyName
	m.Email = c.Email
	m.Phone = c.Phone
	m.Address = c.Address

	m.UserLinks = make([]CustomerUserLinkModel, 0, len(c.LinkedUserIDs))
	for _, userID := range c.LinkedUserIDs {
		m.UserLinks = append(m.UserLinks, CustomerUserLinkModel{
			CustomerID: m.ID,
			UserID:     userID,
		})
	}
}

// ToDomain converts the model back to a domain customer
func (m *CustomerModel) ToDomain() *partner.Customer {
	c := &partner.Customer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		CompanyName:       m.CompanyName,
		Email:             m.Email,
		Phone:             m.Phone,
		Address:           m.Address,
	}

	c.LinkedUserIDs = make([]uuid.UUID, 0, len(m.UserLinks))
	for _, link := range m.UserLinks {
		c.LinkedUserIDs = append(c.LinkedUserIDs, link.UserID)
	}

	return c
}

// CustomerUserLinkModel is the join table between customers and the users
// allowed to act for them
type CustomerUserLinkModel struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for CustomerUserLinkModel
func (CustomerUserLinkModel) TableName() string {
	return "customer_user_links"
}
