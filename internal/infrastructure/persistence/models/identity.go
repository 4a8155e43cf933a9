package models

import (
	"time"

	"github.com/invoicely/backend/internal/domain/identity"
)

// UserModel is the persistence model for users
type UserModel struct {
	AggregateModel
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	Name         string     `gorm:"type:varchar(255);not null"`
	CompanyName  string     `gorm:"type:varchar(255)"`
	Role         string     `gorm:"type:varchar(20);not null;index"`
	LastLoginAt  *time.Time `gorm:""`
}

// TableName returns the table name for UserModel
func (UserModel) TableName() string {
	return "users"
}

// FromDomain populates the model from a domain user
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Name = u.Name
	m.CompanyName = u.CompanyName
	m.Role = string(u.Role)
	m.LastLoginAt = u.LastLoginAt
}

// ToDomain converts the model back to a domain user
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Name:              m.Name,
		CompanyName:       m.CompanyName,
		Role:              identity.Role(m.Role),
		LastLoginAt:       m.LastLoginAt,
	}
}
