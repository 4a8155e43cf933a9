package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/persistence/models"
)

var customerSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"company_name": true,
	"email":        true,
}

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GORM-based customer repository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by ID, linked users included
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).
		Preload("UserLinks").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a customer by email
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, email string) (*partner.Customer, error) {
	var model models.CustomerModel
	err := r.db.WithContext(ctx).
		Preload("UserLinks").
		First(&model, "LOWER(email) = LOWER(?)", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAll finds customers matching the filter
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter partner.CustomerFilter) ([]partner.Customer, error) {
	var modelList []models.CustomerModel

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, customerSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	err := query.
		Preload("UserLinks").
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Skip).
		Limit(filter.Take).
		Find(&modelList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	customers := make([]partner.Customer, 0, len(modelList))
	for i := range modelList {
		customers = append(customers, *modelList[i].ToDomain())
	}
	return customers, nil
}

// Count counts customers matching the filter
func (r *GormCustomerRepository) Count(ctx context.Context, filter partner.CustomerFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CustomerModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// ExistsByEmail checks whether a customer with the email already exists
func (r *GormCustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check customer email: %w", err)
	}
	return count > 0, nil
}

// Save creates or updates a customer and replaces its user links in one
// transaction
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := model.UserLinks
		model.UserLinks = nil

		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("failed to save customer: %w", err)
		}

		// Replace link rows wholesale; the set is small.
		if err := tx.Where("customer_id = ?", model.ID).
			Delete(&models.CustomerUserLinkModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear customer user links: %w", err)
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to save customer user links: %w", err)
			}
		}
		return nil
	})
}

// SaveWithLock updates a customer with an optimistic version check. The
// domain aggregate increments its version before the save, so the row must
// still hold the previous version.
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer) error {
	var model models.CustomerModel
	model.FromDomain(customer)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := model.UserLinks
		model.UserLinks = nil

		// Select("*") forces zero-value fields through; a struct update
		// would silently skip a cleared company name or address.
		result := tx.Model(&models.CustomerModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Select("*").
			Updates(&model)
		if result.Error != nil {
			return fmt.Errorf("failed to update customer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Where("customer_id = ?", model.ID).
			Delete(&models.CustomerUserLinkModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear customer user links: %w", err)
		}
		if len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return fmt.Errorf("failed to save customer user links: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a customer. Link rows cascade; invoices keep their stored
// snapshot of the customer's contact fields.
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).
			Delete(&models.CustomerUserLinkModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete customer user links: %w", err)
		}

		result := tx.Delete(&models.CustomerModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete customer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormCustomerRepository) applyFilter(query *gorm.DB, filter partner.CustomerFilter) *gorm.DB {
	if filter.LinkedUserID != nil {
		query = query.Where(
			"id IN (?)",
			r.db.Model(&models.CustomerUserLinkModel{}).
				Select("customer_id").
				Where("user_id = ?", *filter.LinkedUserID),
		)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}
