package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/persistence/models"
)

var invoiceSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"invoice_number": true,
	"invoice_date":   true,
	"due_date":       true,
	"total":          true,
	"payment_status": true,
}

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GORM-based invoice repository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID, items included
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.created_at ASC")
		}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by its unique number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.created_at ASC")
		}).
		First(&model, "invoice_number = ?", invoiceNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice by number: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var modelList []models.InvoiceModel

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, invoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("invoice_items.created_at ASC")
		}).
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Skip).
		Limit(filter.Take).
		Find(&modelList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := make([]billing.Invoice, 0, len(modelList))
	for i := range modelList {
		invoices = append(invoices, *modelList[i].ToDomain())
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// Save creates or updates an invoice and replaces its items in one
// transaction
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInvoiceWithItems(tx, &model)
	})
}

// SaveWithPayments updates the invoice with a version check, replaces its
// items, and persists the rebased payments in one transaction. The version
// check fails when a concurrent reconciliation touched the invoice row
// between read and write.
func (r *GormInvoiceRepository) SaveWithPayments(ctx context.Context, invoice *billing.Invoice, payments []billing.Payment) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := model.Items
		model.Items = nil

		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Select("*").
			Updates(&model)
		if result.Error != nil {
			return fmt.Errorf("failed to update invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := replaceInvoiceItems(tx, model.ID, items); err != nil {
			return err
		}

		for i := range payments {
			var pm models.PaymentModel
			pm.FromDomain(&payments[i])
			if err := tx.Save(&pm).Error; err != nil {
				return fmt.Errorf("failed to save rebased payment: %w", err)
			}
		}
		return nil
	})
}

// UpdatePaymentStatus sets only the invoice's payment status
func (r *GormInvoiceRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status billing.PaymentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_status": string(status),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update invoice payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an invoice and cascades to its line items
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete invoice items: %w", err)
		}

		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete invoice: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter narrows an invoice query by the filter's scoping fields. The
// customer email scope matches the stored snapshot email as well as the live
// customer record, so a renamed customer still sees invoices issued under
// the old address.
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.CustomerEmail != nil {
		query = query.Where(
			"LOWER(customer_email) = LOWER(?) OR customer_id IN (?)",
			*filter.CustomerEmail,
			r.db.Model(&models.CustomerModel{}).
				Select("id").
				Where("LOWER(email) = LOWER(?)", *filter.CustomerEmail),
		)
	}
	if filter.Status != nil {
		query = query.Where("payment_status = ?", string(*filter.Status))
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ? AND payment_status <> ?", *filter.DueBefore, string(billing.PaymentStatusPaid))
	}
	return query
}

func saveInvoiceWithItems(tx *gorm.DB, model *models.InvoiceModel) error {
	items := model.Items
	model.Items = nil

	if err := tx.Save(model).Error; err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return replaceInvoiceItems(tx, model.ID, items)
}

func replaceInvoiceItems(tx *gorm.DB, invoiceID uuid.UUID, items []models.InvoiceItemModel) error {
	if err := tx.Where("invoice_id = ?", invoiceID).
		Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to save invoice items: %w", err)
		}
	}
	return nil
}
