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

var paymentSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"payment_date":   true,
	"amount_paid":    true,
	"status":         true,
}

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GORM-based payment repository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists all payments recorded against an invoice in creation
// order
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var modelList []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice payments: %w", err)
	}

	payments := make([]billing.Payment, 0, len(modelList))
	for i := range modelList {
		payments = append(payments, *modelList[i].ToDomain())
	}
	return payments, nil
}

// FindUnpaidByInvoice returns the invoice's UNPAID payment, or nil when none
// exists. At most one can exist at any time.
func (r *GormPaymentRepository) FindUnpaidByInvoice(ctx context.Context, invoiceID uuid.UUID) (*billing.Payment, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND status = ?", invoiceID, string(billing.PaymentStatusUnpaid)).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find unpaid payment: %w", err)
	}
	return model.ToDomain(), nil
}

// FindAll finds payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter billing.PaymentFilter) ([]billing.Payment, error) {
	var modelList []models.PaymentModel

	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)

	orderBy := ValidateSortField(filter.OrderBy, paymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	err := query.
		Order(fmt.Sprintf("%s %s", orderBy, orderDir)).
		Offset(filter.Skip).
		Limit(filter.Take).
		Find(&modelList).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]billing.Payment, 0, len(modelList))
	for i := range modelList {
		payments = append(payments, *modelList[i].ToDomain())
	}
	return payments, nil
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter billing.PaymentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// CountByInvoice counts the payments recorded against an invoice
func (r *GormPaymentRepository) CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count invoice payments: %w", err)
	}
	return count, nil
}

// SaveWithInvoiceStatus persists the payment and the invoice's derived
// payment status in one transaction. The invoice row carries the optimistic
// version, bumped here rather than by the domain so a concurrent
// reconciliation of the same invoice fails the version check.
func (r *GormPaymentRepository) SaveWithInvoiceStatus(ctx context.Context, payment *billing.Payment, invoice *billing.Invoice) error {
	var model models.PaymentModel
	model.FromDomain(payment)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version).
			Updates(map[string]any{
				"payment_status": string(invoice.PaymentStatus),
				"updated_at":     time.Now(),
				"version":        invoice.Version + 1,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update invoice status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		return nil
	})
}

// DeleteWithInvoiceReset deletes the payment and, when no payments remain
// for the invoice, resets the invoice's payment status to UNPAID in the same
// transaction.
func (r *GormPaymentRepository) DeleteWithInvoiceReset(ctx context.Context, paymentID, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.PaymentModel{}, "id = ?", paymentID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete payment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}

		var remaining int64
		if err := tx.Model(&models.PaymentModel{}).
			Where("invoice_id = ?", invoiceID).
			Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count remaining payments: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		err := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", invoiceID).
			Updates(map[string]any{
				"payment_status": string(billing.PaymentStatusUnpaid),
				"updated_at":     time.Now(),
				"version":        gorm.Expr("version + 1"),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset invoice status: %w", err)
		}
		return nil
	})
}

// applyFilter narrows a payment query by the filter's scoping fields. User
// scope resolves through the parent invoice; customer scope matches the
// mirrored snapshot email or the live customer record.
func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter billing.PaymentFilter) *gorm.DB {
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.UserID != nil {
		query = query.Where(
			"invoice_id IN (?)",
			r.db.Model(&models.InvoiceModel{}).
				Select("id").
				Where("user_id = ?", *filter.UserID),
		)
	}
	if filter.CustomerEmail != nil {
		query = query.Where(
			"LOWER(customer_email) = LOWER(?) OR invoice_id IN (?)",
			*filter.CustomerEmail,
			r.db.Model(&models.InvoiceModel{}).
				Select("id").
				Where("customer_id IN (?)",
					r.db.Model(&models.CustomerModel{}).
						Select("id").
						Where("LOWER(email) = LOWER(?)", *filter.CustomerEmail),
				),
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	return query
}
