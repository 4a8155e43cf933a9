package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/domain/shared/valueobject"
	"github.com/invoicely/backend/internal/infrastructure/persistence/models"
)

// setupBillingTestDB creates an in-memory SQLite database with the billing
// tables
func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.CustomerModel{},
		&models.CustomerUserLinkModel{},
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
		&models.PaymentModel{},
	)
	require.NoError(t, err)

	return db
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func testSnapshot() billing.CustomerSnapshot {
	return billing.CustomerSnapshot{
		Name:        "Acme Corp",
		CompanyName: "Acme Corporation SRL",
		Email:       "billing@acme.com",
		Phone:       "+40 721 000 000",
		Address:     "1 Industrial Way",
	}
}

func newTestInvoice(t *testing.T, number string, userID, customerID uuid.UUID) *billing.Invoice {
	t.Helper()

	inv, err := billing.NewInvoice(
		number,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		userID,
		customerID,
		testSnapshot(),
		billing.IssuerSnapshot{Name: "Jane Doe", Email: "jane@studio.io", CompanyName: "Jane Studio"},
		valueobject.USD,
		decimal.Zero,
	)
	require.NoError(t, err)

	item, err := billing.NewInvoiceItem("Design work", mustDecimal(t, "2"), mustDecimal(t, "15.50"), mustDecimal(t, "10"))
	require.NoError(t, err)
	require.NoError(t, inv.SetItems([]billing.InvoiceItem{*item}))

	return inv
}

func TestGormInvoiceRepository_SaveAndFindByID(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-001", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	assert.Equal(t, inv.ID, found.ID)
	assert.Equal(t, "INV-2026-001", found.InvoiceNumber)
	assert.Equal(t, inv.UserID, found.UserID)
	require.NotNil(t, found.CustomerID)
	assert.Equal(t, *inv.CustomerID, *found.CustomerID)
	assert.Equal(t, "billing@acme.com", found.Customer.Email)
	assert.Equal(t, "Jane Doe", found.Issuer.Name)
	assert.Equal(t, valueobject.USD, found.Currency)
	assert.Equal(t, billing.PaymentStatusUnpaid, found.PaymentStatus)

	require.Len(t, found.Items, 1)
	assert.Equal(t, "Design work", found.Items[0].ItemName)
	assert.True(t, found.Items[0].Total.Equal(mustDecimal(t, "34.1")), "item total: %s", found.Items[0].Total)

	assert.True(t, found.Totals.Subtotal.Equal(mustDecimal(t, "31")), "subtotal: %s", found.Totals.Subtotal)
	assert.True(t, found.Totals.TaxAmount.Equal(mustDecimal(t, "3.1")), "tax: %s", found.Totals.TaxAmount)
	assert.True(t, found.Totals.Total.Equal(mustDecimal(t, "34.1")), "total: %s", found.Totals.Total)
}

func TestGormInvoiceRepository_FindByID_NotFound(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository_FindByInvoiceNumber(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-002", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	found, err := repo.FindByInvoiceNumber(ctx, "INV-2026-002")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, found.ID)
	assert.Len(t, found.Items, 1)

	_, err = repo.FindByInvoiceNumber(ctx, "INV-9999-999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository_Save_ReplacesItems(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-003", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	item, err := billing.NewInvoiceItem("Hosting", mustDecimal(t, "1"), mustDecimal(t, "99"), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, inv.SetItems([]billing.InvoiceItem{*item}))
	require.NoError(t, repo.Save(ctx, inv))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Hosting", found.Items[0].ItemName)
	assert.True(t, found.Totals.Total.Equal(mustDecimal(t, "99")))

	// Old item rows are gone, not orphaned.
	var itemCount int64
	require.NoError(t, db.Model(&models.InvoiceItemModel{}).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount)
}

func TestGormInvoiceRepository_FindAll_Scoping(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	userA := uuid.New()
	userB := uuid.New()

	invA := newTestInvoice(t, "INV-A-001", userA, uuid.New())
	invB := newTestInvoice(t, "INV-B-001", userB, uuid.New())
	require.NoError(t, repo.Save(ctx, invA))
	require.NoError(t, repo.Save(ctx, invB))

	t.Run("scopes by issuing user", func(t *testing.T) {
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), UserID: &userA}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "INV-A-001", found[0].InvoiceNumber)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("scopes by snapshot email case-insensitively", func(t *testing.T) {
		email := "BILLING@ACME.COM"
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), CustomerEmail: &email}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("scopes by status", func(t *testing.T) {
		paid := billing.PaymentStatusPaid
		filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), Status: &paid}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestGormInvoiceRepository_FindAll_LiveCustomerEmail(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	// Customer record whose email changed after the invoice was issued. The
	// invoice still carries the old snapshot email, yet the new address must
	// find it through the live relation.
	customerID := uuid.New()
	customer := models.CustomerModel{
		Name:  "Acme Corp",
		Email: "accounts@acme.com",
	}
	customer.ID = customerID
	customer.Version = 1
	require.NoError(t, db.Create(&customer).Error)

	inv := newTestInvoice(t, "INV-2026-010", uuid.New(), customerID)
	require.NoError(t, repo.Save(ctx, inv))

	email := "accounts@acme.com"
	filter := billing.InvoiceFilter{Filter: shared.DefaultFilter(), CustomerEmail: &email}

	found, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "INV-2026-010", found[0].InvoiceNumber)
	// Snapshot on the invoice is untouched by the rename.
	assert.Equal(t, "billing@acme.com", found[0].Customer.Email)
}

func TestGormInvoiceRepository_SaveWithPayments(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	paymentRepo := NewGormPaymentRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-020", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	payment, err := billing.NewPayment(inv.ID, "PAY-001", billing.PaymentMethodCash, time.Now(), mustDecimal(t, "20"), testSnapshot())
	require.NoError(t, err)
	payment.TotalAmount = inv.Total()
	payment.LeftToPay = mustDecimal(t, "14.1")
	payment.Status = billing.PaymentStatusPartiallyPaid
	require.NoError(t, db.Session(&gorm.Session{}).Create(paymentModel(payment)).Error)

	t.Run("persists invoice and rebased payments atomically", func(t *testing.T) {
		// Total drops to 20: the partial payment now settles the invoice.
		payment.AmountPaid = mustDecimal(t, "20")
		payment.TotalAmount = mustDecimal(t, "20")
		payment.LeftToPay = decimal.Zero
		payment.Status = billing.PaymentStatusPaid

		item, err := billing.NewInvoiceItem("Reduced scope", mustDecimal(t, "1"), mustDecimal(t, "20"), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, inv.SetItems([]billing.InvoiceItem{*item}))
		inv.SetPaymentStatus(billing.PaymentStatusPaid)
		inv.IncrementVersion()

		require.NoError(t, repo.SaveWithPayments(ctx, inv, []billing.Payment{*payment}))

		foundInv, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentStatusPaid, foundInv.PaymentStatus)
		assert.Equal(t, 2, foundInv.Version)
		assert.True(t, foundInv.Totals.Total.Equal(mustDecimal(t, "20")))

		foundPay, err := paymentRepo.FindByID(ctx, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentStatusPaid, foundPay.Status)
		assert.True(t, foundPay.LeftToPay.IsZero())
	})

	t.Run("rejects stale version", func(t *testing.T) {
		stale := *inv
		stale.Version = 2 // row already holds 2, check expects 1

		err := repo.SaveWithPayments(ctx, &stale, nil)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormInvoiceRepository_UpdatePaymentStatus(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-030", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	require.NoError(t, repo.UpdatePaymentStatus(ctx, inv.ID, billing.PaymentStatusPaid))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentStatusPaid, found.PaymentStatus)

	err = repo.UpdatePaymentStatus(ctx, uuid.New(), billing.PaymentStatusPaid)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository_Delete(t *testing.T) {
	db := setupBillingTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := newTestInvoice(t, "INV-2026-040", uuid.New(), uuid.New())
	require.NoError(t, repo.Save(ctx, inv))

	require.NoError(t, repo.Delete(ctx, inv.ID))

	_, err := repo.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var itemCount int64
	require.NoError(t, db.Model(&models.InvoiceItemModel{}).Where("invoice_id = ?", inv.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(0), itemCount)

	assert.ErrorIs(t, repo.Delete(ctx, inv.ID), shared.ErrNotFound)
}

func paymentModel(p *billing.Payment) *models.PaymentModel {
	var m models.PaymentModel
	m.FromDomain(p)
	return &m
}
