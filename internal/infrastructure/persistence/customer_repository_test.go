package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/invoicely/backend/internal/domain/partner"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/persistence/models"
)

func setupCustomerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.CustomerModel{}, &models.CustomerUserLinkModel{})
	require.NoError(t, err)

	return db
}

func newTestCustomer(t *testing.T, name, email string) *partner.Customer {
	t.Helper()

	c, err := partner.NewCustomer(name, name+" SRL", email, "+40 721 000 000", "1 Industrial Way")
	require.NoError(t, err)
	return c
}

func TestGormCustomerRepository_SaveAndFindByID(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, customer.LinkUser(userID))

	require.NoError(t, repo.Save(ctx, customer))

	found, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", found.Name)
	assert.Equal(t, "billing@acme.com", found.Email)
	require.Len(t, found.LinkedUserIDs, 1)
	assert.Equal(t, userID, found.LinkedUserIDs[0])
}

func TestGormCustomerRepository_FindByEmail(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, repo.Save(ctx, customer))

	found, err := repo.FindByEmail(ctx, "BILLING@ACME.COM")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, found.ID)

	_, err = repo.FindByEmail(ctx, "nobody@acme.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormCustomerRepository_ExistsByEmail(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, repo.Save(ctx, customer))

	exists, err := repo.ExistsByEmail(ctx, "Billing@Acme.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "other@acme.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormCustomerRepository_Save_ReplacesLinks(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	oldUser := uuid.New()
	newUser := uuid.New()

	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, customer.LinkUser(oldUser))
	require.NoError(t, repo.Save(ctx, customer))

	customer.UnlinkUser(oldUser)
	require.NoError(t, customer.LinkUser(newUser))
	require.NoError(t, repo.Save(ctx, customer))

	found, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, found.LinkedUserIDs, 1)
	assert.Equal(t, newUser, found.LinkedUserIDs[0])
}

func TestGormCustomerRepository_SaveWithLock(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, repo.Save(ctx, customer))

	t.Run("updates with matching version", func(t *testing.T) {
		require.NoError(t, customer.Update("Acme Corp", "", "billing@acme.com", "", ""))

		require.NoError(t, repo.SaveWithLock(ctx, customer))

		found, err := repo.FindByID(ctx, customer.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		// Cleared fields actually clear.
		assert.Empty(t, found.CompanyName)
		assert.Empty(t, found.Phone)
	})

	t.Run("rejects stale version", func(t *testing.T) {
		stale := *customer
		stale.Version = 4 // row holds 2, check expects 3

		err := repo.SaveWithLock(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormCustomerRepository_FindAll(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	linkedUser := uuid.New()

	acme := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, acme.LinkUser(linkedUser))
	globex := newTestCustomer(t, "Globex", "billing@globex.com")
	require.NoError(t, repo.Save(ctx, acme))
	require.NoError(t, repo.Save(ctx, globex))

	t.Run("scopes by linked user", func(t *testing.T) {
		filter := partner.CustomerFilter{Filter: shared.DefaultFilter(), LinkedUserID: &linkedUser}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Acme Corp", found[0].Name)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("searches across name, company name, and email", func(t *testing.T) {
		search := "globex"
		filter := partner.CustomerFilter{Filter: shared.DefaultFilter(), Search: &search}

		found, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Globex", found[0].Name)
	})

	t.Run("returns everything without scoping", func(t *testing.T) {
		found, err := repo.FindAll(ctx, partner.CustomerFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestGormCustomerRepository_Delete(t *testing.T) {
	db := setupCustomerTestDB(t)
	repo := NewGormCustomerRepository(db)
	ctx := context.Background()

	customer := newTestCustomer(t, "Acme Corp", "billing@acme.com")
	require.NoError(t, customer.LinkUser(uuid.New()))
	require.NoError(t, repo.Save(ctx, customer))

	require.NoError(t, repo.Delete(ctx, customer.ID))

	_, err := repo.FindByID(ctx, customer.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var linkCount int64
	require.NoError(t, db.Model(&models.CustomerUserLinkModel{}).Count(&linkCount).Error)
	assert.Equal(t, int64(0), linkCount)

	assert.ErrorIs(t, repo.Delete(ctx, customer.ID), shared.ErrNotFound)
}
