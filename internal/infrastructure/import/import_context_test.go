package csvimport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType(t *testing.T) {
	t.Run("ValidEntityTypes", func(t *testing.T) {
		types := ValidEntityTypes()
		assert.Contains(t, types, EntityCustomers)
		assert.Contains(t, types, EntityInvoices)
	})

	t.Run("IsValidEntityType", func(t *testing.T) {
		assert.True(t, IsValidEntityType("customers"))
		assert.True(t, IsValidEntityType("invoices"))
		assert.False(t, IsValidEntityType("invalid"))
		assert.False(t, IsValidEntityType(""))
	})
}

func TestImportSession(t *testing.T) {
	userID := uuid.New()

	t.Run("NewImportSession", func(t *testing.T) {
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		assert.NotEqual(t, uuid.Nil, session.ID)
		assert.Equal(t, userID, session.UserID)
		assert.Equal(t, EntityCustomers, session.EntityType)
		assert.Equal(t, "test.csv", session.FileName)
		assert.Equal(t, int64(1024), session.FileSize)
		assert.Equal(t, StateCreated, session.State)
		assert.Nil(t, session.CompletedAt)
	})

	t.Run("UpdateState", func(t *testing.T) {
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		session.UpdateState(StateValidating)
		assert.Equal(t, StateValidating, session.State)
		assert.Nil(t, session.CompletedAt)

		session.UpdateState(StateCompleted)
		assert.Equal(t, StateCompleted, session.State)
		assert.NotNil(t, session.CompletedAt)
	})

	t.Run("SetValidationResult", func(t *testing.T) {
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)
		result := &ValidationResult{
			ValidationID: session.ID.String(),
			TotalRows:    100,
			ValidRows:    95,
			ErrorRows:    5,
			Errors:       []RowError{{Row: 10, Column: "name", Message: "required"}},
			Preview:      []map[string]any{{"name": "Alice", "email": "alice@acme.com"}},
		}

		session.SetValidationResult(result)

		assert.Equal(t, 100, session.TotalRows)
		assert.Equal(t, 95, session.ValidRows)
		assert.Equal(t, 5, session.ErrorRows)
		assert.Len(t, session.Errors, 1)
		assert.Len(t, session.Preview, 1)
	})

	t.Run("IsValid", func(t *testing.T) {
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)
		session.ErrorRows = 0
		assert.True(t, session.IsValid())

		session.ErrorRows = 5
		assert.False(t, session.IsValid())
	})
}

func TestImportProcessor(t *testing.T) {
	t.Run("NewImportProcessor with defaults", func(t *testing.T) {
		processor := NewImportProcessor()
		assert.NotNil(t, processor)
	})

	t.Run("NewImportProcessor with options", func(t *testing.T) {
		processor := NewImportProcessor(
			WithMaxFileSize(5*1024*1024),
			WithMaxRows(50000),
			WithMaxErrors(50),
			WithPreviewRows(10),
		)
		assert.NotNil(t, processor)
	})

	t.Run("Validate simple CSV", func(t *testing.T) {
		processor := NewImportProcessor()
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,email,phone\nAlice,alice@acme.com,555-0100\nBob,bob@initech.io,555-0101\nCarol,carol@globex.net,555-0102"
		rules := []FieldRule{
			Field("name").Required().String().MaxLength(200).Build(),
			Field("email").Required().Email().Build(),
			Field("phone").String().MaxLength(50).Build(),
		}

		result, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 3, result.ValidRows)
		assert.Equal(t, 0, result.ErrorRows)
		assert.True(t, result.IsValid())
	})

	t.Run("Validate CSV with errors", func(t *testing.T) {
		processor := NewImportProcessor()
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,email,phone\nAlice,alice@acme.com,555-0100\n,bob@initech.io,555-0101\nCarol,,555-0102"
		rules := []FieldRule{
			Field("name").Required().Build(),
			Field("email").Required().Build(),
			Field("phone").Build(),
		}

		result, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalRows)
		assert.Equal(t, 1, result.ValidRows)
		assert.Equal(t, 2, result.ErrorRows)
		assert.False(t, result.IsValid())
		assert.GreaterOrEqual(t, len(result.Errors), 2)
	})

	t.Run("Validate generates preview", func(t *testing.T) {
		processor := NewImportProcessor(WithPreviewRows(3))
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,email\nA,a@acme.com\nB,b@acme.com\nC,c@acme.com\nD,d@acme.com\nE,e@acme.com"
		rules := []FieldRule{
			Field("name").Build(),
			Field("email").Build(),
		}

		result, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Len(t, result.Preview, 3)
		assert.Equal(t, "A", result.Preview[0]["name"])
		assert.Equal(t, "B", result.Preview[1]["name"])
		assert.Equal(t, "C", result.Preview[2]["name"])
	})

	t.Run("Validate with reference lookup", func(t *testing.T) {
		lookupFn := func(refType, value string) (bool, error) {
			return value == "alice@acme.com", nil
		}

		processor := NewImportProcessor(WithReferenceLookup(lookupFn))
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,customer_email\nAcme Corp,alice@acme.com\nGlobex,gone@acme.com"
		rules := []FieldRule{
			Field("name").Required().Build(),
			Field("customer_email").Reference("customer").Build(),
		}

		result, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, 1, result.ErrorRows)
	})

	t.Run("Validate with uniqueness lookup", func(t *testing.T) {
		lookupFn := func(entityType, field, value string) (bool, error) {
			return value == "taken@acme.com", nil
		}

		processor := NewImportProcessor(WithUniqueLookup(lookupFn))
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "email,name\nnew@acme.com,Alice\ntaken@acme.com,Bob"
		rules := []FieldRule{
			Field("email").Required().Unique().Build(),
			Field("name").Required().Build(),
		}

		result, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, 1, result.ErrorRows)
	})

	t.Run("Validate context cancellation", func(t *testing.T) {
		processor := NewImportProcessor()
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		csv := "name,email\nAlice,alice@acme.com"
		rules := []FieldRule{
			Field("name").Build(),
		}

		_, err := processor.Validate(ctx, session, strings.NewReader(csv), rules)

		assert.Error(t, err)
		assert.Equal(t, StateCancelled, session.State)
	})

	t.Run("Session state updates", func(t *testing.T) {
		processor := NewImportProcessor()
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,email\nAlice,alice@acme.com"
		rules := []FieldRule{
			Field("name").Build(),
			Field("email").Build(),
		}

		_, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, StateValidated, session.State)
	})

	t.Run("Session state updates on error", func(t *testing.T) {
		processor := NewImportProcessor()
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		csv := "name,email\n,alice@acme.com" // Missing required field
		rules := []FieldRule{
			Field("name").Required().Build(),
			Field("email").Build(),
		}

		_, err := processor.Validate(context.Background(), session, strings.NewReader(csv), rules)

		require.NoError(t, err)
		assert.Equal(t, StateFailed, session.State)
	})
}

func TestInMemorySessionStore(t *testing.T) {
	t.Run("Save and Get", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Hour)
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		err := store.Save(session)
		require.NoError(t, err)

		retrieved, err := store.Get(session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, retrieved.ID)
	})

	t.Run("Get non-existent session", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Hour)

		session, err := store.Get(uuid.New())
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("Delete session", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Hour)
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		store.Save(session)
		err := store.Delete(session.ID)
		require.NoError(t, err)

		retrieved, _ := store.Get(session.ID)
		assert.Nil(t, retrieved)
	})

	t.Run("GetByUser", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Hour)
		userID := uuid.New()

		session1 := NewImportSession(userID, EntityCustomers, "test1.csv", 1024)
		session2 := NewImportSession(userID, EntityCustomers, "test2.csv", 1024)
		session3 := NewImportSession(uuid.New(), EntityCustomers, "test3.csv", 1024) // Different user

		store.Save(session1)
		store.Save(session2)
		store.Save(session3)

		sessions, err := store.GetByUser(userID, 10)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})

	t.Run("TTL expiration", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Millisecond * 10)
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		store.Save(session)

		// Wait for TTL to expire
		time.Sleep(time.Millisecond * 20)

		retrieved, err := store.Get(session.ID)
		require.NoError(t, err)
		assert.Nil(t, retrieved)
	})

	t.Run("Cleanup removes expired", func(t *testing.T) {
		store := NewInMemorySessionStore(time.Millisecond * 10)
		userID := uuid.New()
		session := NewImportSession(userID, EntityCustomers, "test.csv", 1024)

		store.Save(session)

		// Wait for TTL to expire
		time.Sleep(time.Millisecond * 20)

		store.Cleanup()

		// Direct check - should have been cleaned up
		store.mu.RLock()
		defer store.mu.RUnlock()
		assert.Empty(t, store.sessions)
	})
}
