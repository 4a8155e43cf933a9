package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowError(t *testing.T) {
	t.Run("Error with column", func(t *testing.T) {
		err := NewRowError(5, "email", ErrCodeImportInvalidFormat, "invalid email format")
		assert.Equal(t, "row 5, column 'email': invalid email format", err.Error())
	})

	t.Run("Error without column", func(t *testing.T) {
		err := NewRowError(10, "", ErrCodeImportCSVParsing, "malformed row")
		assert.Equal(t, "row 10: malformed row", err.Error())
	})

	t.Run("Error with value", func(t *testing.T) {
		err := NewRowErrorWithValue(3, "phone", ErrCodeImportPatternMismatch, "invalid phone", "abc123")
		assert.Equal(t, "abc123", err.Value)
		assert.Equal(t, 3, err.Row)
	})
}

func TestErrorCollection_Cap(t *testing.T) {
	ec := NewErrorCollection(3)
	for i := 1; i <= 5; i++ {
		ec.Add(NewRowError(i, "col", ErrCodeImportValidation, "error"))
	}

	assert.Equal(t, 3, ec.Count())
	assert.Equal(t, 5, ec.TotalCount())
	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
}

func TestErrorCollection_Helpers(t *testing.T) {
	ec := NewErrorCollection(10)

	ec.AddRequiredError(1, "name")
	ec.AddTypeError(2, "credit_limit", "decimal", "abc")
	ec.AddFormatError(3, "email", "email@domain.com", "invalid")
	ec.AddLengthError(4, "name", 1, 200)
	ec.AddRangeError(5, "credit_limit", 0, 100)
	ec.AddPatternError(6, "phone", "phone number", "xyz")
	ec.AddDuplicateError(7, "email", "alice@acme.com", false)
	ec.AddDuplicateError(8, "email", "bob@initech.io", true)
	ec.AddReferenceError(9, "customer_email", "gone@acme.com", "customer")

	wantCodes := []string{
		ErrCodeImportRequiredField,
		ErrCodeImportInvalidType,
		ErrCodeImportInvalidFormat,
		ErrCodeImportInvalidLength,
		ErrCodeImportInvalidRange,
		ErrCodeImportPatternMismatch,
		ErrCodeImportDuplicateInFile,
		ErrCodeImportDuplicateInDB,
		ErrCodeImportReferenceNotFound,
	}
	errors := ec.Errors()
	require.Len(t, errors, len(wantCodes))
	for i, code := range wantCodes {
		assert.Equal(t, code, errors[i].Code, "error %d", i)
	}
}

func TestErrorCollection_Clear(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.Add(NewRowError(1, "col", ErrCodeImportValidation, "err"))

	ec.Clear()

	assert.False(t, ec.HasErrors())
	assert.Equal(t, 0, ec.Count())
}

func TestLengthErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		minLen   int
		maxLen   int
		expected string
	}{
		{"both limits", 1, 50, "length must be between 1 and 50"},
		{"only max", 0, 100, "length must be at most 100"},
		{"only min", 5, 0, "length must be at least 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewErrorCollection(10)
			ec.AddLengthError(1, "field", tt.minLen, tt.maxLen)

			errors := ec.Errors()
			require.Len(t, errors, 1)
			assert.Equal(t, tt.expected, errors[0].Message)
		})
	}
}

func TestValidationResult(t *testing.T) {
	t.Run("counts and validity", func(t *testing.T) {
		vr := NewValidationResult("test-id")
		assert.Equal(t, "test-id", vr.ValidationID)

		vr.SetCounts(100, 100, 0)
		assert.True(t, vr.IsValid())

		vr.SetCounts(100, 95, 5)
		assert.Equal(t, 100, vr.TotalRows)
		assert.Equal(t, 95, vr.ValidRows)
		assert.Equal(t, 5, vr.ErrorRows)
		assert.False(t, vr.IsValid())
	})

	t.Run("preview keeps first five rows", func(t *testing.T) {
		vr := NewValidationResult("test-id")
		for i := 0; i < 10; i++ {
			vr.AddPreview(map[string]any{"row": i})
		}
		assert.Len(t, vr.Preview, 5)
	})

	t.Run("errors copied from collection", func(t *testing.T) {
		vr := NewValidationResult("test-id")
		ec := NewErrorCollection(5)
		for i := 0; i < 10; i++ {
			ec.Add(NewRowError(i, "col", ErrCodeImportValidation, "error"))
		}

		vr.SetErrors(ec)

		assert.Len(t, vr.Errors, 5)
		assert.True(t, vr.IsTruncated)
		assert.Equal(t, 10, vr.TotalErrors)
	})
}

func TestLengthErrorUsesColumnName(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.AddLengthError(2, "company_name", 0, 200)

	errors := ec.Errors()
	require.Len(t, errors, 1)
	assert.Equal(t, "company_name", errors[0].Column)
	assert.True(t, strings.HasPrefix(errors[0].Message, "length"))
}
