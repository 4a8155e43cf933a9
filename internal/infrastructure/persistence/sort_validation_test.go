package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"asc", "asc"},
		{"ASC", "asc"},
		{"desc", "desc"},
		{"DESC", "desc"},
		{"", "desc"},
		{"; DROP TABLE invoices", "desc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ValidateSortOrder(tt.input), "input %q", tt.input)
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := map[string]bool{"created_at": true, "total": true}

	assert.Equal(t, "total", ValidateSortField("total", allowed, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("", allowed, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("password_hash", allowed, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("total; --", allowed, "created_at"))
}
