package persistence

import "strings"

// ValidateSortOrder normalizes a sort direction to "asc" or "desc",
// defaulting to "desc" for anything unrecognized.
func ValidateSortOrder(orderDir string) string {
	switch strings.ToLower(orderDir) {
	case "asc":
		return "asc"
	default:
		return "desc"
	}
}

// ValidateSortField returns the field when it is in the allowed set,
// otherwise the default. Guards against SQL injection through ORDER BY.
func ValidateSortField(field string, allowedFields map[string]bool, defaultField string) string {
	if allowedFields[field] {
		return field
	}
	return defaultField
}
