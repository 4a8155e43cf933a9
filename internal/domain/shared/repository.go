package shared

// Filter represents query filter options for list operations.
// Skip/Take mirror the pagination contract of the HTTP layer; a Take of 0
// means "no limit".
type Filter struct {
	Skip     int
	Take     int
	OrderBy  string
	OrderDir string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Skip:     0,
		Take:     20,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Skip  int   `json:"skip"`
	Take  int   `json:"take"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, skip, take int) Paginated[T] {
	return Paginated[T]{
		Items: items,
		Total: total,
		Skip:  skip,
		Take:  take,
	}
}
