package shared

// Page represents offset/limit pagination parameters.
// Offset and limit are plain integers so a caller can restart a listing
// at any point without server-side cursor state.
type Page struct {
	Offset int
	Limit  int
}

// DefaultPage returns pagination defaults used by the read paths
func DefaultPage() Page {
	return Page{Offset: 0, Limit: 50}
}

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 200 {
		p.Limit = 200
	}
	return p
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page Page) Paginated[T] {
	return Paginated[T]{
		Items:  items,
		Total:  total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}
}
