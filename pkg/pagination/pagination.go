package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page-number pagination inputs from controllers or services.
// Pages are 1-based.
type Params struct {
	Page  int
	Limit int
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps the page to >= 1 and the limit into range.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset returns the row offset of the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages returns how many pages of size limit cover total rows.
func TotalPages(total int64, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// NewPage assembles a page result for the normalized params.
func NewPage[T any](items []T, total int64, params Params) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  n.Page,
		Pages: TotalPages(total, n.Limit),
		Limit: n.Limit,
	}
}

// MapPage converts the items of a page while keeping its counters.
func MapPage[T, U any](p Page[T], convert func([]T) []U) Page[U] {
	return Page[U]{
		Items: convert(p.Items),
		Total: p.Total,
		Page:  p.Page,
		Pages: p.Pages,
		Limit: p.Limit,
	}
}
