package shared

import "math"

// Pagination contains metadata for a paged listing. Page is 1-based.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the half-open slice range [start, end) covered by the current page.
func (p Pagination) Bounds() (int, int) {
	start := (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end := start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// Next returns the following page, wrapping back to the first one after the last.
func (p Pagination) Next() Pagination {
	next := p
	if p.TotalPages == 0 || p.Page >= p.TotalPages {
		next.Page = 1
		return next
	}
	next.Page = p.Page + 1
	return next
}

// Paginated reports whether more than one page exists.
func (p Pagination) Paginated() bool {
	return p.TotalPages > 1
}
