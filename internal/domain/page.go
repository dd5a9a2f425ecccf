package domain

// PaginationParams selects one page of a list. Handlers normalize query
// values through NormalizePagination before anything touches the repo.
type PaginationParams struct {
	Page  int
	Limit int
}

// Offset converts the 1-based page number into a row offset.
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// NormalizePagination clamps raw client values into the supported range:
// page is at least 1, limit defaults to 20 and is capped at 100.
func NormalizePagination(page, limit int) PaginationParams {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return PaginationParams{Page: page, Limit: limit}
}
