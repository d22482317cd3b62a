package table

import "github.com/AngelCh415/insights-dashboard/internal/models"

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// PageSizeOptions are the sizes offered to table clients.
var PageSizeOptions = []int{5, 10, 20, 50}

type Page struct {
	Rows       []models.Campaign `json:"rows"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	TotalItems int               `json:"totalItems"`
}

func TotalPages(items, pageSize int) int {
	pageSize = normalizePageSize(pageSize)
	if items <= 0 {
		return 0
	}
	return (items + pageSize - 1) / pageSize
}

// Paginate slices one page out of rows. Out-of-range pages are empty,
// never an error.
func Paginate(rows []models.Campaign, page, pageSize int) Page {
	pageSize = normalizePageSize(pageSize)
	if page < 1 {
		page = 1
	}
	n := len(rows)
	start := min((page-1)*pageSize, n)
	end := min(start+pageSize, n)
	out := make([]models.Campaign, end-start)
	copy(out, rows[start:end])
	return Page{
		Rows:       out,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(n, pageSize),
		TotalItems: n,
	}
}

// PageState is the current page and page size of a table view.
type PageState struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func NewPageState(pageSize int) PageState {
	return PageState{Page: 1, PageSize: normalizePageSize(pageSize)}
}

func (s PageState) WithPage(page int) PageState {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// WithPageSize always goes back to the first page.
func (s PageState) WithPageSize(size int) PageState {
	return PageState{Page: 1, PageSize: normalizePageSize(size)}
}

// Reset must be applied whenever the upstream collection changes length.
func (s PageState) Reset() PageState {
	s.Page = 1
	return s
}

// Clamp pulls the page back into [1, totalPages]; with no pages at all the
// first page is served.
func (s PageState) Clamp(totalPages int) PageState {
	s.PageSize = normalizePageSize(s.PageSize)
	switch {
	case totalPages <= 0 || s.Page < 1:
		s.Page = 1
	case s.Page > totalPages:
		s.Page = totalPages
	}
	return s
}

func normalizePageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
