package table

import (
	"slices"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

// Query is one evaluation of the table: filter, then sort, then paginate.
type Query struct {
	Search     string      `json:"search,omitempty"`
	Predicates []Predicate `json:"filters,omitempty"`
	Sort       *SortConfig `json:"sort,omitempty"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
}

// Apply runs the three stages in order. Each stage only sees the output of
// the previous one, and the requested page is clamped to what exists.
func Apply(rows []models.Campaign, q Query) Page {
	filtered := Filter(rows, q.Search, q.Predicates)
	sorted := Sort(filtered, q.Sort)
	st := PageState{Page: q.Page, PageSize: q.PageSize}
	st = st.Clamp(TotalPages(len(sorted), st.PageSize))
	return Paginate(sorted, st.Page, st.PageSize)
}

// View holds the interactive state of one table. Every method returns a new
// View; nothing is shared with the receiver.
type View struct {
	search     string
	predicates []Predicate
	sort       *SortConfig
	pages      PageState
}

func NewView(pageSize int) View {
	return View{pages: NewPageState(pageSize)}
}

func (v View) Search() string          { return v.search }
func (v View) Predicates() []Predicate { return slices.Clone(v.predicates) }
func (v View) SortConfig() *SortConfig { return cloneSort(v.sort) }
func (v View) Pages() PageState        { return v.pages }

// WithSearch changes the search text and returns to the first page, since
// the filtered collection is about to change length.
func (v View) WithSearch(q string) View {
	v.search = q
	v.pages = v.pages.Reset()
	return v
}

func (v View) WithPredicates(preds []Predicate) View {
	v.predicates = slices.Clone(preds)
	v.pages = v.pages.Reset()
	return v
}

func (v View) ClearAll() View {
	v.search = ""
	v.predicates = nil
	v.pages = v.pages.Reset()
	return v
}

func (v View) SortBy(col Column) View {
	v.sort = Toggle(v.sort, col)
	return v
}

func (v View) WithPage(page int) View {
	v.pages = v.pages.WithPage(page)
	return v
}

func (v View) WithPageSize(size int) View {
	v.pages = v.pages.WithPageSize(size)
	return v
}

func (v View) Query() Query {
	return Query{
		Search:     v.search,
		Predicates: slices.Clone(v.predicates),
		Sort:       cloneSort(v.sort),
		Page:       v.pages.Page,
		PageSize:   v.pages.PageSize,
	}
}

// Evaluate applies the view to rows. The returned View carries the page
// after self-correction, so a shrunken collection never leaves the view
// pointing past its last page.
func (v View) Evaluate(rows []models.Campaign) (Page, View) {
	p := Apply(rows, v.Query())
	v.pages = PageState{Page: p.Page, PageSize: p.PageSize}
	return p, v
}

func cloneSort(s *SortConfig) *SortConfig {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
