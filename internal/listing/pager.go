package listing

const DefaultPageSize = 10

// TotalPages is ceil(count / perPage). A zero count yields zero pages.
func TotalPages(count, perPage int) int {
	if count <= 0 || perPage <= 0 {
		return 0
	}
	return (count + perPage - 1) / perPage
}

// PageState is the 1-based pagination position of a view.
type PageState struct {
	CurrentPage  int `json:"current_page"`
	ItemsPerPage int `json:"items_per_page"`
	TotalPages   int `json:"total_pages"`
}

func NewPageState(perPage int) PageState {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	return PageState{CurrentPage: 1, ItemsPerPage: perPage}
}

// SetCount recomputes TotalPages from a server count and clamps the
// current page.
func (p *PageState) SetCount(count int) {
	p.TotalPages = TotalPages(count, p.ItemsPerPage)
	p.clamp()
}

func (p *PageState) clamp() {
	if p.CurrentPage > p.TotalPages {
		p.CurrentPage = p.TotalPages
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
}

// HasPages reports whether there is at least one page to render.
func (p PageState) HasPages() bool { return p.TotalPages > 0 }

func (p PageState) HasPrev() bool { return p.CurrentPage > 1 }

func (p PageState) HasNext() bool { return p.TotalPages > 1 && p.CurrentPage < p.TotalPages }

// Prev moves one page back. It returns false and changes nothing on page 1.
func (p *PageState) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.CurrentPage--
	return true
}

// Next moves one page forward. It returns false and changes nothing on
// the last page or when there is at most one page.
func (p *PageState) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.CurrentPage++
	return true
}

// GoTo jumps to page n clamped into [1, TotalPages]. It reports whether
// the page changed; nothing moves while the total is unknown.
func (p *PageState) GoTo(n int) bool {
	if p.TotalPages == 0 {
		return false
	}
	n = max(1, min(n, p.TotalPages))
	if n == p.CurrentPage {
		return false
	}
	p.CurrentPage = n
	return true
}

// Reset returns to page 1; it reports whether the page changed.
func (p *PageState) Reset() bool {
	if p.CurrentPage == 1 {
		return false
	}
	p.CurrentPage = 1
	return true
}
