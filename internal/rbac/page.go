package rbac

const (
	// DefaultPerPage is used when a page request does not set PerPage.
	DefaultPerPage = 15
	// MaxPerPage caps PerPage for every paginated listing.
	MaxPerPage = 200
)

// Page requests a slice of a listing. Page is 1 based.
type Page struct {
	Page    int
	PerPage int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}

	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}

	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}

	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageInfo describes the returned slice of a listing.
type PageInfo struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

func newPageInfo(p Page, total int64) PageInfo {
	last := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}

	return PageInfo{
		CurrentPage: p.Page,
		PerPage:     p.PerPage,
		Total:       total,
		LastPage:    last,
	}
}
