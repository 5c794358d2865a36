package dto

type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	HasPrev     bool `json:"has_prev"`
	PrevPage    int  `json:"prev_page,omitempty"`
	HasNext     bool `json:"has_next"`
	NextPage    int  `json:"next_page,omitempty"`
}

// NewPagination describes page of a listing. The total is not known, so a
// next page is announced whenever the page came back full.
func NewPagination(page, pageSize, returned int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	p := &Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		HasPrev:     page > 1,
		HasNext:     returned >= pageSize,
	}
	if p.HasPrev {
		p.PrevPage = page - 1
	}
	if p.HasNext {
		p.NextPage = page + 1
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p *Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}
