package blogsync

// DefaultPageSize is the feed page size when the caller does not choose one.
const DefaultPageSize = 10

// Paginator holds one page of a post list plus the navigation facts a view
// needs to render pager controls.
type Paginator struct {
	TotalPages  int
	CurrentPage int
	NextPage    int
	PrevPage    int
	PageSize    int
	HasNext     bool
	HasPrev     bool
	HasPosts    bool
	TotalPosts  int
	Posts       []*Post
}

// NewPaginator slices the given posts into the requested page. Page numbers
// are 1-based; out-of-range pages clamp to the nearest valid page.
func NewPaginator(posts []*Post, currentPage, pageSize int) Paginator {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(posts)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	start := (currentPage - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	page := posts[start:end]

	nextPage := currentPage + 1
	if nextPage > totalPages {
		nextPage = totalPages
	}
	prevPage := currentPage - 1
	if prevPage < 1 {
		prevPage = 1
	}

	return Paginator{
		TotalPages:  totalPages,
		CurrentPage: currentPage,
		NextPage:    nextPage,
		PrevPage:    prevPage,
		PageSize:    pageSize,
		HasNext:     currentPage < totalPages,
		HasPrev:     currentPage > 1,
		HasPosts:    len(page) > 0,
		TotalPosts:  total,
		Posts:       page,
	}
}
