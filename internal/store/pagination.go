package store

// Page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// PageRequest asks for one zero-based page of results.
type PageRequest struct {
	Page int // zero-based page index
	Size int // items per page (defaults to 20 with a maximum of 1000)
}

// NewPageRequest returns a validated request for the given page and size.
func NewPageRequest(page, size int) PageRequest {
	p := PageRequest{Page: page, Size: size}
	p.Validate()
	return p
}

// Validate checks and corrects the request in place.
func (p *PageRequest) Validate() {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one slice of a larger result set plus the request it answers.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"total_elements"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalPages    int `json:"total_pages"`
}

// NewPage builds a page for req. Content is never nil.
func NewPage[T any](content []T, req PageRequest, total int) *Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return &Page[T]{
		Content:       content,
		TotalElements: total,
		Page:          req.Page,
		Size:          req.Size,
		TotalPages:    pages,
	}
}

// HasNext reports whether a later page exists.
func (p *Page[T]) HasNext() bool {
	return p.Page+1 < p.TotalPages
}

// MapPage converts the content of a page with fn, keeping its metadata.
func MapPage[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, len(p.Content))
	for i, v := range p.Content {
		out[i] = fn(v)
	}
	return &Page[U]{
		Content:       out,
		TotalElements: p.TotalElements,
		Page:          p.Page,
		Size:          p.Size,
		TotalPages:    p.TotalPages,
	}
}
