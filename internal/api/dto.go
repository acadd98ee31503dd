package api

import (
	"time"

	"github.com/listenupapp/lending-server/internal/domain"
	"github.com/listenupapp/lending-server/internal/store"
)

// BookResponse is the wire form of a book.
type BookResponse struct {
	ID        string    `json:"id" doc:"Book ID"`
	Title     string    `json:"title" doc:"Title"`
	Author    string    `json:"author" doc:"Author"`
	ISBN      string    `json:"isbn" doc:"ISBN, unique across all books"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// LoanResponse is the wire form of a loan with its book inlined.
type LoanResponse struct {
	ID            string       `json:"id" doc:"Loan ID"`
	Book          BookResponse `json:"book" doc:"Loaned book"`
	Customer      string       `json:"customer" doc:"Borrower name"`
	CustomerEmail string       `json:"customer_email,omitempty" doc:"Borrower email"`
	LoanDate      string       `json:"loan_date" format:"date" doc:"Day the loan was taken (YYYY-MM-DD)"`
	Returned      bool         `json:"returned" doc:"Whether the book came back"`
	CreatedAt     time.Time    `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time    `json:"updated_at" doc:"Last update time"`
}

// PageResponse is one page of results with its position in the full set.
type PageResponse[T any] struct {
	Content       []T `json:"content" doc:"Items on this page"`
	TotalElements int `json:"total_elements" doc:"Items across all pages"`
	Page          int `json:"page" doc:"Zero-based page index"`
	Size          int `json:"size" doc:"Requested page size"`
	TotalPages    int `json:"total_pages" doc:"Number of pages"`
}

// PageQuery is embedded by list inputs.
type PageQuery struct {
	Page int `query:"page" doc:"Zero-based page index (negative values read as 0)"`
	Size int `query:"size" doc:"Page size (default 20, at most 1000)"`
}

// Request returns the validated page request.
func (q PageQuery) Request() store.PageRequest {
	return store.NewPageRequest(q.Page, q.Size)
}

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toLoanResponse(l *domain.Loan) LoanResponse {
	resp := LoanResponse{
		ID:            l.ID,
		Customer:      l.Customer,
		CustomerEmail: l.CustomerEmail,
		LoanDate:      domain.FormatDate(l.LoanDate),
		Returned:      l.Returned,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.Book != nil {
		resp.Book = toBookResponse(l.Book)
	}
	return resp
}

func toLoanResponses(loans []*domain.Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	return out
}

func toPageResponse[T, U any](p *store.Page[T], fn func(T) U) PageResponse[U] {
	mapped := store.MapPage(p, fn)
	return PageResponse[U]{
		Content:       mapped.Content,
		TotalElements: mapped.TotalElements,
		Page:          mapped.Page,
		Size:          mapped.Size,
		TotalPages:    mapped.TotalPages,
	}
}
