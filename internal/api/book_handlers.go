package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
)

const msgBookNotFound = "Book not found"

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Registers a new book. The ISBN must not be registered yet.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a page of books. Every given filter must match exactly.",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Overwrites every field of a book",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBook",
		Method:        http.MethodDelete,
		Path:          "/api/v1/books/{id}",
		Summary:       "Delete book",
		Description:   "Deletes a book that has never been loaned",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/loans",
		Summary:     "List loans of a book",
		Description: "Returns a page of every loan of the book, returned or not",
		Tags:        []string{"Books", "Loans"},
	}, s.handleListBookLoans)
}

// BookRequest is the body for creating or replacing a book.
type BookRequest struct {
	Title  string `json:"title,omitempty" validate:"required,notblank,max=500" doc:"Title"`
	Author string `json:"author,omitempty" validate:"required,notblank,max=500" doc:"Author"`
	ISBN   string `json:"isbn,omitempty" validate:"required,notblank,max=32" doc:"ISBN"`
}

func (r BookRequest) toDomain(id string) *domain.Book {
	return &domain.Book{
		Entity: domain.Entity{ID: id},
		Title:  r.Title,
		Author: r.Author,
		ISBN:   r.ISBN,
	}
}

// CreateBookInput contains parameters for creating a book.
type CreateBookInput struct {
	Body BookRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body BookResponse
}

// ListBooksInput contains filters and paging for listing books.
type ListBooksInput struct {
	Title  string `query:"title" doc:"Exact title"`
	Author string `query:"author" doc:"Exact author"`
	ISBN   string `query:"isbn" doc:"Exact ISBN"`
	PageQuery
}

// BookPageOutput wraps a page of books for Huma.
type BookPageOutput struct {
	Body PageResponse[BookResponse]
}

// BookIDInput identifies a book by path.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookInput contains parameters for replacing a book.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body BookRequest
}

// ListBookLoansInput contains paging for a book's loans.
type ListBookLoansInput struct {
	ID string `path:"id" doc:"Book ID"`
	PageQuery
}

// LoanPageOutput wraps a page of loans for Huma.
type LoanPageOutput struct {
	Body PageResponse[LoanResponse]
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Book.Save(ctx, input.Body.toDomain(""))
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookPageOutput, error) {
	filter := domain.Book{Title: input.Title, Author: input.Author, ISBN: input.ISBN}

	page, err := s.services.Book.Find(ctx, filter, input.Request())
	if err != nil {
		return nil, err
	}

	return &BookPageOutput{Body: toPageResponse(page, toBookResponse)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.requireBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Book.Update(ctx, input.Body.toDomain(input.ID))
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*struct{}, error) {
	book, err := s.requireBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Book.Delete(ctx, book); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleListBookLoans(ctx context.Context, input *ListBookLoansInput) (*LoanPageOutput, error) {
	book, err := s.requireBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Loan.GetLoansByBook(ctx, book, input.Request())
	if err != nil {
		return nil, err
	}

	return &LoanPageOutput{Body: toPageResponse(page, toLoanResponse)}, nil
}

// requireBook loads a book or fails with NotFound.
func (s *Server) requireBook(ctx context.Context, id string) (*domain.Book, error) {
	book, found, err := s.services.Book.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domainerrors.NotFound(msgBookNotFound)
	}
	return book, nil
}
