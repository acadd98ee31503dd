// Package store defines the persistence gateways the lending services depend on.
package store

import (
	"context"
	"time"

	"github.com/listenupapp/lending-server/internal/domain"
)

// BookStore persists books.
type BookStore interface {
	// SaveBook inserts a book without ID (assigning one) or fully overwrites an existing one.
	// Returns ErrAlreadyExists if the ISBN is taken and ErrNotFound if an ID is set but unknown.
	SaveBook(ctx context.Context, book *domain.Book) (*domain.Book, error)
	// DeleteBook removes the book. Returns ErrNotFound if absent and ErrReferenced if loans point at it.
	DeleteBook(ctx context.Context, book *domain.Book) error
	// FindBookByID returns ErrNotFound if absent.
	FindBookByID(ctx context.Context, id string) (*domain.Book, error)
	ExistsBookByISBN(ctx context.Context, isbn string) (bool, error)
	// FindBookByISBN returns ErrNotFound if absent.
	FindBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	// FindBooks matches every non-empty field of example exactly (AND).
	FindBooks(ctx context.Context, example domain.Book, page PageRequest) (*Page[*domain.Book], error)
}

// LoanStore persists loans.
type LoanStore interface {
	// SaveLoan inserts a loan without ID (assigning one) or fully overwrites an existing one.
	// Returns ErrAlreadyExists if the book already has an open loan.
	SaveLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)
	// FindLoanByID returns ErrNotFound if absent.
	FindLoanByID(ctx context.Context, id string) (*domain.Loan, error)
	ExistsLoanByBookAndNotReturned(ctx context.Context, book *domain.Book) (bool, error)
	// FindLoansByBookISBNOrCustomer matches loans whose book ISBN equals isbn OR whose customer equals customer.
	FindLoansByBookISBNOrCustomer(ctx context.Context, isbn, customer string, page PageRequest) (*Page[*domain.Loan], error)
	FindLoansByBook(ctx context.Context, book *domain.Book, page PageRequest) (*Page[*domain.Loan], error)
	// FindLoansByLoanDateLessThanAndNotReturned returns open loans with loan date on or before cutoff.
	FindLoansByLoanDateLessThanAndNotReturned(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error)
}

// Store is the full persistence gateway.
type Store interface {
	BookStore
	LoanStore
	Ping(ctx context.Context) error
	Close() error
}
