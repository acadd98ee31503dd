package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
	"github.com/listenupapp/lending-server/internal/store"
)

// Loan service error messages.
const (
	msgBookAlreadyLoaned = "Book already loaned"
	msgLoanIDNull        = "Loan id cannot be null"
)

// DefaultOverdueDays is how many days a loan may stay open before it is late.
const DefaultOverdueDays = 4

// LoanPolicy holds the lending rules that come from configuration.
type LoanPolicy struct {
	// OverdueDays is the number of days after which an open loan is late.
	OverdueDays int
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

func (p LoanPolicy) withDefaults() LoanPolicy {
	if p.OverdueDays <= 0 {
		p.OverdueDays = DefaultOverdueDays
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

// LoanService lends books and reports overdue loans.
type LoanService struct {
	store  store.LoanStore
	policy LoanPolicy
	logger *slog.Logger
}

// NewLoanService creates a new loan service.
func NewLoanService(store store.LoanStore, policy LoanPolicy, logger *slog.Logger) *LoanService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoanService{
		store:  store,
		policy: policy.withDefaults(),
		logger: logger,
	}
}

// Save creates a loan and returns it with its assigned ID.
// Returns a Business error if the book already has an open loan.
func (s *LoanService) Save(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	loaned, err := s.store.ExistsLoanByBookAndNotReturned(ctx, loan.Book)
	if err != nil {
		return nil, err
	}
	if loaned {
		return nil, domainerrors.Business(msgBookAlreadyLoaned)
	}

	saved, err := s.store.SaveLoan(ctx, loan)
	if err != nil {
		// The open-loan unique index rejected a concurrent loan of the same book.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Business(msgBookAlreadyLoaned).WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("loan saved",
		"loan_id", saved.ID,
		"book_id", saved.BookID(),
		"customer", saved.Customer,
	)
	return saved, nil
}

// GetByID returns the loan and true, or false when no loan has that ID.
func (s *LoanService) GetByID(ctx context.Context, id string) (*domain.Loan, bool, error) {
	return present(s.store.FindLoanByID(ctx, id))
}

// Update overwrites every field of an existing loan, typically to mark it returned.
func (s *LoanService) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if loan == nil || !loan.HasID() {
		return nil, domainerrors.InvalidArgument(msgLoanIDNull)
	}

	updated, err := s.store.SaveLoan(ctx, loan)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Business(msgBookAlreadyLoaned).WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("loan updated", "loan_id", updated.ID, "returned", updated.Returned)
	return updated, nil
}

// Find returns loans whose book ISBN matches filter.ISBN OR whose customer matches filter.Customer.
func (s *LoanService) Find(ctx context.Context, filter domain.LoanFilter, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return s.store.FindLoansByBookISBNOrCustomer(ctx, filter.ISBN, filter.Customer, page)
}

// GetLoansByBook returns every loan of book, returned or not.
func (s *LoanService) GetLoansByBook(ctx context.Context, book *domain.Book, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return s.store.FindLoansByBook(ctx, book, page)
}

// GetAllLateLoans returns open loans taken at least OverdueDays days ago.
func (s *LoanService) GetAllLateLoans(ctx context.Context) ([]*domain.Loan, error) {
	return s.store.FindLoansByLoanDateLessThanAndNotReturned(ctx, s.Cutoff())
}

// Today returns the current calendar day, the loan date of a loan taken now.
func (s *LoanService) Today() time.Time {
	return domain.Day(s.policy.Now())
}

// Cutoff returns the latest loan date that counts as late today.
func (s *LoanService) Cutoff() time.Time {
	return domain.OverdueCutoff(s.policy.Now(), s.policy.OverdueDays)
}
