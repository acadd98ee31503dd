package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/lending-server/internal/domain"
	"github.com/listenupapp/lending-server/internal/id"
	"github.com/listenupapp/lending-server/internal/store"
)

const tableLoans = "loans"

// loanColumns selects a loan joined with its book. Must match loanRow tags.
var loanColumns = []any{
	goqu.I("l.id").As("id"),
	goqu.I("l.book_id").As("book_id"),
	goqu.I("l.customer").As("customer"),
	goqu.I("l.customer_email").As("customer_email"),
	goqu.I("l.loan_date").As("loan_date"),
	goqu.I("l.returned").As("returned"),
	goqu.I("l.created_at").As("created_at"),
	goqu.I("l.updated_at").As("updated_at"),
	goqu.I("b.title").As("book_title"),
	goqu.I("b.author").As("book_author"),
	goqu.I("b.isbn").As("book_isbn"),
	goqu.I("b.created_at").As("book_created_at"),
	goqu.I("b.updated_at").As("book_updated_at"),
}

// openLoan matches loans not yet returned. Written as a literal so it renders
// the same on SQLite integers and PostgreSQL booleans.
var openLoan = goqu.L("NOT l.returned")

type loanRow struct {
	ID            string `db:"id"`
	BookID        string `db:"book_id"`
	Customer      string `db:"customer"`
	CustomerEmail string `db:"customer_email"`
	LoanDate      string `db:"loan_date"`
	Returned      bool   `db:"returned"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
	BookTitle     string `db:"book_title"`
	BookAuthor    string `db:"book_author"`
	BookISBN      string `db:"book_isbn"`
	BookCreatedAt string `db:"book_created_at"`
	BookUpdatedAt string `db:"book_updated_at"`
}

func (r loanRow) toDomain() (*domain.Loan, error) {
	book, err := bookRow{
		ID:        r.BookID,
		Title:     r.BookTitle,
		Author:    r.BookAuthor,
		ISBN:      r.BookISBN,
		CreatedAt: r.BookCreatedAt,
		UpdatedAt: r.BookUpdatedAt,
	}.toDomain()
	if err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		Entity:        domain.Entity{ID: r.ID},
		Book:          book,
		Customer:      r.Customer,
		CustomerEmail: r.CustomerEmail,
		Returned:      r.Returned,
	}
	if loan.LoanDate, err = domain.ParseDate(r.LoanDate); err != nil {
		return nil, fmt.Errorf("parse loan_date: %w", err)
	}
	if loan.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if loan.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return loan, nil
}

// loansFrom is the base dataset for loan reads.
func (s *Store) loansFrom() *goqu.SelectDataset {
	return s.dialect.From(goqu.T(tableLoans).As("l")).
		InnerJoin(goqu.T(tableBooks).As("b"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id"))))
}

// SaveLoan inserts a new loan or fully overwrites an existing one.
// Returns store.ErrAlreadyExists if the book already has an open loan,
// and store.ErrReferenced if the book does not exist.
func (s *Store) SaveLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	if loan.BookID() == "" {
		return nil, store.ErrInvalidInput.WithMessage("loan must reference a book")
	}
	if loan.HasID() {
		return s.updateLoan(ctx, loan)
	}
	return s.insertLoan(ctx, loan)
}

func (s *Store) insertLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	loanID, err := id.Generate(id.LoanPrefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	query, args, err := toSQL(s.dialect.Insert(tableLoans).Rows(goqu.Record{
		"id":             loanID,
		"book_id":        loan.BookID(),
		"customer":       loan.Customer,
		"customer_email": loan.CustomerEmail,
		"loan_date":      domain.FormatDate(loan.LoanDate),
		"returned":       loan.Returned,
		"created_at":     formatTime(now),
		"updated_at":     formatTime(now),
	}).Prepared(true))
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, classifyWriteError(err)
	}

	return s.FindLoanByID(ctx, loanID)
}

func (s *Store) updateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	query, args, err := toSQL(s.dialect.Update(tableLoans).Set(goqu.Record{
		"book_id":        loan.BookID(),
		"customer":       loan.Customer,
		"customer_email": loan.CustomerEmail,
		"loan_date":      domain.FormatDate(loan.LoanDate),
		"returned":       loan.Returned,
		"updated_at":     formatTime(s.now()),
	}).Where(goqu.C("id").Eq(loan.ID)).Prepared(true))
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classifyWriteError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrNotFound.WithMessage("loan not found")
	}

	return s.FindLoanByID(ctx, loan.ID)
}

// FindLoanByID returns store.ErrNotFound if the loan does not exist.
func (s *Store) FindLoanByID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query, args, err := toSQL(s.loansFrom().Select(loanColumns...).
		Where(goqu.I("l.id").Eq(loanID)).
		Limit(1).
		Prepared(true))
	if err != nil {
		return nil, err
	}

	var row loanRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound.WithMessage("loan not found")
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return row.toDomain()
}

// ExistsLoanByBookAndNotReturned reports whether book has an open loan.
func (s *Store) ExistsLoanByBookAndNotReturned(ctx context.Context, book *domain.Book) (bool, error) {
	if book == nil {
		return false, nil
	}
	return s.exists(ctx, s.dialect.From(goqu.T(tableLoans).As("l")).
		Where(goqu.I("l.book_id").Eq(book.ID), openLoan))
}

// FindLoansByBookISBNOrCustomer returns loans whose book ISBN equals isbn OR whose customer equals customer.
func (s *Store) FindLoansByBookISBNOrCustomer(ctx context.Context, isbn, customer string, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return s.loanPage(ctx, s.loansFrom().Where(goqu.Or(
		goqu.I("b.isbn").Eq(isbn),
		goqu.I("l.customer").Eq(customer),
	)), page)
}

// FindLoansByBook returns every loan of book, returned or not.
func (s *Store) FindLoansByBook(ctx context.Context, book *domain.Book, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return s.loanPage(ctx, s.loansFrom().Where(goqu.I("l.book_id").Eq(book.ID)), page)
}

// FindLoansByLoanDateLessThanAndNotReturned returns open loans dated on or before cutoff.
func (s *Store) FindLoansByLoanDateLessThanAndNotReturned(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	ds := s.loansFrom().
		Where(goqu.I("l.loan_date").Lte(domain.FormatDate(cutoff)), openLoan).
		Select(loanColumns...).
		Order(goqu.I("l.loan_date").Asc(), goqu.I("l.id").Asc())

	return s.selectLoans(ctx, ds)
}

func (s *Store) loanPage(ctx context.Context, ds *goqu.SelectDataset, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	page.Validate()

	total, err := s.count(ctx, ds)
	if err != nil {
		return nil, err
	}

	loans, err := s.selectLoans(ctx, ds.Select(loanColumns...).
		Order(goqu.I("l.loan_date").Desc(), goqu.I("l.id").Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())))
	if err != nil {
		return nil, err
	}

	return store.NewPage(loans, page, total), nil
}

func (s *Store) selectLoans(ctx context.Context, ds *goqu.SelectDataset) ([]*domain.Loan, error) {
	query, args, err := toSQL(ds.Prepared(true))
	if err != nil {
		return nil, err
	}

	var rows []loanRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select loans: %w", err)
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, r := range rows {
		loan, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}
