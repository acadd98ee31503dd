package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/listenupapp/lending-server/internal/domain"
	"github.com/listenupapp/lending-server/internal/store"
)

// memStore is an in-memory BookStore and LoanStore that records every write.
type memStore struct {
	mu     sync.Mutex
	books  map[string]*domain.Book
	loans  map[string]*domain.Loan
	nextID int

	writes int
	calls  []string

	// skipOpenLoanCheck makes ExistsLoanByBookAndNotReturned lie, to simulate a lost race.
	skipOpenLoanCheck bool
	// failWith, when set, is returned by every write.
	failWith error
}

var (
	_ store.BookStore = (*memStore)(nil)
	_ store.LoanStore = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		books: make(map[string]*domain.Book),
		loans: make(map[string]*domain.Loan),
	}
}

func (m *memStore) record(call string, write bool) {
	m.calls = append(m.calls, call)
	if write {
		m.writes++
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) SaveBook(_ context.Context, book *domain.Book) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveBook", true)

	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, b := range m.books {
		if b.ISBN == book.ISBN && b.ID != book.ID {
			return nil, store.ErrAlreadyExists
		}
	}

	saved := *book
	if !saved.HasID() {
		saved.ID = m.id("book")
	} else if _, ok := m.books[saved.ID]; !ok {
		return nil, store.ErrNotFound
	}
	m.books[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (m *memStore) DeleteBook(_ context.Context, book *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteBook", true)

	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.books[book.ID]; !ok {
		return store.ErrNotFound
	}
	delete(m.books, book.ID)
	return nil
}

func (m *memStore) FindBookByID(_ context.Context, id string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindBookByID", false)

	b, ok := m.books[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *memStore) ExistsBookByISBN(_ context.Context, isbn string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExistsBookByISBN", false)

	for _, b := range m.books {
		if b.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindBookByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindBookByISBN", false)

	for _, b := range m.books {
		if b.ISBN == isbn {
			out := *b
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) FindBooks(_ context.Context, example domain.Book, page store.PageRequest) (*store.Page[*domain.Book], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindBooks", false)

	var matched []*domain.Book
	for _, b := range m.books {
		if example.Title != "" && b.Title != example.Title {
			continue
		}
		if example.Author != "" && b.Author != example.Author {
			continue
		}
		if example.ISBN != "" && b.ISBN != example.ISBN {
			continue
		}
		out := *b
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page), nil
}

func (m *memStore) SaveLoan(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveLoan", true)

	if m.failWith != nil {
		return nil, m.failWith
	}
	if !loan.Returned {
		for _, l := range m.loans {
			if l.ID != loan.ID && l.BookID() == loan.BookID() && !l.Returned {
				return nil, store.ErrAlreadyExists
			}
		}
	}

	saved := *loan
	if !saved.HasID() {
		saved.ID = m.id("loan")
	} else if _, ok := m.loans[saved.ID]; !ok {
		return nil, store.ErrNotFound
	}
	m.loans[saved.ID] = &saved
	out := saved
	return &out, nil
}

func (m *memStore) FindLoanByID(_ context.Context, id string) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindLoanByID", false)

	l, ok := m.loans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *l
	return &out, nil
}

func (m *memStore) ExistsLoanByBookAndNotReturned(_ context.Context, book *domain.Book) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ExistsLoanByBookAndNotReturned", false)

	if m.skipOpenLoanCheck || book == nil {
		return false, nil
	}
	for _, l := range m.loans {
		if l.BookID() == book.ID && !l.Returned {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindLoansByBookISBNOrCustomer(_ context.Context, isbn, customer string, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return m.filterLoans("FindLoansByBookISBNOrCustomer", page, func(l *domain.Loan) bool {
		return (l.Book != nil && l.Book.ISBN == isbn) || l.Customer == customer
	}), nil
}

func (m *memStore) FindLoansByBook(_ context.Context, book *domain.Book, page store.PageRequest) (*store.Page[*domain.Loan], error) {
	return m.filterLoans("FindLoansByBook", page, func(l *domain.Loan) bool {
		return l.BookID() == book.ID
	}), nil
}

func (m *memStore) FindLoansByLoanDateLessThanAndNotReturned(_ context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	page := m.filterLoans("FindLoansByLoanDateLessThanAndNotReturned", store.PageRequest{Size: store.MaxPageSize}, func(l *domain.Loan) bool {
		return l.IsLate(cutoff)
	})
	return page.Content, nil
}

func (m *memStore) filterLoans(call string, page store.PageRequest, keep func(*domain.Loan) bool) *store.Page[*domain.Loan] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(call, false)

	var matched []*domain.Loan
	for _, l := range m.loans {
		if keep(l) {
			out := *l
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page)
}

func paginate[T any](items []T, page store.PageRequest) *store.Page[T] {
	page.Validate()
	total := len(items)
	start := min(page.Offset(), total)
	end := min(start+page.Size, total)
	return store.NewPage(items[start:end], page, total)
}

// seedBook stores a book directly, bypassing the write counter.
func (m *memStore) seedBook(title, author, isbn string) *domain.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &domain.Book{Entity: domain.Entity{ID: m.id("book")}, Title: title, Author: author, ISBN: isbn}
	m.books[b.ID] = b
	out := *b
	return &out
}

// seedLoan stores a loan directly, bypassing the write counter.
func (m *memStore) seedLoan(book *domain.Book, customer, email string, date time.Time, returned bool) *domain.Loan {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &domain.Loan{
		Entity:        domain.Entity{ID: m.id("loan")},
		Book:          book,
		Customer:      customer,
		CustomerEmail: email,
		LoanDate:      domain.Day(date),
		Returned:      returned,
	}
	m.loans[l.ID] = l
	out := *l
	return &out
}
