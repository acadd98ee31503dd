package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
	"github.com/listenupapp/lending-server/internal/store"
)

// Book service error messages.
const (
	msgIsbnRegistered = "Isbn already registered"
	msgBookIDNull     = "Book id cannot be null"
)

// BookService manages the book catalog and keeps ISBNs unique.
type BookService struct {
	store  store.BookStore
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store store.BookStore, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{
		store:  store,
		logger: logger,
	}
}

// Save registers a new book and returns it with its assigned ID.
// Returns a DuplicateKey error if the ISBN is already registered.
func (s *BookService) Save(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	exists, err := s.store.ExistsBookByISBN(ctx, book.ISBN)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domainerrors.DuplicateKey(msgIsbnRegistered)
	}

	saved, err := s.store.SaveBook(ctx, book)
	if err != nil {
		// Lost a race against a concurrent save of the same ISBN.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.DuplicateKey(msgIsbnRegistered).WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("book saved", "book_id", saved.ID, "isbn", saved.ISBN)
	return saved, nil
}

// GetByID returns the book and true, or false when no book has that ID.
func (s *BookService) GetByID(ctx context.Context, id string) (*domain.Book, bool, error) {
	return present(s.store.FindBookByID(ctx, id))
}

// Delete removes a book. The book must carry an ID.
func (s *BookService) Delete(ctx context.Context, book *domain.Book) error {
	if book == nil || !book.HasID() {
		return domainerrors.InvalidArgument(msgBookIDNull)
	}

	if err := s.store.DeleteBook(ctx, book); err != nil {
		return err
	}

	s.logger.Info("book deleted", "book_id", book.ID)
	return nil
}

// Update overwrites every field of an existing book. The book must carry an ID.
func (s *BookService) Update(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if book == nil || !book.HasID() {
		return nil, domainerrors.InvalidArgument(msgBookIDNull)
	}

	updated, err := s.store.SaveBook(ctx, book)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.DuplicateKey(msgIsbnRegistered).WithCause(err)
		}
		return nil, err
	}

	s.logger.Info("book updated", "book_id", updated.ID)
	return updated, nil
}

// Find returns a page of books matching every non-empty field of filter.
func (s *BookService) Find(ctx context.Context, filter domain.Book, page store.PageRequest) (*store.Page[*domain.Book], error) {
	return s.store.FindBooks(ctx, filter, page)
}

// GetByISBN returns the book and true, or false when no book carries isbn.
func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*domain.Book, bool, error) {
	return present(s.store.FindBookByISBN(ctx, isbn))
}

// present turns a store lookup into an optional result: store.ErrNotFound becomes (nil, false, nil).
func present[T any](v *T, err error) (*T, bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
