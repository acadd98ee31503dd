package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/listenupapp/lending-server/internal/domain"
	"github.com/listenupapp/lending-server/internal/id"
	"github.com/listenupapp/lending-server/internal/store"
)

const tableBooks = "books"

// bookColumns is the ordered list of columns selected in book queries.
var bookColumns = []any{"id", "title", "author", "isbn", "created_at", "updated_at"}

type bookRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	ISBN      string `db:"isbn"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r bookRow) toDomain() (*domain.Book, error) {
	b := &domain.Book{
		Entity: domain.Entity{ID: r.ID},
		Title:  r.Title,
		Author: r.Author,
		ISBN:   r.ISBN,
	}
	var err error
	if b.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return b, nil
}

// SaveBook inserts a new book or fully overwrites an existing one.
// Returns store.ErrAlreadyExists if the ISBN is already taken.
func (s *Store) SaveBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if book.HasID() {
		return s.updateBook(ctx, book)
	}
	return s.insertBook(ctx, book)
}

func (s *Store) insertBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	bookID, err := id.Generate(id.BookPrefix)
	if err != nil {
		return nil, err
	}

	saved := *book
	saved.ID = bookID
	saved.InitTimestamps(s.now())

	query, args, err := toSQL(s.dialect.Insert(tableBooks).Rows(goqu.Record{
		"id":         saved.ID,
		"title":      saved.Title,
		"author":     saved.Author,
		"isbn":       saved.ISBN,
		"created_at": formatTime(saved.CreatedAt),
		"updated_at": formatTime(saved.UpdatedAt),
	}).Prepared(true))
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, classifyWriteError(err)
	}
	return &saved, nil
}

func (s *Store) updateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	query, args, err := toSQL(s.dialect.Update(tableBooks).Set(goqu.Record{
		"title":      book.Title,
		"author":     book.Author,
		"isbn":       book.ISBN,
		"updated_at": formatTime(s.now()),
	}).Where(goqu.C("id").Eq(book.ID)).Prepared(true))
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classifyWriteError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, store.ErrNotFound.WithMessage("book not found")
	}

	return s.FindBookByID(ctx, book.ID)
}

// DeleteBook removes a book by ID.
// Returns store.ErrReferenced if loans still reference it.
func (s *Store) DeleteBook(ctx context.Context, book *domain.Book) error {
	query, args, err := toSQL(s.dialect.Delete(tableBooks).Where(goqu.C("id").Eq(book.ID)).Prepared(true))
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classifyWriteError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound.WithMessage("book not found")
	}
	return nil
}

// FindBookByID returns store.ErrNotFound if the book does not exist.
func (s *Store) FindBookByID(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.getBook(ctx, goqu.Ex{"id": bookID})
}

// FindBookByISBN returns store.ErrNotFound if no book carries isbn.
func (s *Store) FindBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return s.getBook(ctx, goqu.Ex{"isbn": isbn})
}

// ExistsBookByISBN reports whether a book with isbn exists.
func (s *Store) ExistsBookByISBN(ctx context.Context, isbn string) (bool, error) {
	return s.exists(ctx, s.dialect.From(tableBooks).Where(goqu.Ex{"isbn": isbn}))
}

// FindBooks returns a page of books matching every non-empty field of example.
func (s *Store) FindBooks(ctx context.Context, example domain.Book, page store.PageRequest) (*store.Page[*domain.Book], error) {
	page.Validate()

	ds := s.dialect.From(tableBooks)
	if where := bookExample(example); len(where) > 0 {
		ds = ds.Where(where)
	}

	total, err := s.count(ctx, ds)
	if err != nil {
		return nil, err
	}

	query, args, err := toSQL(ds.Select(bookColumns...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Offset())).
		Prepared(true))
	if err != nil {
		return nil, err
	}

	var rows []bookRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select books: %w", err)
	}

	books := make([]*domain.Book, 0, len(rows))
	for _, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}

	return store.NewPage(books, page, total), nil
}

// bookExample turns the populated fields of example into exact-match criteria.
func bookExample(example domain.Book) goqu.Ex {
	ex := goqu.Ex{}
	if example.ID != "" {
		ex["id"] = example.ID
	}
	if example.Title != "" {
		ex["title"] = example.Title
	}
	if example.Author != "" {
		ex["author"] = example.Author
	}
	if example.ISBN != "" {
		ex["isbn"] = example.ISBN
	}
	return ex
}

func (s *Store) getBook(ctx context.Context, where goqu.Ex) (*domain.Book, error) {
	query, args, err := toSQL(s.dialect.From(tableBooks).Select(bookColumns...).Where(where).Limit(1).Prepared(true))
	if err != nil {
		return nil, err
	}

	var row bookRow
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound.WithMessage("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return row.toDomain()
}

// count returns the number of rows ds would produce.
func (s *Store) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	query, args, err := toSQL(ds.Select(goqu.COUNT(goqu.Star())).Prepared(true))
	if err != nil {
		return 0, err
	}

	var total int
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

// exists reports whether ds produces at least one row.
func (s *Store) exists(ctx context.Context, ds *goqu.SelectDataset) (bool, error) {
	query, args, err := toSQL(ds.Select(goqu.L("1")).Limit(1).Prepared(true))
	if err != nil {
		return false, err
	}

	var one int
	if err := s.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}
