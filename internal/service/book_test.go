package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
	"github.com/listenupapp/lending-server/internal/store"
)

func newTestBookService(t *testing.T) (*BookService, *memStore) {
	t.Helper()
	m := newMemStore()
	return NewBookService(m, nil), m
}

func TestBookService_Save(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, &domain.Book{ISBN: "123", Title: "As Aventuras", Author: "Fulano"})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "123", saved.ISBN)
	assert.Equal(t, "As Aventuras", saved.Title)
	assert.Equal(t, "Fulano", saved.Author)
	assert.Equal(t, []string{"ExistsBookByISBN", "SaveBook"}, m.calls)
	assert.Equal(t, 1, m.writes)
}

func TestBookService_Save_DuplicateISBN(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, &domain.Book{ISBN: "123", Title: "As Aventuras", Author: "Fulano"})
	require.NoError(t, err)

	_, err = svc.Save(ctx, &domain.Book{ISBN: "123", Title: "Outro", Author: "Beltrano"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateKey))
	assert.Equal(t, "Isbn already registered", err.Error())
	assert.Equal(t, 1, m.writes, "duplicate must not reach the gateway write")
}

func TestBookService_Save_RaceAtUniqueConstraint(t *testing.T) {
	svc, m := newTestBookService(t)
	m.failWith = store.ErrAlreadyExists

	_, err := svc.Save(context.Background(), &domain.Book{ISBN: "123", Title: "T", Author: "A"})

	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateKey))
}

func TestBookService_Save_StoreFailure(t *testing.T) {
	svc, m := newTestBookService(t)
	boom := errors.New("disk full")
	m.failWith = boom

	_, err := svc.Save(context.Background(), &domain.Book{ISBN: "123", Title: "T", Author: "A"})

	assert.ErrorIs(t, err, boom)
}

func TestBookService_GetByID(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()
	seeded := m.seedBook("T", "A", "123")

	t.Run("present", func(t *testing.T) {
		b, ok, err := svc.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, seeded.ID, b.ID)
	})

	t.Run("absent is empty, not an error", func(t *testing.T) {
		b, ok, err := svc.GetByID(ctx, "book-missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, b)
	})
}

func TestBookService_DeleteAndUpdate_RequireID(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		book *domain.Book
	}{
		{"empty id", &domain.Book{Title: "T", Author: "A", ISBN: "1"}},
		{"nil book", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Delete(ctx, tt.book)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrInvalidArgument))
			assert.Equal(t, "Book id cannot be null", err.Error())

			_, err = svc.Update(ctx, tt.book)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrInvalidArgument))
			assert.Equal(t, "Book id cannot be null", err.Error())
		})
	}

	assert.Empty(t, m.calls, "no gateway call expected")
	assert.Zero(t, m.writes)
}

func TestBookService_Delete(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()
	b := m.seedBook("T", "A", "123")

	require.NoError(t, svc.Delete(ctx, b))

	_, ok, err := svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBookService_Update_FullOverwrite(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()
	b := m.seedBook("Old title", "Old author", "123")

	updated, err := svc.Update(ctx, &domain.Book{Entity: domain.Entity{ID: b.ID}, Title: "New title", Author: "", ISBN: "123"})
	require.NoError(t, err)

	assert.Equal(t, b.ID, updated.ID)
	assert.Equal(t, "New title", updated.Title)
	assert.Empty(t, updated.Author, "update must not merge fields")
}

func TestBookService_Update_ISBNTaken(t *testing.T) {
	svc, m := newTestBookService(t)
	m.seedBook("First", "A", "111")
	second := m.seedBook("Second", "A", "222")

	second.ISBN = "111"
	_, err := svc.Update(context.Background(), second)

	assert.True(t, errors.Is(err, domainerrors.ErrDuplicateKey))
}

func TestBookService_Find(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()
	m.seedBook("Dune", "Herbert", "1")
	m.seedBook("Dune Messiah", "Herbert", "2")
	m.seedBook("Emma", "Austen", "3")

	t.Run("empty filter returns the unfiltered page", func(t *testing.T) {
		page, err := svc.Find(ctx, domain.Book{}, store.PageRequest{Page: 0, Size: 100})
		require.NoError(t, err)

		assert.Equal(t, 3, page.TotalElements)
		assert.Len(t, page.Content, 3)
		assert.Equal(t, 0, page.Page)
		assert.Equal(t, 100, page.Size)
	})

	t.Run("fields are ANDed", func(t *testing.T) {
		page, err := svc.Find(ctx, domain.Book{Author: "Herbert", Title: "Dune"}, store.PageRequest{Size: 10})
		require.NoError(t, err)

		require.Len(t, page.Content, 1)
		assert.Equal(t, "1", page.Content[0].ISBN)
	})

	t.Run("page metadata honors request", func(t *testing.T) {
		page, err := svc.Find(ctx, domain.Book{Author: "Herbert"}, store.PageRequest{Page: 1, Size: 1})
		require.NoError(t, err)

		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 1, page.Size)
		assert.Equal(t, 2, page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Content, 1)
	})
}

func TestBookService_GetByISBN(t *testing.T) {
	svc, m := newTestBookService(t)
	ctx := context.Background()
	m.seedBook("T", "A", "123")

	b, ok, err := svc.GetByISBN(ctx, "123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123", b.ISBN)

	b, ok, err = svc.GetByISBN(ctx, "999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)
}
