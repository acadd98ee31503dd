package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/lending-server/internal/domain"
	"github.com/listenupapp/lending-server/internal/service"
	"github.com/listenupapp/lending-server/internal/store/sqlstore"
)

// testNow is the wall clock every test server runs at.
var testNow = time.Date(2024, time.March, 10, 14, 0, 0, 0, time.UTC)

type testServer struct {
	api     humatest.TestAPI
	server  *Server
	store   *sqlstore.Store
	cleanup func()
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) *testServer {
	return setupTestServerWithOptions(t, Options{})
}

func setupTestServerWithOptions(t *testing.T, opts Options) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return testNow }

	st, err := sqlstore.Open(sqlstore.Options{
		Driver: sqlstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
		Now:    now,
	}, logger)
	require.NoError(t, err)

	services := &Services{
		Book: service.NewBookService(st, logger),
		Loan: service.NewLoanService(st, service.LoanPolicy{OverdueDays: 4, Now: now}, logger),
	}

	server := NewServer(st, services, opts, logger)

	return &testServer{
		api:     humatest.Wrap(t, server.API()),
		server:  server,
		store:   st,
		cleanup: func() { _ = st.Close() },
	}
}

// envelope is the decoded response wrapper with the payload left raw.
type envelope struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), "body: %s", resp.Body.String())
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

// decodeData unwraps a successful envelope into T.
func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, resp)
	require.True(t, env.Success, "body: %s", resp.Body.String())

	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// seedBook stores a book directly, bypassing the HTTP surface.
func (ts *testServer) seedBook(t *testing.T, title, author, isbn string) *domain.Book {
	t.Helper()
	book, err := ts.store.SaveBook(context.Background(), &domain.Book{Title: title, Author: author, ISBN: isbn})
	require.NoError(t, err)
	return book
}

// seedLoan stores a loan with an arbitrary date.
func (ts *testServer) seedLoan(t *testing.T, book *domain.Book, customer string, date time.Time, returned bool) *domain.Loan {
	t.Helper()
	loan, err := ts.store.SaveLoan(context.Background(), &domain.Loan{
		Book:          book,
		Customer:      customer,
		CustomerEmail: customer + "@example.com",
		LoanDate:      date,
		Returned:      returned,
	})
	require.NoError(t, err)
	return loan
}

func daysAgo(n int) time.Time {
	return domain.Day(testNow).AddDate(0, 0, -n)
}
