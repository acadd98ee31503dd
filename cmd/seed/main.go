// Package main seeds the lending database with a demo catalog and, optionally, back-dated loans.
//
// It reads the same configuration as the server (flags, environment, .env).
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed --with-loans   # Also lend some books, a few of them late
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/listenupapp/lending-server/internal/config"
	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
	"github.com/listenupapp/lending-server/internal/logger"
	"github.com/listenupapp/lending-server/internal/service"
	"github.com/listenupapp/lending-server/internal/store/sqlstore"
)

var demoBooks = []domain.Book{
	{Title: "Dom Casmurro", Author: "Machado de Assis", ISBN: "978-8535910667"},
	{Title: "Grande Sertão: Veredas", Author: "João Guimarães Rosa", ISBN: "978-8535908679"},
	{Title: "A Hora da Estrela", Author: "Clarice Lispector", ISBN: "978-8532508126"},
	{Title: "Vidas Secas", Author: "Graciliano Ramos", ISBN: "978-8501067340"},
	{Title: "O Cortiço", Author: "Aluísio Azevedo", ISBN: "978-8508133710"},
	{Title: "Capitães da Areia", Author: "Jorge Amado", ISBN: "978-8535914061"},
}

var demoCustomers = []string{"Ana", "Bruno", "Carla", "Davi", "Elisa"}

func main() {
	// Only --with-loans belongs to the seed; every other argument goes to the shared config loader.
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	withLoans := fs.Bool("with-loans", false, "Lend some of the seeded books with back-dated loans")
	args, rest := splitArgs(os.Args[1:])
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := config.Load(rest)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(logger.Config{Level: logger.ParseLevel(cfg.Logger.Level), Environment: cfg.App.Environment})

	fmt.Printf("Opening %s database\n", cfg.Database.Driver)

	s, err := sqlstore.Open(sqlstore.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN()}, lg.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	books := service.NewBookService(s, lg.Logger)
	loans := service.NewLoanService(s, service.LoanPolicy{OverdueDays: cfg.Loans.OverdueDays}, lg.Logger)

	seeded := seedBooks(ctx, books)
	fmt.Printf("Catalog holds %d demo books\n", len(seeded))

	if *withLoans {
		n := seedLoans(ctx, loans, seeded)
		fmt.Printf("Created %d loans\n", n)
	}

	fmt.Println("Done")
}

// splitArgs separates the seed's own flags from those meant for config.Load.
func splitArgs(args []string) (own, rest []string) {
	for _, a := range args {
		if a == "--with-loans" || a == "-with-loans" {
			own = append(own, a)
			continue
		}
		rest = append(rest, a)
	}
	return own, rest
}

// seedBooks saves every demo book, reusing the ones already registered.
func seedBooks(ctx context.Context, books *service.BookService) []*domain.Book {
	out := make([]*domain.Book, 0, len(demoBooks))
	for _, b := range demoBooks {
		book := b
		saved, err := books.Save(ctx, &book)
		if domainerrors.Is(err, domainerrors.ErrDuplicateKey) {
			existing, found, err := books.GetByISBN(ctx, book.ISBN)
			if err != nil || !found {
				log.Printf("  Skipping %s: %v", book.ISBN, err)
				continue
			}
			fmt.Printf("  Exists: %s\n", existing.Title)
			out = append(out, existing)
			continue
		}
		if err != nil {
			log.Printf("  Failed to save %s: %v", book.ISBN, err)
			continue
		}
		fmt.Printf("  Created: %s (%s)\n", saved.Title, saved.ID)
		out = append(out, saved)
	}
	return out
}

// seedLoans lends about half of books, dated up to ten days back so some are late.
func seedLoans(ctx context.Context, loans *service.LoanService, books []*domain.Book) int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	created := 0

	for _, book := range books {
		if rng.Intn(2) == 0 {
			continue
		}

		customer := demoCustomers[rng.Intn(len(demoCustomers))]
		loan := &domain.Loan{
			Book:          book,
			Customer:      customer,
			CustomerEmail: fmt.Sprintf("%s@example.com", customer),
			LoanDate:      loans.Today().AddDate(0, 0, -rng.Intn(11)),
		}

		saved, err := loans.Save(ctx, loan)
		if domainerrors.Is(err, domainerrors.ErrBusiness) {
			fmt.Printf("  Already loaned: %s\n", book.Title)
			continue
		}
		if err != nil {
			log.Printf("  Failed to lend %s: %v", book.Title, err)
			continue
		}

		fmt.Printf("  Lent %s to %s on %s\n", book.Title, saved.Customer, domain.FormatDate(saved.LoanDate))
		created++
	}

	return created
}
