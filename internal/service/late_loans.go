package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/lending-server/internal/domain"
)

// DefaultLateLoanMessage is sent to borrowers with an overdue loan.
const DefaultLateLoanMessage = "Attention! You have an overdue loan. Please return the book as soon as possible."

// Notifier delivers an overdue notice for one loan.
type Notifier interface {
	NotifyLateLoan(ctx context.Context, loan *domain.Loan, message string) error
}

// LogNotifier records overdue notices in the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs every notice.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// NotifyLateLoan implements Notifier.
func (n *LogNotifier) NotifyLateLoan(_ context.Context, loan *domain.Loan, message string) error {
	n.logger.Info("late loan notice",
		"loan_id", loan.ID,
		"book_id", loan.BookID(),
		"customer", loan.Customer,
		"email", loan.CustomerEmail,
		"loan_date", domain.FormatDate(loan.LoanDate),
		"message", message,
	)
	return nil
}

// LateLoanNotifier sends a notice to every borrower holding an overdue loan.
type LateLoanNotifier struct {
	loans    *LoanService
	notifier Notifier
	message  string
	logger   *slog.Logger
}

// NewLateLoanNotifier creates a late-loan notifier. An empty message uses DefaultLateLoanMessage.
func NewLateLoanNotifier(loans *LoanService, notifier Notifier, message string, logger *slog.Logger) *LateLoanNotifier {
	if message == "" {
		message = DefaultLateLoanMessage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LateLoanNotifier{
		loans:    loans,
		notifier: notifier,
		message:  message,
		logger:   logger,
	}
}

// Run notifies every late loan that has an email address and returns how many notices were sent.
// A failed notice is logged and skipped.
func (n *LateLoanNotifier) Run(ctx context.Context) (int, error) {
	late, err := n.loans.GetAllLateLoans(ctx)
	if err != nil {
		return 0, err
	}

	var sent, skipped, failed int
	for _, loan := range late {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if loan.CustomerEmail == "" {
			skipped++
			continue
		}
		if err := n.notifier.NotifyLateLoan(ctx, loan, n.message); err != nil {
			failed++
			n.logger.Warn("failed to send late loan notice", "loan_id", loan.ID, "error", err)
			continue
		}
		sent++
	}

	n.logger.Info("late loan check complete",
		"late", len(late),
		"sent", sent,
		"skipped", skipped,
		"failed", failed,
	)
	return sent, nil
}
