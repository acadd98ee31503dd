package domain

import "time"

// Loan associates one Book with a borrower. A loan is open until Returned is set.
// At most one open loan may exist per book.
type Loan struct {
	Entity
	Book          *Book     `json:"book"`
	Customer      string    `json:"customer"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	LoanDate      time.Time `json:"loan_date"` // calendar day, see Day
	Returned      bool      `json:"returned"`
}

// IsOpen reports whether the loan has not been returned yet.
func (l *Loan) IsOpen() bool {
	return !l.Returned
}

// BookID returns the referenced book's ID, or "" when no book is set.
func (l *Loan) BookID() string {
	if l.Book == nil {
		return ""
	}
	return l.Book.ID
}

// IsLate reports whether an open loan was taken on or before cutoff.
func (l *Loan) IsLate(cutoff time.Time) bool {
	return l.IsOpen() && !Day(l.LoanDate).After(Day(cutoff))
}

// LoanFilter selects loans whose book ISBN matches OR whose customer matches.
type LoanFilter struct {
	ISBN     string
	Customer string
}

// OverdueCutoff returns the latest loan date still considered overdue on the day of now.
func OverdueCutoff(now time.Time, overdueDays int) time.Time {
	return Day(now).AddDate(0, 0, -overdueDays)
}
