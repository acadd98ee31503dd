package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/lending-server/internal/domain"
	domainerrors "github.com/listenupapp/lending-server/internal/errors"
)

const (
	msgBookNotFoundForISBN = "Book not found for passed isbn"
	msgLoanNotFound        = "Loan not found"
	msgLoanAlreadyReturned = "Loan already returned"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createLoan",
		Method:        http.MethodPost,
		Path:          "/api/v1/loans",
		Summary:       "Lend a book",
		Description:   "Opens a loan dated today for the book with the given ISBN. A book can only have one open loan.",
		Tags:          []string{"Loans"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "listLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans",
		Summary:     "Find loans",
		Description: "Returns a page of loans whose book ISBN matches isbn OR whose customer matches customer",
		Tags:        []string{"Loans"},
	}, s.handleListLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listLateLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/late",
		Summary:     "List late loans",
		Description: "Returns every open loan past the overdue period, oldest first",
		Tags:        []string{"Loans"},
	}, s.handleListLateLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{id}",
		Summary:     "Get loan",
		Description: "Returns a loan by ID",
		Tags:        []string{"Loans"},
	}, s.handleGetLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnLoan",
		Method:      http.MethodPatch,
		Path:        "/api/v1/loans/{id}",
		Summary:     "Update loan",
		Description: "Marks a loan returned. A returned loan cannot be reopened.",
		Tags:        []string{"Loans"},
	}, s.handleUpdateLoan)
}

// LoanRequest is the body for lending a book.
type LoanRequest struct {
	ISBN     string `json:"isbn,omitempty" validate:"required,notblank" doc:"ISBN of the book to lend"`
	Customer string `json:"customer,omitempty" validate:"required,notblank,max=200" doc:"Borrower name"`
	Email    string `json:"email,omitempty" validate:"omitempty,email" doc:"Borrower email, used for late notices"`
}

// CreateLoanInput contains parameters for lending a book.
type CreateLoanInput struct {
	Body LoanRequest
}

// LoanOutput wraps a single loan for Huma.
type LoanOutput struct {
	Body LoanResponse
}

// ListLoansInput contains the OR filter and paging for loans.
type ListLoansInput struct {
	ISBN     string `query:"isbn" doc:"Book ISBN"`
	Customer string `query:"customer" doc:"Borrower name"`
	PageQuery
}

// LateLoansOutput wraps the late loan list for Huma.
type LateLoansOutput struct {
	Body []LoanResponse
}

// LoanIDInput identifies a loan by path.
type LoanIDInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// LoanPatch is the body for updating a loan.
type LoanPatch struct {
	Returned *bool `json:"returned,omitempty" validate:"required" doc:"Whether the book came back"`
}

// UpdateLoanInput contains parameters for updating a loan.
type UpdateLoanInput struct {
	ID   string `path:"id" doc:"Loan ID"`
	Body LoanPatch
}

func (s *Server) handleCreateLoan(ctx context.Context, input *CreateLoanInput) (*LoanOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	book, found, err := s.services.Book.GetByISBN(ctx, input.Body.ISBN)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domainerrors.InvalidArgument(msgBookNotFoundForISBN)
	}

	loan, err := s.services.Loan.Save(ctx, &domain.Loan{
		Book:          book,
		Customer:      input.Body.Customer,
		CustomerEmail: input.Body.Email,
		LoanDate:      s.services.Loan.Today(),
	})
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: toLoanResponse(loan)}, nil
}

func (s *Server) handleListLoans(ctx context.Context, input *ListLoansInput) (*LoanPageOutput, error) {
	filter := domain.LoanFilter{ISBN: input.ISBN, Customer: input.Customer}

	page, err := s.services.Loan.Find(ctx, filter, input.Request())
	if err != nil {
		return nil, err
	}

	return &LoanPageOutput{Body: toPageResponse(page, toLoanResponse)}, nil
}

func (s *Server) handleListLateLoans(ctx context.Context, _ *struct{}) (*LateLoansOutput, error) {
	loans, err := s.services.Loan.GetAllLateLoans(ctx)
	if err != nil {
		return nil, err
	}
	return &LateLoansOutput{Body: toLoanResponses(loans)}, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *LoanIDInput) (*LoanOutput, error) {
	loan, err := s.requireLoan(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &LoanOutput{Body: toLoanResponse(loan)}, nil
}

func (s *Server) handleUpdateLoan(ctx context.Context, input *UpdateLoanInput) (*LoanOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	loan, err := s.requireLoan(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	returned := *input.Body.Returned
	if loan.Returned && !returned {
		return nil, domainerrors.Conflict(msgLoanAlreadyReturned)
	}
	loan.Returned = returned

	updated, err := s.services.Loan.Update(ctx, loan)
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: toLoanResponse(updated)}, nil
}

// requireLoan loads a loan or fails with NotFound.
func (s *Server) requireLoan(ctx context.Context, id string) (*domain.Loan, error) {
	loan, found, err := s.services.Loan.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domainerrors.NotFound(msgLoanNotFound)
	}
	return loan, nil
}
