package lending

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/repository"
)

// maxOpenLoans is the number of copies a patron may hold at once.
// A patron already holding maxOpenLoans is refused the next borrow.
const maxOpenLoans = 5

var patronIDRe = regexp.MustCompile(`^[0-9]{6}$`)

// ValidPatronID reports whether id is a well-formed library card id.
func ValidPatronID(id string) bool {
	return patronIDRe.MatchString(id)
}

type Service struct {
	log     *zap.Logger
	catalog repository.CatalogRepository
	loans   repository.LoanRepository
	now     func() time.Time
}

type Option func(*Service)

// WithNow overrides the service clock. Tests use it to pin time.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(catalog repository.CatalogRepository, loans repository.LoanRepository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:     log.Named("lending"),
		catalog: catalog,
		loans:   loans,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Borrow(ctx context.Context, patronID string, bookID int) (model.LoanConfirmation, error) {
	if !ValidPatronID(patronID) {
		return model.LoanConfirmation{}, errs.ErrInvalidPatron
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return model.LoanConfirmation{}, err
	}
	if book.AvailableCopies <= 0 {
		return model.LoanConfirmation{}, errs.ErrUnavailable
	}

	open, err := s.loans.CountOpenLoans(ctx, patronID)
	if err != nil {
		return model.LoanConfirmation{}, err
	}
	if open >= maxOpenLoans {
		return model.LoanConfirmation{}, errs.ErrLimitExceeded
	}

	borrowDate := s.now()
	dueDate := borrowDate.AddDate(0, 0, LoanPeriodDays)

	loan, err := s.loans.CreateLoan(ctx, patronID, bookID, borrowDate, dueDate)
	if err != nil {
		return model.LoanConfirmation{}, err
	}

	s.log.Info("borrow",
		zap.String("patronId", patronID),
		zap.Int("bookId", bookID),
		zap.String("loanUid", loan.LoanUid),
	)

	return model.LoanConfirmation{
		LoanUid:    loan.LoanUid,
		BookID:     bookID,
		Title:      book.Title,
		BorrowDate: loan.BorrowDate,
		DueDate:    loan.DueDate,
		Message:    fmt.Sprintf("Successfully borrowed %q. Due date: %s.", book.Title, loan.DueDate.Format(time.DateOnly)),
	}, nil
}

func (s *Service) Return(ctx context.Context, patronID string, bookID int) (model.ReturnReceipt, error) {
	if !ValidPatronID(patronID) {
		return model.ReturnReceipt{}, errs.ErrInvalidPatron
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return model.ReturnReceipt{}, err
	}

	returnDate := s.now()
	loan, err := s.loans.CloseLoan(ctx, patronID, bookID, returnDate)
	if err != nil {
		return model.ReturnReceipt{}, err
	}

	receipt := model.ReturnReceipt{
		LoanUid:    loan.LoanUid,
		BookID:     bookID,
		Title:      book.Title,
		ReturnDate: returnDate,
	}
	// Fee is reported here, never charged. Charging is an explicit
	// settlement step.
	if returnDate.After(loan.DueDate) {
		quote := quoteAt(loan.DueDate, returnDate)
		receipt.Fee = &quote
		receipt.Message = fmt.Sprintf("Book successfully returned. Late fees incurred: $%s", quote.FeeAmount.StringFixed(2))
	} else {
		receipt.Message = "Book successfully returned."
	}

	s.log.Info("return",
		zap.String("patronId", patronID),
		zap.Int("bookId", bookID),
		zap.String("loanUid", loan.LoanUid),
	)

	return receipt, nil
}

// CalculateLateFee quotes the fee owed on the patron's loan of the
// book, preferring an open loan and falling back to the most recently
// closed one.
func (s *Service) CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeQuote, error) {
	if !ValidPatronID(patronID) {
		return model.FeeQuote{}, errs.ErrInvalidPatron
	}

	loans, err := s.loans.ListLoans(ctx, patronID)
	if err != nil {
		return model.FeeQuote{}, err
	}

	var found *model.Loan
	for i := range loans {
		if loans[i].BookID != bookID {
			continue
		}
		if loans[i].ReturnDate == nil {
			found = &loans[i]
			break
		}
		if found == nil {
			found = &loans[i] // loans are sorted most recent first
		}
	}
	if found == nil {
		return model.FeeQuote{}, errs.ErrLoanNotFound
	}

	// A fee stops accruing once the book is back.
	asOf := s.now()
	if found.ReturnDate != nil {
		asOf = *found.ReturnDate
	}
	return quoteAt(found.DueDate, asOf), nil
}
