package report

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/repository"
	"github.com/nurlybekov/circulation-service/internal/service/lending"
)

type FeeCalculator interface {
	CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeQuote, error)
}

// Service is a read-only projection over loan and fee data.
type Service struct {
	log     *zap.Logger
	catalog repository.CatalogRepository
	loans   repository.LoanRepository
	fees    FeeCalculator
}

func NewService(catalog repository.CatalogRepository, loans repository.LoanRepository, fees FeeCalculator, log *zap.Logger) *Service {
	return &Service{
		log:     log.Named("report"),
		catalog: catalog,
		loans:   loans,
		fees:    fees,
	}
}

func (s *Service) PatronReport(ctx context.Context, patronID string) (model.PatronReport, error) {
	if !lending.ValidPatronID(patronID) {
		return model.PatronReport{}, errs.ErrInvalidPatron
	}

	loans, err := s.loans.ListLoans(ctx, patronID)
	if err != nil {
		return model.PatronReport{}, err
	}

	// book and fee lookups per loan are independent; fan out and
	// keep results indexed so the report order follows the loans.
	books := make([]model.Book, len(loans))
	quotes := make([]model.FeeQuote, len(loans))
	gg, ctxCancel := errgroup.WithContext(ctx)
	for i, loan := range loans {
		i, loan := i, loan
		gg.Go(func() error {
			book, err := s.catalog.GetBook(ctxCancel, loan.BookID)
			if err != nil {
				return err
			}
			books[i] = book
			if loan.ReturnDate == nil {
				quote, err := s.fees.CalculateLateFee(ctxCancel, patronID, loan.BookID)
				if err != nil {
					return err
				}
				quotes[i] = quote
			}
			return nil
		})
	}
	if err := gg.Wait(); err != nil {
		return model.PatronReport{}, err
	}

	rep := model.PatronReport{
		PatronID:      patronID,
		Borrowed:      []model.BorrowedBook{},
		History:       []model.LoanRecord{},
		TotalLateFees: decimal.Zero,
	}

	for i, loan := range loans {
		if loan.ReturnDate == nil {
			rep.Borrowed = append(rep.Borrowed, model.BorrowedBook{
				BookID:  loan.BookID,
				Title:   books[i].Title,
				DueDate: loan.DueDate,
				Overdue: quotes[i].DaysOverdue > 0,
			})
			rep.TotalLateFees = rep.TotalLateFees.Add(quotes[i].FeeAmount)
			continue
		}

		rep.History = append(rep.History, model.LoanRecord{
			BookID:     loan.BookID,
			Title:      books[i].Title,
			BorrowDate: loan.BorrowDate,
			ReturnDate: *loan.ReturnDate,
		})
	}
	rep.NumBorrowed = len(rep.Borrowed)

	return rep, nil
}
