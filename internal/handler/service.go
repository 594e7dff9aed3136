package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/service/catalog"
	"github.com/nurlybekov/circulation-service/internal/service/lending"
	"github.com/nurlybekov/circulation-service/internal/service/payment"
	"github.com/nurlybekov/circulation-service/internal/service/report"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go -package=mocks

type CatalogService interface {
	AddBook(ctx context.Context, req model.AddBookRequest) (model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	SearchBooks(ctx context.Context, term, searchType string) ([]model.Book, error)
}

type LendingService interface {
	Borrow(ctx context.Context, patronID string, bookID int) (model.LoanConfirmation, error)
	Return(ctx context.Context, patronID string, bookID int) (model.ReturnReceipt, error)
	CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeQuote, error)
}

type PaymentService interface {
	PayLateFees(ctx context.Context, patronID string, bookID int) (model.PaymentReceipt, error)
	RefundLateFeePayment(ctx context.Context, transactionID string, amount decimal.Decimal) error
}

type ReportService interface {
	PatronReport(ctx context.Context, patronID string) (model.PatronReport, error)
}

var (
	_ CatalogService = (*catalog.Service)(nil)
	_ LendingService = (*lending.Service)(nil)
	_ PaymentService = (*payment.Service)(nil)
	_ ReportService  = (*report.Service)(nil)
)
