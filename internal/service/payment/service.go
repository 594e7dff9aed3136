package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/service/lending"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go -package=mocks

// Gateway is the external payment capability. A transport-level error
// is returned as err; a business decline comes back with OK == false.
type Gateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount decimal.Decimal, description string) (model.PaymentResult, error)
	RefundPayment(ctx context.Context, transactionID string, amount decimal.Decimal) (model.RefundResult, error)
}

type FeeCalculator interface {
	CalculateLateFee(ctx context.Context, patronID string, bookID int) (model.FeeQuote, error)
}

type Catalog interface {
	GetBook(ctx context.Context, id int) (model.Book, error)
}

const transactionIDPrefix = "txn_"

type Service struct {
	log     *zap.Logger
	fees    FeeCalculator
	catalog Catalog
	gateway Gateway
}

func NewService(fees FeeCalculator, catalog Catalog, gateway Gateway, log *zap.Logger) *Service {
	return &Service{
		log:     log.Named("payment"),
		fees:    fees,
		catalog: catalog,
		gateway: gateway,
	}
}

// PayLateFees charges the patron's outstanding late fee for a book
// through the gateway. It never retries: on an ambiguous gateway
// outcome the caller decides, since the gateway owns the truth about
// whether money moved.
func (s *Service) PayLateFees(ctx context.Context, patronID string, bookID int) (model.PaymentReceipt, error) {
	if !lending.ValidPatronID(patronID) {
		return model.PaymentReceipt{}, errs.ErrInvalidPatron
	}

	quote, err := s.fees.CalculateLateFee(ctx, patronID, bookID)
	if err != nil {
		return model.PaymentReceipt{}, err
	}
	if quote.FeeAmount.IsZero() {
		return model.PaymentReceipt{}, errs.ErrNoFeeOwed
	}

	book, err := s.catalog.GetBook(ctx, bookID)
	if err != nil {
		return model.PaymentReceipt{}, err
	}

	description := fmt.Sprintf("Late fees for '%s'", book.Title)
	res, err := s.gateway.ProcessPayment(ctx, patronID, quote.FeeAmount, description)
	if err != nil {
		s.log.Error("ProcessPayment", zap.String("patronId", patronID), zap.Error(err))
		return model.PaymentReceipt{}, errors.WithMessage(errs.ErrPaymentFailed, err.Error())
	}
	if !res.OK {
		return model.PaymentReceipt{}, errors.WithMessage(errs.ErrPaymentDeclined, res.Message)
	}

	s.log.Info("payment processed",
		zap.String("patronId", patronID),
		zap.String("transactionId", res.TransactionID),
		zap.String("amount", quote.FeeAmount.StringFixed(2)),
	)

	return model.PaymentReceipt{
		TransactionID: res.TransactionID,
		Amount:        quote.FeeAmount,
		Message:       fmt.Sprintf("Payment successful. %s", res.Message),
	}, nil
}

// RefundLateFeePayment refunds a prior charge. Amount bounds are
// checked before the gateway is touched.
func (s *Service) RefundLateFeePayment(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	if !strings.HasPrefix(transactionID, transactionIDPrefix) {
		return errs.ErrInvalidTransactionID
	}
	if !amount.IsPositive() {
		return errs.ErrAmountNotPositive
	}
	if amount.GreaterThan(lending.MaxLateFee) {
		return errs.ErrAmountExceedsMax
	}

	res, err := s.gateway.RefundPayment(ctx, transactionID, amount)
	if err != nil {
		s.log.Error("RefundPayment", zap.String("transactionId", transactionID), zap.Error(err))
		return errors.WithMessage(errs.ErrRefundFailed, err.Error())
	}
	if !res.OK {
		return errors.WithMessage(errs.ErrRefundFailed, res.Message)
	}

	s.log.Info("refund processed",
		zap.String("transactionId", transactionID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}
