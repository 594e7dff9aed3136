package payment_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/service/payment"
	"github.com/nurlybekov/circulation-service/internal/service/payment/mocks"
)

func newService(t *testing.T) (*payment.Service, *mocks.MockFeeCalculator, *mocks.MockCatalog, *mocks.MockGateway) {
	t.Helper()
	c := gomock.NewController(t)
	fees := mocks.NewMockFeeCalculator(c)
	catalog := mocks.NewMockCatalog(c)
	gateway := mocks.NewMockGateway(c)
	svc := payment.NewService(fees, catalog, gateway, zap.NewExample().Named("test"))
	return svc, fees, catalog, gateway
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_PayLateFees(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful payment charges exact amount and description", func(t *testing.T) {
		t.Parallel()
		svc, fees, catalog, gateway := newService(t)
		fees.EXPECT().CalculateLateFee(ctx, "123456", 1).
			Return(model.FeeQuote{FeeAmount: amount("1.50"), DaysOverdue: 3}, nil)
		catalog.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "book"}, nil)
		gateway.EXPECT().ProcessPayment(ctx, "123456", amount("1.50"), "Late fees for 'book'").
			Return(model.PaymentResult{OK: true, TransactionID: "txn_123456", Message: "Payment of $1.50 processed successfully"}, nil)

		receipt, err := svc.PayLateFees(ctx, "123456", 1)
		require.NoError(t, err)
		require.Equal(t, "txn_123456", receipt.TransactionID)
		require.Equal(t, "1.50", receipt.Amount.StringFixed(2))
		require.Contains(t, receipt.Message, "Payment successful")
	})

	t.Run("declined by gateway", func(t *testing.T) {
		t.Parallel()
		svc, fees, catalog, gateway := newService(t)
		fees.EXPECT().CalculateLateFee(ctx, "123456", 1).
			Return(model.FeeQuote{FeeAmount: amount("1.50"), DaysOverdue: 3}, nil)
		catalog.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "book"}, nil)
		gateway.EXPECT().ProcessPayment(ctx, "123456", amount("1.50"), "Late fees for 'book'").
			Return(model.PaymentResult{OK: false, Message: "insufficient funds"}, nil)

		_, err := svc.PayLateFees(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrPaymentDeclined)
		require.Contains(t, err.Error(), "insufficient funds")
	})

	t.Run("transport error is not a decline", func(t *testing.T) {
		t.Parallel()
		svc, fees, catalog, gateway := newService(t)
		fees.EXPECT().CalculateLateFee(ctx, "123456", 1).
			Return(model.FeeQuote{FeeAmount: amount("1.50"), DaysOverdue: 3}, nil)
		catalog.EXPECT().GetBook(ctx, 1).Return(model.Book{ID: 1, Title: "book"}, nil)
		gateway.EXPECT().ProcessPayment(ctx, "123456", amount("1.50"), "Late fees for 'book'").
			Return(model.PaymentResult{}, errors.New("connection reset"))

		_, err := svc.PayLateFees(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrPaymentFailed)
		require.NotErrorIs(t, err, errs.ErrPaymentDeclined)
	})

	t.Run("invalid patron id, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newService(t)
		_, err := svc.PayLateFees(ctx, "12345", 1)
		require.ErrorIs(t, err, errs.ErrInvalidPatron)
	})

	t.Run("zero fee owed, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, fees, _, _ := newService(t)
		fees.EXPECT().CalculateLateFee(ctx, "123456", 1).
			Return(model.FeeQuote{FeeAmount: decimal.Zero, DaysOverdue: 0}, nil)

		_, err := svc.PayLateFees(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrNoFeeOwed)
	})

	t.Run("no loan for book", func(t *testing.T) {
		t.Parallel()
		svc, fees, _, _ := newService(t)
		fees.EXPECT().CalculateLateFee(ctx, "123456", 1).
			Return(model.FeeQuote{}, errs.ErrLoanNotFound)

		_, err := svc.PayLateFees(ctx, "123456", 1)
		require.ErrorIs(t, err, errs.ErrLoanNotFound)
	})
}

func TestService_RefundLateFeePayment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful refund calls gateway with exact args", func(t *testing.T) {
		t.Parallel()
		svc, _, _, gateway := newService(t)
		gateway.EXPECT().RefundPayment(ctx, "txn_123456", amount("1.50")).
			Return(model.RefundResult{OK: true, Message: "Refund of $1.50 processed successfully"}, nil)

		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("1.50"))
		require.NoError(t, err)
	})

	t.Run("invalid transaction id, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newService(t)
		err := svc.RefundLateFeePayment(ctx, "trans_123456", amount("1.50"))
		require.ErrorIs(t, err, errs.ErrInvalidTransactionID)
	})

	t.Run("negative amount, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newService(t)
		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("-1.50"))
		require.ErrorIs(t, err, errs.ErrAmountNotPositive)
	})

	t.Run("zero amount, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newService(t)
		err := svc.RefundLateFeePayment(ctx, "txn_123456", decimal.Zero)
		require.ErrorIs(t, err, errs.ErrAmountNotPositive)
	})

	t.Run("amount above maximum late fee, gateway never called", func(t *testing.T) {
		t.Parallel()
		svc, _, _, _ := newService(t)
		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("20.50"))
		require.ErrorIs(t, err, errs.ErrAmountExceedsMax)
	})

	t.Run("maximum late fee is refundable", func(t *testing.T) {
		t.Parallel()
		svc, _, _, gateway := newService(t)
		gateway.EXPECT().RefundPayment(ctx, "txn_123456", amount("15.00")).
			Return(model.RefundResult{OK: true, Message: "ok"}, nil)

		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("15.00"))
		require.NoError(t, err)
	})

	t.Run("gateway rejection surfaces as refund failure", func(t *testing.T) {
		t.Parallel()
		svc, _, _, gateway := newService(t)
		gateway.EXPECT().RefundPayment(ctx, "txn_123456", amount("1.50")).
			Return(model.RefundResult{OK: false, Message: "unknown transaction"}, nil)

		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("1.50"))
		require.ErrorIs(t, err, errs.ErrRefundFailed)
		require.Contains(t, err.Error(), "unknown transaction")
	})

	t.Run("transport error surfaces as refund failure", func(t *testing.T) {
		t.Parallel()
		svc, _, _, gateway := newService(t)
		gateway.EXPECT().RefundPayment(ctx, "txn_123456", amount("1.50")).
			Return(model.RefundResult{}, errors.New("timeout"))

		err := svc.RefundLateFeePayment(ctx, "txn_123456", amount("1.50"))
		require.ErrorIs(t, err, errs.ErrRefundFailed)
	})
}
