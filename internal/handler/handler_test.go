package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/handler"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/pkg/kafka"
	"github.com/nurlybekov/circulation-service/pkg/validate"

	service_mocks "github.com/nurlybekov/circulation-service/internal/handler/mocks"
)

func TestHandler_Borrow(t *testing.T) {
	t.Parallel()
	type input struct {
		body     string
		patronID string
		bookID   int
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLendingService, inp input)

	borrowDate := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{
						LoanUid:    "8a9f1bd2-6c5e-4f0e-9d2a-3c4b5a6d7e8f",
						BookID:     3,
						Title:      "The Go Programming Language",
						BorrowDate: borrowDate,
						DueDate:    borrowDate.AddDate(0, 0, 14),
						Message:    `Successfully borrowed "The Go Programming Language". Due date: 2025-03-15.`,
					}, nil)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"loanUid":"8a9f1bd2-6c5e-4f0e-9d2a-3c4b5a6d7e8f","bookId":3,"title":"The Go Programming Language","borrowDate":"2025-03-01T10:00:00Z","dueDate":"2025-03-15T10:00:00Z","message":"Successfully borrowed \"The Go Programming Language\". Due date: 2025-03-15."}`,
			},
			wantErr: false,
		},
		{
			name: "err. invalid patron",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{}, errs.ErrInvalidPatron)
			},
			input: input{
				body:     `{"patronId":"12345a","bookId":3}`,
				patronID: "12345a",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid patron id, must be exactly 6 digits"}`,
			},
			wantErr: true,
		},
		{
			name: "err. book not found",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{}, errs.ErrNotFound)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":99}`,
				patronID: "123456",
				bookID:   99,
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"book not found"}`,
			},
			wantErr: true,
		},
		{
			name: "err. no copies available",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{}, errs.ErrUnavailable)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"this book is currently not available"}`,
			},
			wantErr: true,
		},
		{
			name: "err. borrow limit reached",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{}, errs.ErrLimitExceeded)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"maximum borrowing limit of 5 books reached"}`,
			},
			wantErr: true,
		},
		{
			name: "err. internal",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					Borrow(context.Background(), inp.patronID, inp.bookID).
					Return(model.LoanConfirmation{}, errors.New("db internal"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"db internal"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(nil, svc, nil, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/loans", h.Borrow)

			r := httptest.NewRequest(http.MethodPost, "/loans", strings.NewReader(tt.input.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_PayLateFees(t *testing.T) {
	t.Parallel()
	type input struct {
		body     string
		patronID string
		bookID   int
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockPaymentService, inp input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					PayLateFees(context.Background(), inp.patronID, inp.bookID).
					Return(model.PaymentReceipt{
						TransactionID: "txn_9f8e7d6c",
						Amount:        decimal.RequireFromString("1.5"),
						Message:       "Payment successful. Charge accepted.",
					}, nil)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"transactionId":"txn_9f8e7d6c","amount":"1.5","message":"Payment successful. Charge accepted."}`,
			},
			wantErr: false,
		},
		{
			name: "err. payment declined",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					PayLateFees(context.Background(), inp.patronID, inp.bookID).
					Return(model.PaymentReceipt{}, errors.WithMessage(errs.ErrPaymentDeclined, "insufficient funds"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusPaymentRequired,
				expectedBody: `{"message":"insufficient funds: payment declined"}`,
			},
			wantErr: true,
		},
		{
			name: "err. gateway unreachable",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					PayLateFees(context.Background(), inp.patronID, inp.bookID).
					Return(model.PaymentReceipt{}, errors.WithMessage(errs.ErrPaymentFailed, "gateway unreachable"))
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusBadGateway,
				expectedBody: `{"message":"gateway unreachable: payment error"}`,
			},
			wantErr: true,
		},
		{
			name: "err. no fee owed",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					PayLateFees(context.Background(), inp.patronID, inp.bookID).
					Return(model.PaymentReceipt{}, errs.ErrNoFeeOwed)
			},
			input: input{
				body:     `{"patronId":"123456","bookId":3}`,
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"no late fee owed"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockPaymentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(nil, nil, svc, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/fees/pay", h.PayLateFees)

			r := httptest.NewRequest(http.MethodPost, "/fees/pay", strings.NewReader(tt.input.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_GetLateFee(t *testing.T) {
	t.Parallel()
	type input struct {
		patronID string
		bookID   int
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockLendingService, inp input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					CalculateLateFee(context.Background(), inp.patronID, inp.bookID).
					Return(model.FeeQuote{
						FeeAmount:   decimal.RequireFromString("1.5"),
						DaysOverdue: 3,
					}, nil)
			},
			input: input{
				patronID: "123456",
				bookID:   3,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"feeAmount":"1.5","daysOverdue":3}`,
			},
			wantErr: false,
		},
		{
			name: "ok. nothing owed",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					CalculateLateFee(context.Background(), inp.patronID, inp.bookID).
					Return(model.FeeQuote{FeeAmount: decimal.Zero, DaysOverdue: 0}, nil)
			},
			input: input{
				patronID: "123456",
				bookID:   5,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"feeAmount":"0","daysOverdue":0}`,
			},
			wantErr: false,
		},
		{
			name: "err. loan not found",
			mockBehavior: func(r *service_mocks.MockLendingService, inp input) {
				r.EXPECT().
					CalculateLateFee(context.Background(), inp.patronID, inp.bookID).
					Return(model.FeeQuote{}, errs.ErrLoanNotFound)
			},
			input: input{
				patronID: "123456",
				bookID:   42,
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"loan not found"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(nil, svc, nil, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.GET("/patrons/:patronId/books/:bookId/fee", h.GetLateFee)

			r := httptest.NewRequest(http.MethodGet,
				"/patrons/"+tt.input.patronID+"/books/"+strconv.Itoa(tt.input.bookID)+"/fee", http.NoBody)
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_RefundLateFeePayment(t *testing.T) {
	t.Parallel()
	type input struct {
		body          string
		transactionID string
		amount        decimal.Decimal
	}
	type response struct {
		expectedCode int
		expectedBody string
	}
	type mockBehavior func(r *service_mocks.MockPaymentService, inp input)

	var tests = []struct {
		name         string
		mockBehavior mockBehavior
		input        input
		response     response
		wantErr      bool
	}{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					RefundLateFeePayment(context.Background(), inp.transactionID, decimalEq{inp.amount}).
					Return(nil)
			},
			input: input{
				body:          `{"transactionId":"txn_9f8e7d6c","amount":"1.5"}`,
				transactionID: "txn_9f8e7d6c",
				amount:        decimal.RequireFromString("1.5"),
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"message":"Refund processed successfully"}`,
			},
			wantErr: false,
		},
		{
			name: "err. amount exceeds maximum",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					RefundLateFeePayment(context.Background(), inp.transactionID, decimalEq{inp.amount}).
					Return(errs.ErrAmountExceedsMax)
			},
			input: input{
				body:          `{"transactionId":"txn_9f8e7d6c","amount":"20.5"}`,
				transactionID: "txn_9f8e7d6c",
				amount:        decimal.RequireFromString("20.5"),
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"amount exceeds maximum late fee"}`,
			},
			wantErr: true,
		},
		{
			name: "err. unknown transaction prefix",
			mockBehavior: func(r *service_mocks.MockPaymentService, inp input) {
				r.EXPECT().
					RefundLateFeePayment(context.Background(), inp.transactionID, decimalEq{inp.amount}).
					Return(errs.ErrInvalidTransactionID)
			},
			input: input{
				body:          `{"transactionId":"trans_9f8e7d6c","amount":"1.5"}`,
				transactionID: "trans_9f8e7d6c",
				amount:        decimal.RequireFromString("1.5"),
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"invalid transaction id"}`,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockPaymentService(c)
			log := zap.NewExample().Named("test")
			h := handler.New(nil, nil, svc, nil, nil, log)

			e := echo.New()
			e.Validator = validate.NewCustomValidator()
			e.POST("/fees/refund", h.RefundLateFeePayment)

			r := httptest.NewRequest(http.MethodPost, "/fees/refund", strings.NewReader(tt.input.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()

			tt.mockBehavior(svc, tt.input)
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

// captureQueue records the last enqueued event.
type captureQueue struct {
	topic string
	event kafka.LoanEvent
}

func (q *captureQueue) Enqueue(topic string, v any) error {
	q.topic = topic
	q.event, _ = v.(kafka.LoanEvent)
	return nil
}

func TestHandler_Return_EnqueuesLoanEvent(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLendingService(c)
	queue := &captureQueue{}
	h := handler.New(nil, svc, nil, nil, queue, zap.NewExample().Named("test"))

	returnDate := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.EXPECT().
		Return(context.Background(), "123456", 3).
		Return(model.ReturnReceipt{
			LoanUid:    "8a9f1bd2-6c5e-4f0e-9d2a-3c4b5a6d7e8f",
			BookID:     3,
			Title:      "The Go Programming Language",
			ReturnDate: returnDate,
			Message:    "Book successfully returned.",
		}, nil)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	e.POST("/loans/return", h.Return)

	r := httptest.NewRequest(http.MethodPost, "/loans/return", strings.NewReader(`{"patronId":"123456","bookId":3}`))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, kafka.LoanEventsTopic, queue.topic)
	// event must carry the loan uid so RETURNED correlates with BORROWED
	require.Equal(t, "8a9f1bd2-6c5e-4f0e-9d2a-3c4b5a6d7e8f", queue.event.LoanUid)
	require.Equal(t, kafka.LoanReturned, queue.event.Action)
	require.Equal(t, "123456", queue.event.PatronID)
	require.Equal(t, 3, queue.event.BookID)
	require.Equal(t, returnDate, queue.event.At)
}

// decimalEq matches a decimal argument by numeric value rather than
// internal representation.
type decimalEq struct {
	want decimal.Decimal
}

func (m decimalEq) Matches(x interface{}) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalEq) String() string {
	return "decimal equal to " + m.want.String()
}
