package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/pkg/kafka"
	md "github.com/nurlybekov/circulation-service/pkg/middleware"
	"github.com/nurlybekov/circulation-service/pkg/validate"
)

type Handler struct {
	catalogSvc CatalogService
	lendingSvc LendingService
	paymentSvc PaymentService
	reportSvc  ReportService
	queue      Enqueuer
	log        *zap.Logger
}

func New(catalogSvc CatalogService, lendingSvc LendingService, paymentSvc PaymentService, reportSvc ReportService, queue Enqueuer, log *zap.Logger) *Handler {
	if queue == nil {
		queue = noopEnqueuer{}
	}
	return &Handler{
		catalogSvc: catalogSvc,
		lendingSvc: lendingSvc,
		paymentSvc: paymentSvc,
		reportSvc:  reportSvc,
		queue:      queue,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/books", h.AddBook)
	api.GET("/books", h.SearchBooks)
	api.GET("/books/:id", h.GetBook)

	api.POST("/loans", h.Borrow)
	api.POST("/loans/return", h.Return)

	api.GET("/patrons/:patronId/books/:bookId/fee", h.GetLateFee)
	api.GET("/patrons/:patronId/report", h.PatronReport)

	api.POST("/fees/pay", h.PayLateFees)
	api.POST("/fees/refund", h.RefundLateFeePayment)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) AddBook(c echo.Context) error {
	var req model.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	book, err := h.catalogSvc.AddBook(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrDuplicateISBN):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	book, err := h.catalogSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) SearchBooks(c echo.Context) error {
	term := c.QueryParam("term")
	searchType := c.QueryParam("type")
	if term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("term is required"))
	}
	if searchType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("type is required"))
	}

	books, err := h.catalogSvc.SearchBooks(c.Request().Context(), term, searchType)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) Borrow(c echo.Context) error {
	var req model.BorrowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	conf, err := h.lendingSvc.Borrow(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidPatron):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrUnavailable),
			errors.Is(err, errs.ErrLimitExceeded),
			errors.Is(err, errs.ErrAlreadyBorrowed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.queue.Enqueue(kafka.LoanEventsTopic, kafka.LoanEvent{
		LoanUid:  conf.LoanUid,
		PatronID: req.PatronID,
		BookID:   req.BookID,
		Action:   kafka.LoanBorrowed,
		At:       conf.BorrowDate,
	}); err != nil {
		h.log.Error("enqueue loan event", zap.Error(err))
	}

	return c.JSON(http.StatusOK, conf)
}

func (h *Handler) Return(c echo.Context) error {
	var req model.ReturnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	receipt, err := h.lendingSvc.Return(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidPatron):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrNotBorrowed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.queue.Enqueue(kafka.LoanEventsTopic, kafka.LoanEvent{
		LoanUid:  receipt.LoanUid,
		PatronID: req.PatronID,
		BookID:   req.BookID,
		Action:   kafka.LoanReturned,
		At:       receipt.ReturnDate,
	}); err != nil {
		h.log.Error("enqueue loan event", zap.Error(err))
	}

	return c.JSON(http.StatusOK, receipt)
}

func (h *Handler) GetLateFee(c echo.Context) error {
	patronID := c.Param("patronId")
	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("bookId is invalid"))
	}

	quote, err := h.lendingSvc.CalculateLateFee(c.Request().Context(), patronID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidPatron):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrLoanNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *Handler) PatronReport(c echo.Context) error {
	patronID := c.Param("patronId")

	rep, err := h.reportSvc.PatronReport(c.Request().Context(), patronID)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidPatron) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) PayLateFees(c echo.Context) error {
	var req model.PayFeesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	receipt, err := h.paymentSvc.PayLateFees(c.Request().Context(), req.PatronID, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidPatron):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrLoanNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, errs.ErrNoFeeOwed):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, errs.ErrPaymentDeclined):
			return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, errs.ErrPaymentFailed):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, receipt)
}

func (h *Handler) RefundLateFeePayment(c echo.Context) error {
	var req model.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.paymentSvc.RefundLateFeePayment(c.Request().Context(), req.TransactionID, req.Amount); err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidTransactionID),
			errors.Is(err, errs.ErrAmountNotPositive),
			errors.Is(err, errs.ErrAmountExceedsMax):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrRefundFailed):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Refund processed successfully"})
}
