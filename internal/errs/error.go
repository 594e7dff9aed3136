package errs

import (
	"errors"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidPatron   = errors.New("invalid patron id, must be exactly 6 digits")
	ErrNotFound        = errors.New("book not found")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrDuplicateISBN   = errors.New("a book with this isbn already exists")
	ErrUnavailable     = errors.New("this book is currently not available")
	ErrLimitExceeded   = errors.New("maximum borrowing limit of 5 books reached")
	ErrAlreadyBorrowed = errors.New("book is already borrowed by this patron")
	ErrNotBorrowed     = errors.New("book is not borrowed by this patron")
	ErrStorage         = errors.New("storage error")

	ErrNoFeeOwed            = errors.New("no late fee owed")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrPaymentFailed        = errors.New("payment error")
	ErrInvalidTransactionID = errors.New("invalid transaction id")
	ErrAmountNotPositive    = errors.New("amount must be greater than 0")
	ErrAmountExceedsMax     = errors.New("amount exceeds maximum late fee")
	ErrRefundFailed         = errors.New("refund failed")
)
