package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID              int    `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	Author          string `json:"author" db:"author"`
	ISBN            string `json:"isbn" db:"isbn"`
	TotalCopies     int    `json:"totalCopies" db:"total_copies"`
	AvailableCopies int    `json:"availableCopies" db:"available_copies"`
}

type Loan struct {
	ID         int        `json:"-" db:"id"`
	LoanUid    string     `json:"loanUid" db:"loan_uid"`
	PatronID   string     `json:"patronId" db:"patron_id"`
	BookID     int        `json:"bookId" db:"book_id"`
	BorrowDate time.Time  `json:"borrowDate" db:"borrow_date"`
	DueDate    time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
}

// FeeQuote is derived from a loan's due date and the current time.
// It is never persisted.
type FeeQuote struct {
	FeeAmount   decimal.Decimal `json:"feeAmount"`
	DaysOverdue int             `json:"daysOverdue"`
}

type AddBookRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	ISBN        string `json:"isbn" validate:"required,len=13,numeric"`
	TotalCopies int    `json:"totalCopies" validate:"required,gt=0"`
}

type BorrowRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int    `json:"bookId" validate:"required,gt=0"`
}

type ReturnRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int    `json:"bookId" validate:"required,gt=0"`
}

type LoanConfirmation struct {
	LoanUid    string    `json:"loanUid"`
	BookID     int       `json:"bookId"`
	Title      string    `json:"title"`
	BorrowDate time.Time `json:"borrowDate"`
	DueDate    time.Time `json:"dueDate"`
	Message    string    `json:"message"`
}

type ReturnReceipt struct {
	LoanUid    string    `json:"loanUid"`
	BookID     int       `json:"bookId"`
	Title      string    `json:"title"`
	ReturnDate time.Time `json:"returnDate"`
	Fee        *FeeQuote `json:"fee,omitempty"`
	Message    string    `json:"message"`
}

type PayFeesRequest struct {
	PatronID string `json:"patronId" validate:"required"`
	BookID   int    `json:"bookId" validate:"required,gt=0"`
}

type RefundRequest struct {
	TransactionID string          `json:"transactionId" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
}

type PaymentReceipt struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
}

// PaymentResult is what the payment gateway reports for a charge.
// OK == false is a business decline, distinct from a transport error.
type PaymentResult struct {
	OK            bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

type RefundResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}

type BorrowedBook struct {
	BookID  int       `json:"bookId"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"dueDate"`
	Overdue bool      `json:"overdue"`
}

type LoanRecord struct {
	BookID     int       `json:"bookId"`
	Title      string    `json:"title"`
	BorrowDate time.Time `json:"borrowDate"`
	ReturnDate time.Time `json:"returnDate"`
}

type PatronReport struct {
	PatronID      string          `json:"patronId"`
	Borrowed      []BorrowedBook  `json:"borrowed"`
	NumBorrowed   int             `json:"numBorrowed"`
	TotalLateFees decimal.Decimal `json:"totalLateFees"`
	History       []LoanRecord    `json:"history"`
}
