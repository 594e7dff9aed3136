package lending

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurlybekov/circulation-service/internal/model"
)

const (
	// LoanPeriodDays is how long a copy may be out before it is overdue.
	LoanPeriodDays = 14
	// graceDays is the number of overdue days billed at the base rate.
	graceDays = 7
)

var (
	baseDailyFee    = decimal.RequireFromString("0.50")
	overdueDailyFee = decimal.RequireFromString("1.00")
	// MaxLateFee caps any single loan's late fee.
	MaxLateFee = decimal.RequireFromString("15.00")
)

// quoteAt computes the fee owed on a loan at the given instant.
// Deterministic in (dueDate, now); not-yet-due loans owe nothing.
func quoteAt(dueDate, now time.Time) model.FeeQuote {
	daysOverdue := int(now.Sub(dueDate).Hours() / 24)
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	var fee decimal.Decimal
	if daysOverdue <= graceDays {
		fee = baseDailyFee.Mul(decimal.NewFromInt(int64(daysOverdue)))
	} else {
		fee = baseDailyFee.Mul(decimal.NewFromInt(graceDays)).
			Add(overdueDailyFee.Mul(decimal.NewFromInt(int64(daysOverdue - graceDays))))
	}
	if fee.GreaterThan(MaxLateFee) {
		fee = MaxLateFee
	}

	return model.FeeQuote{
		FeeAmount:   fee,
		DaysOverdue: daysOverdue,
	}
}
