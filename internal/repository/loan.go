package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
)

//go:generate go run github.com/golang/mock/mockgen -source=loan.go -destination=mocks/loan.go -package=mocks

type LoanRepository interface {
	// CreateLoan inserts a loan and decrements the book's availability
	// in one transaction. Under concurrent borrows of the last copy
	// exactly one caller wins, the rest get ErrUnavailable.
	CreateLoan(ctx context.Context, patronID string, bookID int, borrowDate, dueDate time.Time) (model.Loan, error)
	// CloseLoan sets return_date on the patron's open loan and
	// increments the book's availability in one transaction.
	CloseLoan(ctx context.Context, patronID string, bookID int, returnDate time.Time) (model.Loan, error)
	ListLoans(ctx context.Context, patronID string) ([]model.Loan, error)
	CountOpenLoans(ctx context.Context, patronID string) (int, error)
}

type loanRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewLoanRepository(db *sqlx.DB, log *zap.Logger) (*loanRepository, error) {
	return &loanRepository{
		db:  db,
		log: log.Named("loan-repo"),
	}, nil
}

const loansTableName = `loans`

func (r *loanRepository) CreateLoan(ctx context.Context, patronID string, bookID int, borrowDate, dueDate time.Time) (model.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
update books
    set available_copies = available_copies - 1
where id = $1 and available_copies > 0`, bookID)
	if err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	} else if n == 0 {
		return model.Loan{}, errs.ErrUnavailable
	}

	query, args, err := qb.Insert(loansTableName).
		Columns("loan_uid", "patron_id", "book_id", "borrow_date", "due_date").
		Values(uuid.New(), patronID, bookID, borrowDate, dueDate).
		Suffix("returning id, loan_uid, patron_id, book_id, borrow_date, due_date, return_date").
		ToSql()
	if err != nil {
		return model.Loan{}, err
	}

	var loan model.Loan
	if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
		r.log.Error("CreateLoan", zap.String("q", query), zap.Any("args", args))
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Loan{}, errs.ErrAlreadyBorrowed
		}
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}

	if err := tx.Commit(); err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	return loan, nil
}

func (r *loanRepository) CloseLoan(ctx context.Context, patronID string, bookID int, returnDate time.Time) (model.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	defer tx.Rollback() //nolint:errcheck

	q := fmt.Sprintf(`
update %s
    set return_date = $3
where patron_id = $1 and book_id = $2 and return_date is null
returning id, loan_uid, patron_id, book_id, borrow_date, due_date, return_date`, loansTableName)

	var loan model.Loan
	if err := tx.GetContext(ctx, &loan, q, patronID, bookID, returnDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, errs.ErrNotBorrowed
		}
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}

	res, err := tx.ExecContext(ctx, `
update books
    set available_copies = available_copies + 1
where id = $1 and available_copies < total_copies`, bookID)
	if err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	} else if n == 0 {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, "availability already at total_copies")
	}

	if err := tx.Commit(); err != nil {
		return model.Loan{}, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	return loan, nil
}

func (r *loanRepository) ListLoans(ctx context.Context, patronID string) ([]model.Loan, error) {
	query, args, err := qb.Select("id", "loan_uid", "patron_id", "book_id", "borrow_date", "due_date", "return_date").
		From(loansTableName).
		Where(sq.Eq{"patron_id": patronID}).
		OrderBy("borrow_date desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	var loans []model.Loan
	if err := r.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	return loans, nil
}

func (r *loanRepository) CountOpenLoans(ctx context.Context, patronID string) (int, error) {
	q := `
select count(*) from loans
where patron_id = $1 and return_date is null`

	var count int
	if err := r.db.QueryRowContext(ctx, q, patronID).Scan(&count); err != nil {
		return 0, errors.WithMessage(errs.ErrStorage, err.Error())
	}
	return count, nil
}
