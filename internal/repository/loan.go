package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lendr/lendr/internal/model"
)

// ErrNoOpenLoan is returned when a return is attempted on a book with
// no outstanding loan.
var ErrNoOpenLoan = errors.New("no open loan for book")

// BorrowBook atomically transitions a book from available to unavailable
// and records the loan, all in one transaction. The availability flip is
// a conditional update, so two concurrent borrowers on the same book can
// never both succeed: the loser sees zero rows affected and gets
// ErrBookUnavailable (or ErrBookNotFound if the id is unknown).
func (r *Repository) BorrowBook(ctx context.Context, bookID, userID int64, dueDate time.Time) (*model.Loan, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE books SET available = FALSE WHERE id = $1 AND available = TRUE`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark book unavailable: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing book from a borrowed one.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check book existence: %w", err)
		}
		if !exists {
			return nil, ErrBookNotFound
		}
		return nil, ErrBookUnavailable
	}

	loan := &model.Loan{
		BookID:     bookID,
		UserID:     userID,
		DueDate:    &dueDate,
		BorrowedAt: time.Now().UTC(),
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO loans (book_id, user_id, due_date, borrowed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, loan.BookID, loan.UserID, loan.DueDate, loan.BorrowedAt).Scan(&loan.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit borrow: %w", err)
	}

	return loan, nil
}

// ReturnBook closes the newest open loan on a book and flips the book
// back to available, in one transaction.
func (r *Repository) ReturnBook(ctx context.Context, bookID int64) (*model.Loan, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	loan := &model.Loan{}
	err = tx.QueryRow(ctx, `
		UPDATE loans SET returned_at = $2
		WHERE id = (
			SELECT id FROM loans
			WHERE book_id = $1 AND returned_at IS NULL
			ORDER BY borrowed_at DESC, id DESC
			LIMIT 1
		)
		RETURNING id, book_id, user_id, due_date, borrowed_at, returned_at
	`, bookID, time.Now().UTC()).Scan(
		&loan.ID,
		&loan.BookID,
		&loan.UserID,
		&loan.DueDate,
		&loan.BorrowedAt,
		&loan.ReturnedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No open loan. Report a missing book as such.
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
				return nil, fmt.Errorf("failed to check book existence: %w", err)
			}
			if !exists {
				return nil, ErrBookNotFound
			}
			return nil, ErrNoOpenLoan
		}
		return nil, fmt.Errorf("failed to close loan: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE books SET available = TRUE WHERE id = $1`, bookID); err != nil {
		return nil, fmt.Errorf("failed to mark book available: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	return loan, nil
}

// ListLoansByBook returns all loans for a book, oldest first.
func (r *Repository) ListLoansByBook(ctx context.Context, bookID int64) ([]*model.Loan, error) {
	return r.listLoans(ctx, `
		SELECT id, book_id, user_id, due_date, borrowed_at, returned_at
		FROM loans WHERE book_id = $1
		ORDER BY id
	`, bookID)
}

// listLoans runs a loan query and scans the results.
func (r *Repository) listLoans(ctx context.Context, query string, args ...any) ([]*model.Loan, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		var loan model.Loan
		if err := rows.Scan(&loan.ID, &loan.BookID, &loan.UserID, &loan.DueDate, &loan.BorrowedAt, &loan.ReturnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, &loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loans: %w", err)
	}

	return loans, nil
}
