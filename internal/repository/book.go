package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lendr/lendr/internal/model"
)

// Common errors for book repository operations.
var (
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book not available")
)

const bookColumns = `id, title, author, publisher, category, available, created_at`

// CreateBook inserts a new book and fills in the store-assigned id.
// Books are always created available, regardless of caller input.
func (r *Repository) CreateBook(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (title, author, publisher, category, available, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		book.Title,
		book.Author,
		book.Publisher,
		book.Category,
		book.AddedAt,
	).Scan(&book.ID)

	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	book.Available = true
	return nil
}

// GetBookByID retrieves a book by its id.
func (r *Repository) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book by id: %w", err)
	}

	return book, nil
}

// DeleteBook removes a book row. Loans referencing it are removed by
// the cascading foreign key.
func (r *Repository) DeleteBook(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBookNotFound
	}

	return nil
}

// ListBooksByAvailability returns books filtered by the availability flag.
func (r *Repository) ListBooksByAvailability(ctx context.Context, available bool) ([]*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE available = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, available)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

// ListUnavailableBooksWithLoans returns every unavailable book together
// with the loans referencing it. The admin catalogue view uses this to
// show who has a book out and when it is due back.
func (r *Repository) ListUnavailableBooksWithLoans(ctx context.Context) ([]*model.BookWithLoans, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE available = FALSE ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unavailable books: %w", err)
	}
	defer rows.Close()

	var books []*model.BookWithLoans
	byID := make(map[int64]*model.BookWithLoans)

	for rows.Next() {
		b := &model.BookWithLoans{Loans: []*model.Loan{}}
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.Category, &b.Available, &b.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	if len(books) == 0 {
		return books, nil
	}

	loans, err := r.listLoans(ctx, `
		SELECT l.id, l.book_id, l.user_id, l.due_date, l.borrowed_at, l.returned_at
		FROM loans l
		JOIN books b ON b.id = l.book_id
		WHERE b.available = FALSE
		ORDER BY l.id
	`)
	if err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if b, ok := byID[loan.BookID]; ok {
			b.Loans = append(b.Loans, loan)
		}
	}

	return books, nil
}

// FilterBooksByKeyword returns books whose publisher or category exactly
// equals the keyword. Matching is case-sensitive, no full-text search.
func (r *Repository) FilterBooksByKeyword(ctx context.Context, keyword string) ([]*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE publisher = $1 OR category = $1 ORDER BY id`

	rows, err := r.pool.Query(ctx, query, keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to filter books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

// scanBook scans a single row into a Book model.
func scanBook(row pgx.Row) (*model.Book, error) {
	var book model.Book
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Publisher,
		&book.Category,
		&book.Available,
		&book.AddedAt,
	)
	return &book, err
}

// collectBooks drains rows into a slice of Book models.
func collectBooks(rows pgx.Rows) ([]*model.Book, error) {
	var books []*model.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}
	return books, nil
}
