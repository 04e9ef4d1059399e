package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lendr/lendr/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// CreateUser inserts a new user and fills in the store-assigned id.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (firstname, lastname, email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, firstname, lastname, email, created_at
		FROM users
		WHERE email = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// ListUsersWithLoans returns every user together with their full loan
// history, newest users first.
func (r *Repository) ListUsersWithLoans(ctx context.Context) ([]*model.UserWithLoans, error) {
	query := `
		SELECT id, firstname, lastname, email, created_at
		FROM users
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.UserWithLoans
	byID := make(map[int64]*model.UserWithLoans)

	for rows.Next() {
		u := &model.UserWithLoans{Loans: []*model.Loan{}}
		if err := rows.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	loans, err := r.listLoans(ctx, `SELECT id, book_id, user_id, due_date, borrowed_at, returned_at FROM loans ORDER BY id`)
	if err != nil {
		return nil, err
	}

	for _, loan := range loans {
		if u, ok := byID[loan.UserID]; ok {
			u.Loans = append(u.Loans, loan)
		}
	}

	return users, nil
}
