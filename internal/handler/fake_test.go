package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/service"
)

// fakeLibrary implements Library with per-method function fields so each
// test stubs only what it touches.
type fakeLibrary struct {
	role model.Role

	enrollUser    func(ctx context.Context, input service.EnrollUserInput) (*model.User, error)
	listUsers     func(ctx context.Context) ([]*model.UserWithLoans, error)
	addBook       func(ctx context.Context, input service.AddBookInput) (*model.Book, error)
	removeBook    func(ctx context.Context, id int64) error
	listAvailable func(ctx context.Context) ([]*model.Book, error)
	listUnavail   func(ctx context.Context) ([]*model.BookWithLoans, error)
	getBook       func(ctx context.Context, id int64) (*model.Book, error)
	filterBooks   func(ctx context.Context, keyword string) ([]*model.Book, error)
	borrowBook    func(ctx context.Context, bookID int64, input service.BorrowBookInput) (*model.Loan, error)
	returnBook    func(ctx context.Context, bookID int64) (*model.Loan, error)
}

func (f *fakeLibrary) Role() model.Role {
	if f.role == "" {
		return model.RoleAdmin
	}
	return f.role
}

func (f *fakeLibrary) EnrollUser(ctx context.Context, input service.EnrollUserInput) (*model.User, error) {
	return f.enrollUser(ctx, input)
}

func (f *fakeLibrary) ListUsers(ctx context.Context) ([]*model.UserWithLoans, error) {
	return f.listUsers(ctx)
}

func (f *fakeLibrary) AddBook(ctx context.Context, input service.AddBookInput) (*model.Book, error) {
	return f.addBook(ctx, input)
}

func (f *fakeLibrary) RemoveBook(ctx context.Context, id int64) error {
	return f.removeBook(ctx, id)
}

func (f *fakeLibrary) ListAvailableBooks(ctx context.Context) ([]*model.Book, error) {
	return f.listAvailable(ctx)
}

func (f *fakeLibrary) ListUnavailableBooks(ctx context.Context) ([]*model.BookWithLoans, error) {
	return f.listUnavail(ctx)
}

func (f *fakeLibrary) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	return f.getBook(ctx, id)
}

func (f *fakeLibrary) FilterBooks(ctx context.Context, keyword string) ([]*model.Book, error) {
	return f.filterBooks(ctx, keyword)
}

func (f *fakeLibrary) BorrowBook(ctx context.Context, bookID int64, input service.BorrowBookInput) (*model.Loan, error) {
	return f.borrowBook(ctx, bookID, input)
}

func (f *fakeLibrary) ReturnBook(ctx context.Context, bookID int64) (*model.Loan, error) {
	return f.returnBook(ctx, bookID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
