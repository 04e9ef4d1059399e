// Package handler provides HTTP request handlers.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lendr/lendr/internal/handler/dto"
	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/service"
)

// Library is the application surface the HTTP layer calls into. It is
// satisfied by *service.LibraryService; tests substitute a fake.
type Library interface {
	Role() model.Role
	EnrollUser(ctx context.Context, input service.EnrollUserInput) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.UserWithLoans, error)
	AddBook(ctx context.Context, input service.AddBookInput) (*model.Book, error)
	RemoveBook(ctx context.Context, id int64) error
	ListAvailableBooks(ctx context.Context) ([]*model.Book, error)
	ListUnavailableBooks(ctx context.Context) ([]*model.BookWithLoans, error)
	GetBook(ctx context.Context, id int64) (*model.Book, error)
	FilterBooks(ctx context.Context, keyword string) ([]*model.Book, error)
	BorrowBook(ctx context.Context, bookID int64, input service.BorrowBookInput) (*model.Loan, error)
	ReturnBook(ctx context.Context, bookID int64) (*model.Loan, error)
}

// Handler hosts the endpoints that belong to no particular resource.
type Handler struct {
	role model.Role
}

// New creates a new Handler instance.
func New(role model.Role) *Handler {
	return &Handler{role: role}
}

// Root identifies the service.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"service": "lendr-" + string(h.role),
		"version": "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already gone; nothing useful to do here.
		_ = err
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
