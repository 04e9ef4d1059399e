package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lendr/lendr/internal/handler/dto"
	"github.com/lendr/lendr/internal/service"
)

// BookHandler handles HTTP requests for catalogue and lending operations.
type BookHandler struct {
	svc    Library
	logger *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(svc Library, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		svc:    svc,
		logger: logger,
	}
}

// Add handles POST /{role}/books.
func (h *BookHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	book, err := h.svc.AddBook(r.Context(), service.AddBookInput{
		Privilege: req.UserPrivilege,
		Title:     req.Title,
		Author:    req.Author,
		Publisher: req.Publisher,
		Category:  req.Category,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_added",
		"book_id", book.ID,
		"title", book.Title,
	)

	writeJSON(w, http.StatusCreated, book)
}

// ListAvailable handles GET /user/books.
func (h *BookHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListAvailableBooks(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, books)
}

// ListUnavailable handles GET /admin/books. Each book carries the loans
// referencing it so the caller can see who has it.
func (h *BookHandler) ListUnavailable(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListUnavailableBooks(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, books)
}

// GetOrFilter handles GET /user/books/{segment}. A numeric segment is
// a book id lookup; anything else filters the catalogue by publisher or
// category. The two share one route because ids and keywords occupy the
// same path position.
func (h *BookHandler) GetOrFilter(w http.ResponseWriter, r *http.Request) {
	segment := chi.URLParam(r, "segment")

	if id, err := strconv.ParseInt(segment, 10, 64); err == nil {
		book, err := h.svc.GetBook(r.Context(), id)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
		return
	}

	books, err := h.svc.FilterBooks(r.Context(), segment)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, books)
}

// Borrow handles POST /{role}/books/{id}.
func (h *BookHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	var req dto.BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	loan, err := h.svc.BorrowBook(r.Context(), id, service.BorrowBookInput{
		Borrower:     req.Borrower,
		ReturnPeriod: req.ReturnPeriod,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_borrowed",
		"book_id", id,
		"borrower", req.Borrower,
		"due", loan.DueDate,
	)

	writeJSON(w, http.StatusOK, loan)
}

// Return handles POST /{role}/books/{id}/return.
func (h *BookHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	loan, err := h.svc.ReturnBook(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_returned",
		"book_id", id,
		"loan_id", loan.ID,
	)

	writeJSON(w, http.StatusOK, loan)
}

// Remove handles DELETE /admin/books/{id}.
func (h *BookHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveBook(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("book_removed", "book_id", id)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "book removed"})
}

// bookID parses the {id} path parameter. On failure it writes the error
// response and reports false.
func (h *BookHandler) bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Book ID must be numeric")
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *BookHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotPermitted):
		writeError(w, http.StatusUnauthorized, "NOT_PERMITTED", "Admin privilege required")
	case errors.Is(err, service.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
	case errors.Is(err, service.ErrBookUnavailable):
		writeError(w, http.StatusBadRequest, "BOOK_UNAVAILABLE", "Book is not available")
	case errors.Is(err, service.ErrNoOpenLoan):
		writeError(w, http.StatusBadRequest, "NO_OPEN_LOAN", "Book has no open loan")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
