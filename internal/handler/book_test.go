package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/service"
)

// newBookRouter mounts the book routes the way the services do, so path
// parameters resolve through chi. Listing polarity and the lookup/remove
// split follow the real role wiring.
func newBookRouter(h *BookHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Get("/books", h.ListUnavailable)
		r.Post("/books", h.Add)
		r.Delete("/books/{id}", h.Remove)
		r.Post("/books/{id}", h.Borrow)
		r.Post("/books/{id}/return", h.Return)
	})
	r.Route("/user", func(r chi.Router) {
		r.Get("/books", h.ListAvailable)
		r.Post("/books", h.Add)
		r.Get("/books/{segment}", h.GetOrFilter)
		r.Post("/books/{id}", h.Borrow)
		r.Post("/books/{id}/return", h.Return)
	})
	return r
}

func TestBookHandler_Add(t *testing.T) {
	fake := &fakeLibrary{
		addBook: func(ctx context.Context, input service.AddBookInput) (*model.Book, error) {
			return &model.Book{
				ID:        7,
				Title:     input.Title,
				Author:    input.Author,
				Publisher: input.Publisher,
				Category:  input.Category,
				Available: true,
			}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	body := `{"user_privilege":"Admin","title":"SICP","author":"Abelson","publisher":"MIT Press","category":"CS"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var book model.Book
	if err := json.NewDecoder(rec.Body).Decode(&book); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if book.ID != 7 || !book.Available {
		t.Errorf("unexpected book in response: %+v", book)
	}
}

func TestBookHandler_Add_NotPermitted(t *testing.T) {
	fake := &fakeLibrary{
		addBook: func(ctx context.Context, input service.AddBookInput) (*model.Book, error) {
			return nil, service.ErrNotPermitted
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	body := `{"user_privilege":"User","title":"SICP","author":"Abelson","publisher":"MIT Press","category":"CS"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestBookHandler_Add_MissingFields(t *testing.T) {
	router := newBookRouter(NewBookHandler(&fakeLibrary{}, discardLogger()))

	body := `{"user_privilege":"Admin","title":"SICP"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/books", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBookHandler_GetOrFilter_NumericSegment(t *testing.T) {
	fake := &fakeLibrary{
		getBook: func(ctx context.Context, id int64) (*model.Book, error) {
			if id != 42 {
				t.Errorf("expected id 42, got %d", id)
			}
			return &model.Book{ID: id, Title: "SICP", Available: true}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/user/books/42", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var book model.Book
	if err := json.NewDecoder(rec.Body).Decode(&book); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if book.ID != 42 {
		t.Errorf("unexpected book id: %d", book.ID)
	}
}

func TestBookHandler_GetOrFilter_Keyword(t *testing.T) {
	fake := &fakeLibrary{
		filterBooks: func(ctx context.Context, keyword string) ([]*model.Book, error) {
			if keyword != "Fiction" {
				t.Errorf("expected keyword Fiction, got %q", keyword)
			}
			return []*model.Book{{ID: 1, Category: "Fiction"}}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/user/books/Fiction", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var books []*model.Book
	if err := json.NewDecoder(rec.Body).Decode(&books); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("expected 1 book, got %d", len(books))
	}
}

func TestBookHandler_GetOrFilter_NotFound(t *testing.T) {
	fake := &fakeLibrary{
		getBook: func(ctx context.Context, id int64) (*model.Book, error) {
			return nil, service.ErrBookNotFound
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/user/books/999", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestBookHandler_ListUnavailable(t *testing.T) {
	due := time.Now().UTC().Add(24 * time.Hour)
	fake := &fakeLibrary{
		listUnavail: func(ctx context.Context) ([]*model.BookWithLoans, error) {
			return []*model.BookWithLoans{
				{
					Book:  model.Book{ID: 3, Title: "SICP", Available: false},
					Loans: []*model.Loan{{ID: 1, BookID: 3, UserID: 9, DueDate: &due}},
				},
			}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/admin/books", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var books []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&books); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books))
	}
	if loans, ok := books[0]["borrowed"].([]any); !ok || len(loans) != 1 {
		t.Errorf("expected loans under borrowed, got %v", books[0]["borrowed"])
	}
}

func TestBookHandler_Borrow(t *testing.T) {
	due := time.Now().UTC().Add(3 * 24 * time.Hour)
	fake := &fakeLibrary{
		borrowBook: func(ctx context.Context, bookID int64, input service.BorrowBookInput) (*model.Loan, error) {
			if bookID != 5 {
				t.Errorf("expected book id 5, got %d", bookID)
			}
			if input.Borrower != 2 || input.ReturnPeriod != 3 {
				t.Errorf("unexpected borrow input: %+v", input)
			}
			return &model.Loan{ID: 1, BookID: bookID, UserID: input.Borrower, DueDate: &due}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	body := `{"borrower":2,"return_period":3}`
	req := httptest.NewRequest(http.MethodPost, "/admin/books/5", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var loan map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&loan); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if loan["return_date"] == nil {
		t.Error("expected return_date in loan response")
	}
}

func TestBookHandler_Borrow_Unavailable(t *testing.T) {
	fake := &fakeLibrary{
		borrowBook: func(ctx context.Context, bookID int64, input service.BorrowBookInput) (*model.Loan, error) {
			return nil, service.ErrBookUnavailable
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	body := `{"borrower":2}`
	req := httptest.NewRequest(http.MethodPost, "/admin/books/5", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBookHandler_Borrow_MissingBorrower(t *testing.T) {
	router := newBookRouter(NewBookHandler(&fakeLibrary{}, discardLogger()))

	req := httptest.NewRequest(http.MethodPost, "/admin/books/5", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBookHandler_Return(t *testing.T) {
	returned := time.Now().UTC()
	fake := &fakeLibrary{
		returnBook: func(ctx context.Context, bookID int64) (*model.Loan, error) {
			return &model.Loan{ID: 1, BookID: bookID, UserID: 2, ReturnedAt: &returned}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodPost, "/admin/books/5/return", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var loan map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&loan); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if loan["returned_at"] == nil {
		t.Error("expected returned_at in loan response")
	}
}

func TestBookHandler_Return_NoOpenLoan(t *testing.T) {
	fake := &fakeLibrary{
		returnBook: func(ctx context.Context, bookID int64) (*model.Loan, error) {
			return nil, service.ErrNoOpenLoan
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodPost, "/admin/books/5/return", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestBookHandler_Remove(t *testing.T) {
	var removed int64
	fake := &fakeLibrary{
		removeBook: func(ctx context.Context, id int64) error {
			removed = id
			return nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodDelete, "/admin/books/5", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if removed != 5 {
		t.Errorf("expected book 5 removed, got %d", removed)
	}
}

func TestBookHandler_Remove_NotFound(t *testing.T) {
	fake := &fakeLibrary{
		removeBook: func(ctx context.Context, id int64) error {
			return service.ErrBookNotFound
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodDelete, "/admin/books/999", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestBookHandler_ListAvailable(t *testing.T) {
	fake := &fakeLibrary{
		listAvailable: func(ctx context.Context) ([]*model.Book, error) {
			return []*model.Book{
				{ID: 1, Title: "SICP", Available: true},
				{ID: 2, Title: "TAPL", Available: true},
			}, nil
		},
	}
	router := newBookRouter(NewBookHandler(fake, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/user/books", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var books []*model.Book
	if err := json.NewDecoder(rec.Body).Decode(&books); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("expected 2 books, got %d", len(books))
	}
}
