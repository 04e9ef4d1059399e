// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lendr/lendr/internal/cache"
	"github.com/lendr/lendr/internal/metrics"
	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/notify"
	"github.com/lendr/lendr/internal/repository"
)

// Service errors.
var (
	ErrNotPermitted    = errors.New("caller lacks the required privilege")
	ErrEmailTaken      = errors.New("email already enrolled")
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book not available")
	ErrNoOpenLoan      = errors.New("book has no open loan")
)

const (
	// AdminPrivilege is the literal a caller must supply to mutate the
	// catalogue. It is a self-asserted label, not an authentication
	// mechanism; real authn/authz is out of scope.
	AdminPrivilege = "Admin"

	// DefaultReturnPeriodDays applies when a borrow request omits the
	// loan length.
	DefaultReturnPeriodDays = 7
)

// LibraryService handles catalogue, enrollment and lending logic for one
// service instance. Role decides which mutations are mirrored to the
// sibling: the user service forwards enrollments, borrows and returns to
// admin; the admin service forwards added books to user. The receiving
// side never re-forwards, which is what keeps two services from pushing
// the same event back and forth forever.
type LibraryService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	outbox  *notify.Publisher
	role    model.Role
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(
	repo *repository.Repository,
	cacheClient *cache.Cache,
	outbox *notify.Publisher,
	role model.Role,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *LibraryService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LibraryService{
		repo:    repo,
		cache:   cacheClient,
		outbox:  outbox,
		role:    role,
		logger:  logger.With("component", "service"),
		metrics: recorder,
	}
}

// Role returns the role this service instance runs as.
func (s *LibraryService) Role() model.Role {
	return s.role
}

// EnrollUserInput defines input for enrolling a user.
type EnrollUserInput struct {
	Firstname string
	Lastname  string
	Email     string
}

// EnrollUser creates a user locally. On the user service the enrollment
// is also forwarded to admin so both stores know the patron.
func (s *LibraryService) EnrollUser(ctx context.Context, input EnrollUserInput) (*model.User, error) {
	user := &model.User{
		Firstname: input.Firstname,
		Lastname:  input.Lastname,
		Email:     input.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to enroll user: %w", err)
	}

	s.metrics.IncUserEnrolled()

	if s.role == model.RoleUser {
		s.publish(ctx, model.KindUserEnrolled, "/admin/sign-up", map[string]string{
			"firstname": input.Firstname,
			"lastname":  input.Lastname,
			"email":     input.Email,
		})
	}

	return user, nil
}

// ListUsers returns all users with their full loan history.
func (s *LibraryService) ListUsers(ctx context.Context) ([]*model.UserWithLoans, error) {
	return s.repo.ListUsersWithLoans(ctx)
}

// AddBookInput defines input for adding a book to the catalogue.
type AddBookInput struct {
	Privilege string
	Title     string
	Author    string
	Publisher string
	Category  string
}

// AddBook creates a catalogue entry, gated on the privilege literal.
// New books are always available regardless of caller input. On the
// admin service the book is mirrored to the user service; the user
// service's own handler does not re-forward.
func (s *LibraryService) AddBook(ctx context.Context, input AddBookInput) (*model.Book, error) {
	if input.Privilege != AdminPrivilege {
		return nil, ErrNotPermitted
	}

	book := &model.Book{
		Title:     input.Title,
		Author:    input.Author,
		Publisher: input.Publisher,
		Category:  input.Category,
		AddedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}

	s.metrics.IncBookAdded()

	if s.role == model.RoleAdmin {
		s.publish(ctx, model.KindBookAdded, "/user/books", map[string]string{
			"user_privilege": AdminPrivilege,
			"title":          input.Title,
			"author":         input.Author,
			"publisher":      input.Publisher,
			"category":       input.Category,
		})
	}

	return book, nil
}

// RemoveBook deletes a book from the catalogue.
func (s *LibraryService) RemoveBook(ctx context.Context, id int64) error {
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return ErrBookNotFound
		}
		return fmt.Errorf("failed to remove book: %w", err)
	}

	s.metrics.IncBookRemoved()
	s.invalidateBook(ctx, id)

	return nil
}

// ListAvailableBooks returns books patrons can borrow right now.
func (s *LibraryService) ListAvailableBooks(ctx context.Context) ([]*model.Book, error) {
	return s.repo.ListBooksByAvailability(ctx, true)
}

// ListUnavailableBooks returns checked-out books with their loans, so
// the admin view shows who has each book and when it is due back.
func (s *LibraryService) ListUnavailableBooks(ctx context.Context) ([]*model.BookWithLoans, error) {
	return s.repo.ListUnavailableBooksWithLoans(ctx)
}

// GetBook retrieves a single book by id, through the read cache.
func (s *LibraryService) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	if s.cache != nil {
		if book, err := s.cache.GetBook(ctx, id); err == nil {
			s.metrics.IncBookCacheHit()
			return book, nil
		}
		s.metrics.IncBookCacheMiss()
	}

	book, err := s.repo.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBook(ctx, book); err != nil {
			s.logger.Debug("failed to cache book", "book_id", id, "error", err)
		}
	}

	return book, nil
}

// FilterBooks returns books whose publisher or category exactly equals
// the keyword.
func (s *LibraryService) FilterBooks(ctx context.Context, keyword string) ([]*model.Book, error) {
	return s.repo.FilterBooksByKeyword(ctx, keyword)
}

// BorrowBookInput defines input for borrowing a book.
type BorrowBookInput struct {
	Borrower     int64
	ReturnPeriod int // days; zero means "use the default"
}

// BorrowBook lends a book out. The due date is the borrow time plus the
// requested period. The borrower id is taken at face value, per the
// cross-service id model (see model.Loan). On the user service the
// borrow is forwarded to admin.
func (s *LibraryService) BorrowBook(ctx context.Context, bookID int64, input BorrowBookInput) (*model.Loan, error) {
	period := input.ReturnPeriod
	if period == 0 {
		period = DefaultReturnPeriodDays
	}

	due := time.Now().UTC().Add(time.Duration(period) * 24 * time.Hour)

	loan, err := s.repo.BorrowBook(ctx, bookID, input.Borrower, due)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			return nil, ErrBookNotFound
		case errors.Is(err, repository.ErrBookUnavailable):
			return nil, ErrBookUnavailable
		}
		return nil, fmt.Errorf("failed to borrow book: %w", err)
	}

	s.metrics.IncLoanCreated()
	s.invalidateBook(ctx, bookID)

	if s.role == model.RoleUser {
		s.publish(ctx, model.KindBookBorrowed, fmt.Sprintf("/admin/books/%d", bookID), map[string]any{
			"borrower":      input.Borrower,
			"return_period": period,
		})
	}

	return loan, nil
}

// ReturnBook closes the newest open loan on a book and makes it
// available again. On the user service the return is forwarded to admin.
func (s *LibraryService) ReturnBook(ctx context.Context, bookID int64) (*model.Loan, error) {
	loan, err := s.repo.ReturnBook(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookNotFound):
			return nil, ErrBookNotFound
		case errors.Is(err, repository.ErrNoOpenLoan):
			return nil, ErrNoOpenLoan
		}
		return nil, fmt.Errorf("failed to return book: %w", err)
	}

	s.metrics.IncLoanReturned()
	s.invalidateBook(ctx, bookID)

	if s.role == model.RoleUser {
		s.publish(ctx, model.KindBookReturned, fmt.Sprintf("/admin/books/%d/return", bookID), map[string]any{})
	}

	return loan, nil
}

// publish enqueues a cross-service notification. A failed enqueue never
// fails the initiating operation: the local mutation has already
// committed, so the caller's request succeeds either way.
func (s *LibraryService) publish(ctx context.Context, kind model.NotificationKind, path string, payload any) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Publish(ctx, kind, path, payload); err != nil {
		s.logger.Error("failed to enqueue notification",
			"kind", kind,
			"path", path,
			"error", err,
		)
	}
}

// invalidateBook drops a book from the read cache, best effort.
func (s *LibraryService) invalidateBook(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBook(ctx, id); err != nil {
		s.logger.Debug("failed to invalidate cached book", "book_id", id, "error", err)
	}
}
