package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/notify"
	"github.com/lendr/lendr/internal/repository"
	"github.com/lendr/lendr/internal/testutil"
)

func newTestService(t *testing.T, ctx context.Context, role model.Role) (*LibraryService, *repository.Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "TEST_DATABASE_URL")

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect to database: %v", err)
	}
	t.Cleanup(repo.Close)

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		if err := unlock(); err != nil {
			t.Errorf("release db lock: %v", err)
		}
	})

	if err := testutil.ResetTables(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset tables: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := notify.NewPublisher(repo, logger, nil, 0)

	return NewLibraryService(repo, nil, publisher, role, logger, nil), repo
}

func pendingNotifications(t *testing.T, ctx context.Context, repo *repository.Repository) []*model.Notification {
	t.Helper()

	notifications, err := repo.PendingNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("pending notifications: %v", err)
	}
	return notifications
}

func TestLibraryService_EnrollUser_ForwardsOnUserRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleUser)

	user, err := svc.EnrollUser(ctx, EnrollUserInput{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     "ada@example.com",
	})
	if err != nil {
		t.Fatalf("enroll user: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected an assigned user id")
	}

	notifications := pendingNotifications(t, ctx, repo)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 pending notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.Kind != model.KindUserEnrolled {
		t.Errorf("unexpected kind: %s", n.Kind)
	}
	if n.Path != "/admin/sign-up" {
		t.Errorf("unexpected path: %s", n.Path)
	}

	var payload map[string]string
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["email"] != "ada@example.com" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestLibraryService_EnrollUser_NoForwardOnAdminRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleAdmin)

	if _, err := svc.EnrollUser(ctx, EnrollUserInput{
		Firstname: "Ada",
		Lastname:  "Lovelace",
		Email:     "ada@example.com",
	}); err != nil {
		t.Fatalf("enroll user: %v", err)
	}

	if notifications := pendingNotifications(t, ctx, repo); len(notifications) != 0 {
		t.Errorf("expected no notifications on admin enrollment, got %d", len(notifications))
	}
}

func TestLibraryService_AddBook_MirrorsOnAdminRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleAdmin)

	book, err := svc.AddBook(ctx, AddBookInput{
		Privilege: "Admin",
		Title:     "SICP",
		Author:    "Abelson",
		Publisher: "MIT Press",
		Category:  "CS",
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	if !book.Available {
		t.Error("new book should be available")
	}

	notifications := pendingNotifications(t, ctx, repo)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 pending notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.Kind != model.KindBookAdded || n.Path != "/user/books" {
		t.Errorf("unexpected notification: kind=%s path=%s", n.Kind, n.Path)
	}

	// The mirrored payload must pass the receiving side's privilege gate.
	var payload map[string]string
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["user_privilege"] != "Admin" {
		t.Errorf("expected user_privilege Admin in payload, got %q", payload["user_privilege"])
	}
}

func TestLibraryService_AddBook_NoMirrorOnUserRole(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleUser)

	if _, err := svc.AddBook(ctx, AddBookInput{
		Privilege: "Admin",
		Title:     "SICP",
		Author:    "Abelson",
		Publisher: "MIT Press",
		Category:  "CS",
	}); err != nil {
		t.Fatalf("add book: %v", err)
	}

	if notifications := pendingNotifications(t, ctx, repo); len(notifications) != 0 {
		t.Errorf("expected no notifications on user-side add, got %d", len(notifications))
	}
}

func TestLibraryService_BorrowBook_DefaultPeriodAndForward(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleUser)

	book, err := svc.AddBook(ctx, AddBookInput{
		Privilege: "Admin",
		Title:     "SICP",
		Author:    "Abelson",
		Publisher: "MIT Press",
		Category:  "CS",
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	before := time.Now().UTC()
	loan, err := svc.BorrowBook(ctx, book.ID, BorrowBookInput{Borrower: 1})
	if err != nil {
		t.Fatalf("borrow book: %v", err)
	}

	if loan.DueDate == nil {
		t.Fatal("expected a due date")
	}
	wantDue := before.Add(DefaultReturnPeriodDays * 24 * time.Hour)
	if diff := loan.DueDate.Sub(wantDue); diff < -time.Minute || diff > time.Minute {
		t.Errorf("due date %v not within a minute of %v", loan.DueDate, wantDue)
	}

	notifications := pendingNotifications(t, ctx, repo)
	if len(notifications) != 1 {
		t.Fatalf("expected 1 pending notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.Kind != model.KindBookBorrowed {
		t.Errorf("unexpected kind: %s", n.Kind)
	}

	var payload map[string]any
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["return_period"] != float64(DefaultReturnPeriodDays) {
		t.Errorf("expected default return_period in payload, got %v", payload["return_period"])
	}
}

func TestLibraryService_ReturnBook_Forwards(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t, ctx, model.RoleUser)

	book, err := svc.AddBook(ctx, AddBookInput{
		Privilege: "Admin",
		Title:     "SICP",
		Author:    "Abelson",
		Publisher: "MIT Press",
		Category:  "CS",
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := svc.BorrowBook(ctx, book.ID, BorrowBookInput{Borrower: 1}); err != nil {
		t.Fatalf("borrow book: %v", err)
	}

	loan, err := svc.ReturnBook(ctx, book.ID)
	if err != nil {
		t.Fatalf("return book: %v", err)
	}
	if loan.ReturnedAt == nil {
		t.Error("expected returned_at on closed loan")
	}

	notifications := pendingNotifications(t, ctx, repo)
	var returns []*model.Notification
	for _, n := range notifications {
		if n.Kind == model.KindBookReturned {
			returns = append(returns, n)
		}
	}
	if len(returns) != 1 {
		t.Fatalf("expected 1 return notification, got %d", len(returns))
	}

	wantPath := "/admin/books/" + strconv.FormatInt(book.ID, 10) + "/return"
	if returns[0].Path != wantPath {
		t.Errorf("unexpected path: %s, want %s", returns[0].Path, wantPath)
	}
}

func TestLibraryService_ReturnBook_NoOpenLoan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ctx, model.RoleAdmin)

	book, err := svc.AddBook(ctx, AddBookInput{
		Privilege: "Admin",
		Title:     "SICP",
		Author:    "Abelson",
		Publisher: "MIT Press",
		Category:  "CS",
	})
	if err != nil {
		t.Fatalf("add book: %v", err)
	}

	if _, err := svc.ReturnBook(ctx, book.ID); err != ErrNoOpenLoan {
		t.Errorf("expected ErrNoOpenLoan, got %v", err)
	}
}
