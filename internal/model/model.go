// Package model defines domain entities for the application.
package model

import "time"

// Role identifies which of the two services a process is running as.
// The admin service owns catalogue management; the user service is the
// patron-facing frontend. Both share the same entities and storage schema.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// PathPrefix returns the URL prefix a service mounts its routes under.
func (r Role) PathPrefix() string {
	return "/" + string(r)
}

// Peer returns the sibling service's role.
func (r Role) Peer() Role {
	if r == RoleAdmin {
		return RoleUser
	}
	return RoleAdmin
}

// User represents a library patron.
type User struct {
	ID        int64     `json:"id"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"date_created"`
}

// Book represents a catalogue entry. A book is a single lendable copy;
// Available is false while an open loan references it.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Publisher string    `json:"publisher"`
	Category  string    `json:"category"`
	Available bool      `json:"available"`
	AddedAt   time.Time `json:"date_added"`
}

// Loan records one lending transaction. UserID is the borrower id as
// supplied by the caller; it carries no foreign key because the two
// services assign user ids independently and a forwarded borrow may
// reference an id the local store never issued.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	UserID     int64      `json:"user_id"`
	DueDate    *time.Time `json:"return_date"`
	BorrowedAt time.Time  `json:"date_borrowed"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

// Open reports whether the loan has not been closed by a return.
func (l *Loan) Open() bool {
	return l.ReturnedAt == nil
}

// Overdue reports whether an open loan is past its due date.
func (l *Loan) Overdue(now time.Time) bool {
	return l.Open() && l.DueDate != nil && now.After(*l.DueDate)
}

// UserWithLoans is a user together with their full loan history.
type UserWithLoans struct {
	User
	Loans []*Loan `json:"books_borrowed"`
}

// BookWithLoans is a book together with the loans referencing it.
type BookWithLoans struct {
	Book
	Loans []*Loan `json:"borrowed"`
}

// NotificationStatus tracks outbox delivery state.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationExhausted NotificationStatus = "exhausted"
)

// NotificationKind names the cross-service event being mirrored.
type NotificationKind string

const (
	KindUserEnrolled NotificationKind = "user.enrolled"
	KindBookAdded    NotificationKind = "book.added"
	KindBookBorrowed NotificationKind = "book.borrowed"
	KindBookReturned NotificationKind = "book.returned"
)

// Notification is an outbox row: a mutation observed locally that must be
// pushed to the sibling service. ID doubles as the idempotency key the
// receiver dedupes on, so a retried delivery is applied at most once.
type Notification struct {
	ID           string             `json:"id"`
	Kind         NotificationKind   `json:"kind"`
	Path         string             `json:"path"` // request path on the peer, e.g. /admin/sign-up
	Payload      []byte             `json:"payload"`
	Status       NotificationStatus `json:"status"`
	AttemptCount int                `json:"attempt_count"`
	MaxAttempts  int                `json:"max_attempts"`
	NextRetryAt  time.Time          `json:"next_retry_at"`
	LastError    string             `json:"last_error,omitempty"`
	HTTPStatus   *int               `json:"http_status,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Exhausted reports whether the notification has used up its attempts.
func (n *Notification) Exhausted() bool {
	return n.AttemptCount >= n.MaxAttempts
}
