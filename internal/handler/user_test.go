package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/service"
)

func TestUserHandler_SignUp(t *testing.T) {
	fake := &fakeLibrary{
		enrollUser: func(ctx context.Context, input service.EnrollUserInput) (*model.User, error) {
			return &model.User{
				ID:        1,
				Firstname: input.Firstname,
				Lastname:  input.Lastname,
				Email:     input.Email,
				CreatedAt: time.Now().UTC(),
			}, nil
		},
	}
	h := NewUserHandler(fake, discardLogger())

	body := `{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/user/sign-up", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var user model.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if user.ID != 1 || user.Email != "ada@example.com" {
		t.Errorf("unexpected user in response: %+v", user)
	}
}

func TestUserHandler_SignUp_Validation(t *testing.T) {
	h := NewUserHandler(&fakeLibrary{}, discardLogger())

	tests := []struct {
		name string
		body string
	}{
		{"missing firstname", `{"lastname":"Lovelace","email":"ada@example.com"}`},
		{"missing email", `{"firstname":"Ada","lastname":"Lovelace"}`},
		{"malformed email", `{"firstname":"Ada","lastname":"Lovelace","email":"not-an-email"}`},
		{"invalid json", `{"firstname":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/user/sign-up", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.SignUp(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUserHandler_SignUp_DuplicateEmail(t *testing.T) {
	fake := &fakeLibrary{
		enrollUser: func(ctx context.Context, input service.EnrollUserInput) (*model.User, error) {
			return nil, service.ErrEmailTaken
		},
	}
	h := NewUserHandler(fake, discardLogger())

	body := `{"firstname":"Ada","lastname":"Lovelace","email":"ada@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/user/sign-up", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.SignUp(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["code"] != "EMAIL_TAKEN" {
		t.Errorf("unexpected error code: %s", resp["code"])
	}
}

func TestUserHandler_List(t *testing.T) {
	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	fake := &fakeLibrary{
		listUsers: func(ctx context.Context) ([]*model.UserWithLoans, error) {
			return []*model.UserWithLoans{
				{
					User: model.User{ID: 1, Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com"},
					Loans: []*model.Loan{
						{ID: 1, BookID: 3, UserID: 1, DueDate: &due},
					},
				},
			}, nil
		},
	}
	h := NewUserHandler(fake, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/user/users", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var users []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&users); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}

	loans, ok := users[0]["books_borrowed"].([]any)
	if !ok || len(loans) != 1 {
		t.Errorf("expected loan history under books_borrowed, got %v", users[0]["books_borrowed"])
	}
}
