// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator builds the shared validator. Field names in validation
// errors come from the json tag so clients see the names they sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request struct against its validate tags and returns
// a client-presentable error describing the first offending fields.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// SignUpRequest represents the request body for enrolling a patron.
type SignUpRequest struct {
	Firstname string `json:"firstname" validate:"required"`
	Lastname  string `json:"lastname" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// AddBookRequest represents the request body for adding a book to the
// catalogue. UserPrivilege is the caller's self-asserted privilege label.
type AddBookRequest struct {
	UserPrivilege string `json:"user_privilege" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author" validate:"required"`
	Publisher     string `json:"publisher" validate:"required"`
	Category      string `json:"category" validate:"required"`
}

// BorrowRequest represents the request body for borrowing a book.
// ReturnPeriod is the loan length in days; omitted means the default.
type BorrowRequest struct {
	Borrower     int64 `json:"borrower" validate:"required"`
	ReturnPeriod int   `json:"return_period" validate:"omitempty,gt=0"`
}

// MessageResponse is a simple status payload for operations that do not
// return an entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
