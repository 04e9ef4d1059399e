package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lendr/lendr/internal/handler/dto"
	"github.com/lendr/lendr/internal/service"
)

// UserHandler handles HTTP requests for patron enrollment and listing.
type UserHandler struct {
	svc    Library
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc Library, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// SignUp handles POST /{role}/sign-up.
func (h *UserHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := dto.Validate(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	user, err := h.svc.EnrollUser(r.Context(), service.EnrollUserInput{
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Email:     req.Email,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("user_enrolled",
		"user_id", user.ID,
		"email", user.Email,
	)

	writeJSON(w, http.StatusCreated, user)
}

// List handles GET /admin/users. Each user carries their full loan
// history.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// handleServiceError maps service errors to HTTP responses.
func (h *UserHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already enrolled")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
