package handlers

import (
	"errors"
	"net/http"

	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

// AuthHandler handles sign-up and login
type AuthHandler struct {
	svc    *services.AuthService
	logger *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *services.AuthService, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// confirmation is checked first so the form shows the familiar message
	if req.Password != req.ConfirmPassword {
		respondError(w, http.StatusBadRequest, "Passwords do not match.")
		return
	}
	if errs := ValidateRequest(req); errs != nil {
		respondValidation(w, errs)
		return
	}

	session, err := h.svc.SignUp(r.Context(), req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, session)
	case errors.Is(err, services.ErrPasswordMismatch):
		respondError(w, http.StatusBadRequest, "Passwords do not match.")
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, http.StatusConflict, "An account with this email already exists")
	default:
		h.logger.Errorw("Sign-up failed", "error", err)
		respondError(w, http.StatusInternalServerError, "An unexpected error occurred during sign-up.")
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(req); errs != nil {
		respondValidation(w, errs)
		return
	}

	session, err := h.svc.Login(r.Context(), req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, session)
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		h.logger.Errorw("Login failed", "error", err)
		respondError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
