// Package handlers contains HTTP request handlers for the UPI Guard API.
// Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

const maxJSONBody = 1 << 20

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// BadRequestResponse carries per-field validation failures
type BadRequestResponse struct {
	Error   string            `json:"error"`
	Details []ValidationError `json:"details"`
}

func respondValidation(w http.ResponseWriter, details []ValidationError) {
	respondJSON(w, http.StatusBadRequest, BadRequestResponse{Error: "Invalid request data", Details: details})
}

// respondData wraps data in the record API envelope
func respondData[T any](w http.ResponseWriter, status int, data T, message string) {
	respondJSON(w, status, models.APIResponse[T]{Data: data, Success: true, Message: message})
}

// respondEnvelopeError answers with success=false and null data
func respondEnvelopeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.APIResponse[interface{}]{Success: false, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseUUID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	return id, err == nil
}

// respondServiceError maps service and repository errors to status codes.
// Anything unrecognised is logged and reported as a 500 with fallback.
func respondServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, services.ErrMissingFields):
		respondError(w, http.StatusBadRequest, "Please fill in all required fields")
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "Only draft reports can be submitted")
	case errors.Is(err, evidence.ErrInvalid):
		respondError(w, http.StatusBadRequest, evidence.RejectedWarning)
	default:
		logger.Errorw(fallback, "error", err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
