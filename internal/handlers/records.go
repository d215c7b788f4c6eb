package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/records"
	"github.com/upiguard/upiguard/internal/repository"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

// RecordHandler serves the UPI record API. Every answer uses the
// {data, success, message} envelope.
type RecordHandler struct {
	svc    *services.RecordService
	logger *zap.SugaredLogger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(svc *services.RecordService, logger *zap.SugaredLogger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/upi-records?search=&status=
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	status, err := records.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		respondEnvelopeError(w, http.StatusBadRequest, "status must be All, Safe or Risk")
		return
	}

	filter := repository.RecordFilter{Search: r.URL.Query().Get("search")}
	if status != records.FilterAll {
		filter.Status = models.RecordStatus(status)
	}

	recs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.logger.Errorw("Failed to list records", "error", err)
		respondEnvelopeError(w, http.StatusInternalServerError, "Failed to fetch UPI records")
		return
	}
	respondData(w, http.StatusOK, recs, "")
}

// Stats handles GET /api/v1/upi-records/stats
func (h *RecordHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Errorw("Failed to compute record stats", "error", err)
		respondEnvelopeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	respondData(w, http.StatusOK, stats, "")
}

// Get handles GET /api/v1/upi-records/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.recordError(w, err, "Failed to fetch UPI record")
		return
	}
	respondData(w, http.StatusOK, rec, "")
}

// Create handles POST /api/v1/upi-records
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rec models.UPIRecord
	if err := decodeJSON(w, r, &rec); err != nil {
		respondEnvelopeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(rec); errs != nil {
		respondEnvelopeValidation(w, errs)
		return
	}

	created, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		h.recordError(w, err, "Failed to create UPI record")
		return
	}
	respondData(w, http.StatusCreated, created, "UPI record created")
}

// Update handles PUT /api/v1/upi-records/{id} as a partial merge
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.UPIRecordPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondEnvelopeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(patch); errs != nil {
		respondEnvelopeValidation(w, errs)
		return
	}
	if patch.IsEmpty() {
		respondEnvelopeError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	rec, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.recordError(w, err, "Failed to update UPI record")
		return
	}
	respondData(w, http.StatusOK, rec, "UPI record updated")
}

// Delete handles DELETE /api/v1/upi-records/{id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.recordError(w, err, "Failed to delete UPI record")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id}, "UPI record deleted")
}

func (h *RecordHandler) recordError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondEnvelopeError(w, http.StatusNotFound, "UPI record not found")
	case errors.Is(err, repository.ErrDuplicate):
		respondEnvelopeError(w, http.StatusConflict, "UPI record already exists")
	default:
		h.logger.Errorw(fallback, "error", err)
		respondEnvelopeError(w, http.StatusInternalServerError, fallback)
	}
}

// respondEnvelopeValidation reports field errors as the envelope's data
func respondEnvelopeValidation(w http.ResponseWriter, errs []ValidationError) {
	respondJSON(w, http.StatusBadRequest, models.APIResponse[[]ValidationError]{
		Data:    errs,
		Success: false,
		Message: "Invalid request data",
	})
}
