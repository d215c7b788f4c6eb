package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/evidence"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

// multipart bodies may carry a little framing on top of the file itself
const maxUploadBody = evidence.MaxFileSize + 1<<20

// ReportHandler handles fraud report endpoints. Every route sits behind
// RequireAuth and acts on the session user's own reports.
type ReportHandler struct {
	svc    *services.ReportService
	logger *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *services.ReportService, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/reports
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ReportInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(in); errs != nil {
		respondValidation(w, errs)
		return
	}

	report, err := h.svc.CreateReport(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to save report")
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

// List handles GET /api/v1/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.svc.GetUserReports(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to fetch reports")
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

// Summary handles GET /api/v1/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to summarise reports")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Get handles GET /api/v1/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.svc.GetReport(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to fetch report details")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Update handles PATCH /api/v1/reports/{id}
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	var patch models.ReportPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(patch); errs != nil {
		respondValidation(w, errs)
		return
	}

	report, err := h.svc.UpdateReport(r.Context(), auth.UserID(r.Context()), id, patch)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Submit handles POST /api/v1/reports/{id}/submit
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	report, err := h.svc.SubmitReport(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to submit report")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Delete handles DELETE /api/v1/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteReport(r.Context(), auth.UserID(r.Context()), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadEvidence handles POST /api/v1/reports/{id}/evidence (multipart field "file")
func (h *ReportHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, http.StatusRequestEntityTooLarge, evidence.RejectedWarning)
			return
		}
		respondError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	saved, err := h.svc.UploadEvidence(r.Context(), auth.UserID(r.Context()), id, services.EvidenceUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to upload evidence")
		return
	}

	h.logger.Infow("Evidence uploaded",
		"report_id", id,
		"file_id", saved.ID,
		"size", saved.FileSize,
		"type", saved.FileType,
	)
	respondJSON(w, http.StatusCreated, saved)
}

// ListEvidence handles GET /api/v1/reports/{id}/evidence
func (h *ReportHandler) ListEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	files, err := h.svc.GetEvidenceFiles(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to fetch evidence files")
		return
	}
	respondJSON(w, http.StatusOK, files)
}

func (h *ReportHandler) reportID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := parseUUID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid report id")
	}
	return id, ok
}
