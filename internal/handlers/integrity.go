package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/models"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

// IntegrityHandler handles evidence manifest and proof verification endpoints
type IntegrityHandler struct {
	svc    *services.ReportService
	logger *zap.SugaredLogger
}

// NewIntegrityHandler creates a new integrity handler
func NewIntegrityHandler(svc *services.ReportService, logger *zap.SugaredLogger) *IntegrityHandler {
	return &IntegrityHandler{svc: svc, logger: logger}
}

// Manifest handles GET /api/v1/reports/{id}/evidence/manifest
func (h *IntegrityHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	manifest, err := h.svc.EvidenceManifest(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build evidence manifest")
		return
	}
	respondJSON(w, http.StatusOK, manifest)
}

// Verify handles POST /api/v1/integrity/verify
func (h *IntegrityHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyProofRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := ValidateRequest(req); errs != nil {
		respondValidation(w, errs)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{
		"verified": services.VerifyProof(req.LeafHash, req.Root, req.Proof),
	})
}
