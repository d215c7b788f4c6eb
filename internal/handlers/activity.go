package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upiguard/upiguard/internal/auth"
	"github.com/upiguard/upiguard/internal/services"
	"go.uber.org/zap"
)

// ActivityHandler handles report timeline endpoints
type ActivityHandler struct {
	svc    *services.ReportService
	logger *zap.SugaredLogger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(svc *services.ReportService, logger *zap.SugaredLogger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

// ByReport handles GET /api/v1/reports/{id}/activity?limit=
func (h *ActivityHandler) ByReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	limit := services.DefaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.svc.GetActivity(r.Context(), auth.UserID(r.Context()), id, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to fetch activity")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}
