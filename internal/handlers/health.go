package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upiguard/upiguard/internal/models"
	"go.uber.org/zap"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

var startTime = time.Now()

// Pinger is a dependency the readiness probe can check
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler provides health check endpoints
type HealthHandler struct {
	db     Pinger
	cache  Pinger
	logger *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler. A nil db means records
// live in memory; a nil cache means Redis is not configured.
func NewHealthHandler(db, cache Pinger, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: logger}
}

// Check handles GET /api/v1/health (liveness probe)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness probe).
// Only the database gates readiness; the cache is reported but optional.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:   "ready",
		Version:  Version,
		Uptime:   time.Since(startTime).String(),
		Database: "in-memory",
		Cache:    "disabled",
	}

	if h.cache != nil {
		status.Cache = "connected"
		if err := h.cache.Ping(r.Context()); err != nil {
			h.logger.Warnw("Cache ping failed", "error", err)
			status.Cache = "disconnected"
		}
	}

	if h.db != nil {
		status.Database = "connected"
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Errorw("Database ping failed", "error", err)
			status.Status = "not ready"
			status.Database = "disconnected"
			status.Uptime = ""
			respondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}

	respondJSON(w, http.StatusOK, status)
}
