package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/STRATINT/zonewatch/internal/auth"
	"github.com/STRATINT/zonewatch/internal/gateway"
	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/go-chi/chi/v5"
)

// ActivityLister reads the activity journal.
type ActivityLister interface {
	List(ctx context.Context, limit int, activityType string) ([]models.ActivityLog, error)
}

// Handler serves the dashboard API.
type Handler struct {
	gateway  *gateway.Service
	activity ActivityLister
	auth     auth.Config
	logger   *slog.Logger
}

// NewHandler creates the API handler. activity may be nil when the journal is
// disabled.
func NewHandler(svc *gateway.Service, activity ActivityLister, authConfig auth.Config, logger *slog.Logger) *Handler {
	return &Handler{
		gateway:  svc,
		activity: activity,
		auth:     authConfig,
		logger:   logger.With("component", "api"),
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMetrics handles GET /api/metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.gateway.Metrics())
}

// GetThreatLevels handles GET /api/threat-levels
func (h *Handler) GetThreatLevels(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.gateway.ThreatLevels())
}

// GetStatus handles GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.gateway.Status(r.Context()))
}

// ListActivity handles GET /api/activity
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Activity journal is not configured")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	logs, err := h.activity.List(r.Context(), limit, r.URL.Query().Get("type"))
	if err != nil {
		h.logger.Error("failed to list activity logs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve activity logs")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
