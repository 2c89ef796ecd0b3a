package api

import (
	"net/http"
	"strconv"
)

const defaultAlertLimit = 10

// ListAlerts handles GET /api/alerts?limit=N
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = l
	}

	h.respondJSON(w, http.StatusOK, h.gateway.ListAlerts(limit))
}

// ResolveAlert handles PUT /api/alerts/{id}/resolve
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid alert id")
		return
	}

	if _, err := h.gateway.ResolveAlert(id); err != nil {
		h.respondServiceError(w, err, "Alert not found", "Invalid alert id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
