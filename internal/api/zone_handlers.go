package api

import (
	"net/http"

	"github.com/STRATINT/zonewatch/internal/models"
)

// ListZones handles GET /api/zones
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.gateway.ListZones())
}

// GetZone handles GET /api/zones/{id}
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	zone, err := h.gateway.GetZone(id)
	if err != nil {
		h.respondServiceError(w, err, "Zone not found", "Invalid zone data")
		return
	}
	h.respondJSON(w, http.StatusOK, zone)
}

// CreateZone handles POST /api/zones
func (h *Handler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var in models.ZoneInput
	if err := decodeJSON(r, &in); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid zone data")
		return
	}

	zone, err := h.gateway.CreateZone(in)
	if err != nil {
		h.respondServiceError(w, err, "Zone not found", "Invalid zone data")
		return
	}
	h.respondJSON(w, http.StatusCreated, zone)
}

// UpdateZone handles PUT /api/zones/{id}
func (h *Handler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	var patch models.ZonePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid zone data")
		return
	}

	zone, err := h.gateway.UpdateZone(id, patch)
	if err != nil {
		h.respondServiceError(w, err, "Zone not found", "Invalid zone data")
		return
	}
	h.respondJSON(w, http.StatusOK, zone)
}

// DeleteZone handles DELETE /api/zones/{id}
func (h *Handler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}

	if err := h.gateway.DeleteZone(id); err != nil {
		h.respondServiceError(w, err, "Zone not found", "Invalid zone id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
