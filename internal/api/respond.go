package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/STRATINT/zonewatch/internal/gateway"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{Message: message})
}

// respondServiceError maps gateway errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, notFound, invalid string) {
	var verr gateway.ValidationError
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		h.respondError(w, http.StatusNotFound, notFound)
	case errors.As(err, &verr):
		h.respondJSON(w, http.StatusBadRequest, ErrorResponse{Message: invalid, Field: verr.Field, Detail: verr.Message})
	default:
		h.logger.Error("request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(v)
}
