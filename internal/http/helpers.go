package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cuotas/internal/core"
	"cuotas/internal/log"
	"cuotas/internal/services"
	"cuotas/internal/storage"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: log.RequestID(r.Context())})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrExtractionDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidInstallments),
		errors.Is(err, core.ErrEmptyConcept),
		errors.Is(err, core.ErrUnknownCategory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and their
// details withheld from the client.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, log.NewFields())
		writeError(w, r, status, "internal error")
		return
	}
	writeError(w, r, status, err.Error())
}

// invalid writes a 422 for a validation failure detected in the handler.
func invalid(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusUnprocessableEntity, err.Error())
}
