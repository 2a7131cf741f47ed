// Package rest serves the job trigger, dashboard reads and health probes.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusOf maps domain errors to HTTP codes. The bool is false for errors
// that should be logged and hidden behind a 500.
func statusOf(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, true
	default:
		return http.StatusInternalServerError, false
	}
}

func writeDomainError(w http.ResponseWriter, err error) bool {
	status, known := statusOf(err)
	if !known {
		return false
	}
	resp := errorResponse{Error: err.Error()}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp = errorResponse{Error: "validation failed", Fields: ve.Errors}
	}
	writeJSON(w, status, resp)
	return true
}
