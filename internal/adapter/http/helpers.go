package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/artificer-dev/artificer/internal/domain"
)

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// errorResponse is the engine's structured failure shape. Callers, often
// automated agents themselves, branch on Code.
type errorResponse struct {
	OK         bool   `json:"ok"`
	Code       string `json:"error"`
	Message    string `json:"message,omitempty"`
	DurationMS *int64 `json:"duration_ms,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeExecutionError carries the duration even on failure; callers need it
// to tell a slow failure from a fast one.
func writeExecutionError(w http.ResponseWriter, message string, durationMS int64) {
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Code:       "execution_failed",
		Message:    message,
		DurationMS: &durationMS,
	})
}

// writeDomainError maps store and validation errors on the operator surface.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "tool_not_found", fallbackMsg)
	case errors.Is(err, domain.ErrDuplicateName):
		writeError(w, http.StatusConflict, "duplicate_name", "a tool with that name already exists")
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, "validation_failed", msg)
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
