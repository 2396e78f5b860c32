package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Envelope is the wrapped response shape. Lists consumed directly by the
// dashboard (list, recent, popular, failed) and run results are not wrapped.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Debug().Err(err).Msg("response not written")
	}
}

// writeSuccess writes {success: true, message, data}.
func writeSuccess(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// writeError writes {success: false, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

// writeErrorWithData writes {success: false, message, data}.
func writeErrorWithData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: false, Message: message, Data: data})
}

// statusFor maps an error class to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrPolicy):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to a status and writes it. Unexpected errors are
// logged; the client only sees the message.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("commander request failed")
	}

	var notFound *types.CommandNotFoundError
	if errors.As(err, &notFound) && len(notFound.Suggestions) > 0 {
		writeErrorWithData(w, status, err.Error(), map[string]any{"suggestions": notFound.Suggestions})
		return
	}
	writeError(w, status, err.Error())
}
