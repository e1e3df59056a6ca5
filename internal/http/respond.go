package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"khata/internal/core"
	"khata/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// validationErrs are rejected writes: the caller sent something the ledger
// refuses, so the message is safe to echo back.
var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyName,
	core.ErrInvalidKind,
	core.ErrInactive,
	core.ErrExceedsBalance,
	core.ErrInvalidTransition,
}

// writeError maps domain errors onto status codes: validation failures are
// 400 with the message, missing rows are 404, anything else is a generic 500
// with the detail only in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	for _, ve := range validationErrs {
		if errors.Is(err, ve) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}

	slog.ErrorContext(r.Context(), "Request failed",
		"method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: message})
}
