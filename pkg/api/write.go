package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteError writes a structured error response with the given HTTP status.
func WriteError(w http.ResponseWriter, status int, err *Error) {
	WriteJSON(w, status, ErrorResponse{Error: err})
}

// WriteJSON serializes v as the response body with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response body", "error", err)
	}
}
