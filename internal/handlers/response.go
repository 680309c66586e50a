package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"defectinsight/internal/analytics"
	"defectinsight/internal/services"
)

// writeJSON writes v as a JSON body with status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}. Caller mistakes map to 400, everything else to 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, analytics.ErrInvalidInput) || errors.Is(err, services.ErrInvalidQuery) {
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}
