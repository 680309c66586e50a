package handlers

import (
	"log/slog"
	"net/http"

	"defectinsight/internal/logging"
	"defectinsight/internal/services"
)

// LoadHandler handles POST /api/load requests
type LoadHandler struct {
	loader        *services.Loader
	rawDataFolder string
	logger        *slog.Logger
}

// NewLoadHandler creates a new LoadHandler instance
func NewLoadHandler(loader *services.Loader, rawDataFolder string, logger *slog.Logger) *LoadHandler {
	return &LoadHandler{
		loader:        loader,
		rawDataFolder: rawDataFolder,
		logger:        logging.Component(logger, "api"),
	}
}

// LoadResponse represents the response from load endpoint
type LoadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	services.LoadResult
}

// Handle loads every JSON file of the configured folder
func (h *LoadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("POST /api/load", slog.String("folder", h.rawDataFolder))

	res, err := h.loader.LoadFromFolder(r.Context(), h.rawDataFolder)
	if err != nil {
		h.logger.Error("load failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, LoadResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, LoadResponse{
		Success:    true,
		Message:    "Data loaded successfully",
		LoadResult: res,
	})
}
