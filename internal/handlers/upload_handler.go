package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
	"defectinsight/internal/services"
)

// maxUploadSize caps multipart uploads
const maxUploadSize = 50 << 20

// UploadHandler handles POST /api/upload (multipart: file, mode).
type UploadHandler struct {
	uploadService *services.UploadService
	logger        *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService *services.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, logger: logging.Component(logger, "api")}
}

// UploadResponse is the JSON response for upload.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	services.LoadResult
}

// Handle imports the uploaded .json or .csv file.
func (h *UploadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{
			Success: false,
			Message: "invalid multipart form: " + err.Error(),
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{
			Success: false,
			Message: "missing or invalid file: " + err.Error(),
		})
		return
	}
	defer file.Close()

	mode, err := services.ParseImportMode(r.FormValue("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("POST /api/upload",
		slog.String("file", header.Filename),
		slog.String("mode", string(mode)))

	result, err := h.uploadService.Import(r.Context(), file, header.Filename, mode)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrInvalidInput) {
			status = http.StatusBadRequest
		} else {
			h.logger.Error("upload failed", slog.Any("error", err))
		}
		writeJSON(w, status, UploadResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:    true,
		Message:    "Defects imported successfully",
		LoadResult: result,
	})
}
