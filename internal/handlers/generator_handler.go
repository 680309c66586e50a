package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"defectinsight/internal/logging"
	"defectinsight/internal/services"
)

// GeneratorHandler handles POST /api/generate-dummy requests
type GeneratorHandler struct {
	generator *services.Generator
	defaults  services.GenerateOptions
	logger    *slog.Logger
}

// NewGeneratorHandler creates a new GeneratorHandler instance. defaults fill
// any option the request body leaves out.
func NewGeneratorHandler(generator *services.Generator, defaults services.GenerateOptions, logger *slog.Logger) *GeneratorHandler {
	return &GeneratorHandler{
		generator: generator,
		defaults:  defaults,
		logger:    logging.Component(logger, "api"),
	}
}

// GenerateRequest is the optional request body
type GenerateRequest struct {
	Count         int  `json:"count"`
	AircraftCount int  `json:"aircraft_count"`
	Days          int  `json:"days"`
	Replace       bool `json:"replace"`
}

// GenerateResponse represents the response from generate-dummy endpoint
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// Handle handles the generate-dummy request
func (h *GeneratorHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success: false,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	opts := h.defaults
	if req.Count > 0 {
		opts.Count = req.Count
	}
	if req.AircraftCount > 0 {
		opts.AircraftCount = req.AircraftCount
	}
	if req.Days > 0 {
		opts.Days = req.Days
	}
	opts.Replace = opts.Replace || req.Replace

	h.logger.Info("POST /api/generate-dummy",
		slog.Int("count", opts.Count),
		slog.Bool("replace", opts.Replace))

	res, err := h.generator.GenerateDummyData(r.Context(), opts)
	if err != nil {
		h.logger.Error("generation failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Message: "Dummy data generated successfully",
		Count:   res.Inserted,
	})
}
