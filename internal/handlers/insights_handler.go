package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"defectinsight/internal/analytics"
	"defectinsight/internal/logging"
	"defectinsight/internal/models"
	"defectinsight/internal/services"
)

// maxInsightBody caps POSTed record sets
const maxInsightBody = 10 << 20

// InsightsHandler handles the analytics endpoints
type InsightsHandler struct {
	insights *services.InsightService
	logger   *slog.Logger
}

// NewInsightsHandler creates a new InsightsHandler instance
func NewInsightsHandler(insights *services.InsightService, logger *slog.Logger) *InsightsHandler {
	return &InsightsHandler{insights: insights, logger: logging.Component(logger, "api")}
}

// Analytics serves GET /api/analytics from the snapshot cache
func (h *InsightsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.insights.FullAnalytics(r.Context())
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("failed to compute analytics: %w", err))
		return
	}
	if age, ok := h.insights.SnapshotAge(); ok {
		w.Header().Set("Age", strconv.Itoa(int(age.Seconds())))
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Insights serves POST /api/insights with body {"defects": [...]}
func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	records, ok := h.decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.insights.Insights(records))
}

// Report serves POST /api/insights/report?limit=&days= with body {"defects": [...]}
func (h *InsightsHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), "limit", analytics.DefaultTopLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	days, err := intParam(q.Get("days"), "days", analytics.DefaultTrendDays)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if limit < 1 || days < 1 {
		writeError(w, h.logger, fmt.Errorf("%w: limit and days must be positive", services.ErrInvalidQuery))
		return
	}

	records, ok := h.decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.insights.Report(records, limit, days))
}

// decode reads the record set, writing a 400 and returning false when the body is unusable
func (h *InsightsHandler) decode(w http.ResponseWriter, r *http.Request) ([]models.DefectRecord, bool) {
	var req models.InsightRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInsightBody)).Decode(&req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", analytics.ErrInvalidInput, err))
		return nil, false
	}

	records, skipped, err := analytics.FromRaw(req.Defects)
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}

	h.logger.Info("POST "+r.URL.Path,
		slog.Int("records", len(records)),
		slog.Int("skipped", skipped))
	return records, true
}
