package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"defectinsight/internal/logging"
	"defectinsight/internal/models"
	"defectinsight/internal/services"
)

// QueryHandler handles GET /api/defects and the aircraft lookups
type QueryHandler struct {
	queryService *services.QueryService
	logger       *slog.Logger
}

// NewQueryHandler creates a new QueryHandler instance
func NewQueryHandler(queryService *services.QueryService, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{queryService: queryService, logger: logging.Component(logger, "api")}
}

// Handle serves one page of defects:
// /api/defects?aircraft_registration=&severity=&page=&page_size=
func (h *QueryHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter models.DefectFilter
	filter.AircraftRegistration = q.Get("aircraft_registration")
	if s := q.Get("severity"); s != "" {
		sev, ok := models.ParseSeverity(s)
		if !ok {
			writeError(w, h.logger, fmt.Errorf("%w: unknown severity %q", services.ErrInvalidQuery, s))
			return
		}
		filter.Severity = sev
	}

	page, err := intParam(q.Get("page"), "page", 1)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	pageSize, err := intParam(q.Get("page_size"), "page_size", services.DefaultPageSize)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("GET /api/defects",
		slog.String("aircraft", filter.AircraftRegistration),
		slog.String("severity", string(filter.Severity)),
		slog.Int("page", page))

	result, err := h.queryService.ListDefects(r.Context(), filter, page, pageSize)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListAircraft serves GET /api/aircraft
func (h *QueryHandler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.queryService.ListAircraft(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aircraft)
}

// SearchAircraft serves GET /api/aircraft/search?q=
func (h *QueryHandler) SearchAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.queryService.SearchAircraft(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, aircraft)
}

// intParam parses an optional integer query parameter
func intParam(v, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", services.ErrInvalidQuery, name)
	}
	return n, nil
}
