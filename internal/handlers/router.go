package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers groups every API handler mounted by NewRouter
type Handlers struct {
	Query     *QueryHandler
	Insights  *InsightsHandler
	Load      *LoadHandler
	Upload    *UploadHandler
	Generator *GeneratorHandler
	Config    *ConfigHandler
	Health    *HealthHandler
	Metrics   http.Handler // nil disables /metrics
}

// NewRouter mounts the API routes
func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/defects", h.Query.Handle).Methods("GET")
	api.HandleFunc("/aircraft", h.Query.ListAircraft).Methods("GET")
	api.HandleFunc("/aircraft/search", h.Query.SearchAircraft).Methods("GET")
	api.HandleFunc("/analytics", h.Insights.Analytics).Methods("GET")
	api.HandleFunc("/insights", h.Insights.Insights).Methods("POST")
	api.HandleFunc("/insights/report", h.Insights.Report).Methods("POST")
	api.HandleFunc("/load", h.Load.Handle).Methods("POST")
	api.HandleFunc("/upload", h.Upload.Handle).Methods("POST")
	api.HandleFunc("/generate-dummy", h.Generator.Handle).Methods("POST")
	api.HandleFunc("/config", h.Config.Handle).Methods("GET")
	api.HandleFunc("/health", h.Health.Handle).Methods("GET")

	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods("GET")
	}
	return router
}
