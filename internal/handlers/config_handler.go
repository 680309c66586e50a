package handlers

import (
	"net/http"

	"defectinsight/internal/config"
	"defectinsight/internal/services"
)

// ConfigHandler handles GET /api/config to expose the analytics and paging
// settings a frontend needs for its defaults.
type ConfigHandler struct {
	resp ConfigResponse
}

// AnalyticsSettings mirrors the corpus snapshot settings
type AnalyticsSettings struct {
	CacheTTLSeconds  float64 `json:"cache_ttl_seconds"`
	TopN             int     `json:"top_n"`
	RecentWindowDays float64 `json:"recent_window_days"`
}

// PagingSettings describes the defects listing limits
type PagingSettings struct {
	DefaultPageSize int `json:"default_page_size"`
	MaxPageSize     int `json:"max_page_size"`
}

// GenerateSettings are the dummy data defaults
type GenerateSettings struct {
	Count         int `json:"count"`
	AircraftCount int `json:"aircraft_count"`
	Days          int `json:"days"`
}

// ConfigResponse is the JSON response for GET /api/config.
type ConfigResponse struct {
	Analytics AnalyticsSettings `json:"analytics"`
	Paging    PagingSettings    `json:"paging"`
	Generate  GenerateSettings  `json:"generate"`
}

// NewConfigHandler creates a new ConfigHandler from the loaded config.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{resp: ConfigResponse{
		Analytics: AnalyticsSettings{
			CacheTTLSeconds:  cfg.Analytics.CacheTTL.Std().Seconds(),
			TopN:             cfg.Analytics.TopN,
			RecentWindowDays: cfg.Analytics.RecentWindow.Std().Hours() / 24,
		},
		Paging: PagingSettings{
			DefaultPageSize: services.DefaultPageSize,
			MaxPageSize:     services.MaxPageSize,
		},
		Generate: GenerateSettings{
			Count:         cfg.Data.GenerateCount,
			AircraftCount: cfg.Data.AircraftCount,
			Days:          cfg.Data.GenerateDays,
		},
	}}
}

// Handle responds with the settings
func (h *ConfigHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resp)
}
