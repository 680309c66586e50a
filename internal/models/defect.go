package models

import (
	"strings"
	"time"
)

// Severity is the ordered severity level of a defect report
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Severities lists all severity levels from lowest to highest
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// ParseSeverity maps a case-insensitive label to a Severity
func ParseSeverity(s string) (Severity, bool) {
	for _, sev := range Severities {
		if strings.EqualFold(strings.TrimSpace(s), string(sev)) {
			return sev, true
		}
	}
	return "", false
}

// DefectRecord represents a single aircraft defect report
type DefectRecord struct {
	ID                   string   `json:"id"`
	AircraftRegistration string   `json:"aircraft_registration"`
	ReportedAt           string   `json:"reported_at"` // caller supplied, format not guaranteed
	DefectType           string   `json:"defect_type"`
	Description          string   `json:"description"`
	Severity             Severity `json:"severity"`
}

// AircraftCount is a single entry of an aircraft ranking
type AircraftCount struct {
	Aircraft    string `json:"aircraft" yaml:"aircraft"`
	DefectCount int    `json:"defect_count" yaml:"defect_count"`
}

// TrendBucket holds the number of reports for one UTC calendar day
type TrendBucket struct {
	Date  string `json:"date" yaml:"date"` // YYYY-MM-DD
	Count int    `json:"count" yaml:"count"`
}

// InsightResult is the headline result of the record-set path
type InsightResult struct {
	DailyDefectRate float64 `json:"daily_defect_rate" yaml:"daily_defect_rate"`
	TotalDefects    int     `json:"total_defects" yaml:"total_defects"`
	DateRangeDays   int     `json:"date_range_days" yaml:"date_range_days"`
}

// AnalyticsSnapshot is the full-corpus analytics computed by the store
type AnalyticsSnapshot struct {
	SeverityDistribution map[string]int  `json:"severity_distribution" yaml:"severity_distribution"`
	TopAircraft          []AircraftCount `json:"top_aircraft" yaml:"top_aircraft"`
	TotalDefects         int             `json:"total_defects" yaml:"total_defects"`
	HighSeverityCount    int             `json:"high_severity_count" yaml:"high_severity_count"`
	RecentDefects7d      int             `json:"recent_defects_7d" yaml:"recent_defects_7d"`
	TotalUniqueAircraft  int             `json:"total_unique_aircraft" yaml:"total_unique_aircraft"`
	ComputedAt           time.Time       `json:"computed_at" yaml:"computed_at"`
}

// DefectPage is one page of defect records
type DefectPage struct {
	Data     []DefectRecord `json:"data"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	HasMore  bool           `json:"has_more"`
}

// DefectFilter narrows defect listings
type DefectFilter struct {
	AircraftRegistration string
	Severity             Severity
}
