package models

import "encoding/json"

// InsightRequest is the request body carrying a caller supplied record set.
// Entries stay raw so malformed ones can be dropped one by one.
type InsightRequest struct {
	Defects []json.RawMessage `json:"defects"`
}

// AircraftMTBF pairs an aircraft with its mean days between reports
type AircraftMTBF struct {
	Aircraft string  `json:"aircraft" yaml:"aircraft"`
	MTBFDays float64 `json:"mtbf_days" yaml:"mtbf_days"`
}

// InsightReport bundles every record-set metric for one input
type InsightReport struct {
	Insights             InsightResult   `json:"insights" yaml:"insights"`
	SeverityDistribution map[string]int  `json:"severity_distribution" yaml:"severity_distribution"`
	TopAircraft          []AircraftCount `json:"top_aircraft" yaml:"top_aircraft"`
	Trends               []TrendBucket   `json:"trends" yaml:"trends"`
	MTBF                 []AircraftMTBF  `json:"mtbf" yaml:"mtbf"`
}
