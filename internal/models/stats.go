package models

import "time"

// CountryStat is one entry of the per-country breakdown.
// Percentage is round(count/total*100) for the input that produced it.
type CountryStat struct {
	Country    string `json:"country"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TimeRangeStats holds rolling new-server counts for the dashboard cards.
type TimeRangeStats struct {
	Last24h int `json:"last24h"`
	Last7d  int `json:"last7d"`
	Last30d int `json:"last30d"`
}

// Stats is the aggregate view over the full server inventory.
// It is derived from scratch on every computation and never persisted.
type Stats struct {
	TotalServers int `json:"totalServers"`

	StatusCounts   map[string]int `json:"statusCounts"`
	PlatformCounts map[string]int `json:"platformCounts"`
	CountryCounts  map[string]int `json:"countryCounts"`
	ArchCounts     map[string]int `json:"archCounts"`
	OSCounts       map[string]int `json:"osCounts"`

	// CountryStats is sorted by count descending; equal counts keep the
	// order in which the country was first observed in the input.
	CountryStats []CountryStat `json:"countryStats"`

	TimeRangeStats TimeRangeStats `json:"timeRangeStats"`

	// NewServersCount is the number of records created inside the
	// requested window; zero (with nil bounds) when no window was given.
	NewServersCount int        `json:"newServersCount"`
	FilterStart     *time.Time `json:"filterStart,omitempty"`
	FilterEnd       *time.Time `json:"filterEnd,omitempty"`
}
