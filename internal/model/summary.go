package model

// TopItem is one entry of a top-N ranking.
type TopItem struct {
	Key  string `json:"key"`
	Hits int    `json:"hits"`
}

// AppDailySummary holds merged statistics for one date of app metrics.
type AppDailySummary struct {
	Date          string    `json:"date"`
	TotalHits     int       `json:"total_hits"`
	ServersActive int       `json:"servers_active"`
	TotalErrors   int       `json:"total_errors"`
	TopCountries  []TopItem `json:"top_countries"`
	TopPaths      []TopItem `json:"top_paths"`
	UniquePaths   int       `json:"unique_paths"`
}

// SearchDailySummary holds statistics for one date of search metrics.
type SearchDailySummary struct {
	Date          string    `json:"date"`
	TotalHits     int       `json:"total_hits"`
	UniqueQueries int       `json:"unique_queries"`
	TotalErrors   int       `json:"total_errors"`
	TopCountries  []TopItem `json:"top_countries"`
	TopLanguages  []TopItem `json:"top_languages"`
	TopQueries    []TopItem `json:"top_queries"`
	TopPaths      []TopItem `json:"top_paths"`
}

// AppTimeSeriesRow is one date of the app metrics time series.
type AppTimeSeriesRow struct {
	Date          string `json:"date"`
	TotalHits     int    `json:"total_hits"`
	ServersActive int    `json:"servers_active"`
	TotalErrors   int    `json:"total_errors"`
	UniquePaths   int    `json:"unique_paths"`
}

// SearchTimeSeriesRow is one date of the search metrics time series.
type SearchTimeSeriesRow struct {
	Date          string `json:"date"`
	TotalHits     int    `json:"total_hits"`
	UniqueQueries int    `json:"unique_queries"`
	TotalErrors   int    `json:"total_errors"`
}

// ServerStats compares one server's activity for a single date.
// A server with no file for that date reports all-zero rather than
// being omitted, so the caller sees every server slot.
type ServerStats struct {
	Server      string `json:"server"`
	Hits        int    `json:"hits"`
	Errors      int    `json:"errors"`
	UniquePaths int    `json:"unique_paths"`
	Countries   int    `json:"countries"`
}
