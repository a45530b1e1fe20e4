package model

// Rollup aggregates one entity (path, query, country, package) across a
// date range. Appearances counts only dates where the entity's hits were
// strictly positive; AvgHits is TotalHits/Appearances, or 0 when the
// entity never appeared.
type Rollup struct {
	Key         string   `json:"key"`
	TotalHits   int      `json:"total_hits"`
	Appearances int      `json:"appearances"`
	AvgHits     float64  `json:"avg_hits"`
	Dates       []string `json:"dates,omitempty"`
}

// PackageDownloads holds download statistics for a single package,
// recomputed fresh from merged documents on every query.
type PackageDownloads struct {
	PackageID      string         `json:"package_id"`
	TotalDownloads int            `json:"total_downloads"`
	Versions       map[string]int `json:"versions"`
	APIHits        int            `json:"api_hits"`
	Countries      map[string]int `json:"countries"`
	DatesActive    []string       `json:"dates_active"`
}

// PackageActivity is the cross-sectional view of one package's download
// and API activity across a date range.
type PackageActivity struct {
	PackageID      string `json:"package_id"`
	TotalDownloads int    `json:"total_downloads"`
	TotalVersions  int    `json:"total_versions"`
	APIHits        int    `json:"api_hits"`
	DatesActive    int    `json:"dates_active"`
}

// PackageSummary is the per-package artifact consumed by the external
// badge-rendering service. Field names and types are a stable contract.
type PackageSummary struct {
	PackageID      string `json:"package_id"`
	TotalDownloads int    `json:"total_downloads"`
	APIHits        int    `json:"api_hits"`
	Versions       int    `json:"versions"`
	SearchCount    int    `json:"search_count"`
}
