// Package model defines domain entities for the application.
package model

import "encoding/json"

// CounterStats is a hit counter with an optional per-country breakdown.
// Snapshot files contain either a bare integer (legacy format) or an object
// {"hits": N, "hitsPerCountry": {...}}. Both decode into this one shape so
// downstream code never branches on value type.
type CounterStats struct {
	Hits           int            `json:"hits"`
	HitsPerCountry map[string]int `json:"hitsPerCountry,omitempty"`
}

// counterStatsAlias avoids recursing into UnmarshalJSON.
type counterStatsAlias CounterStats

// UnmarshalJSON accepts both the legacy bare-int form and the object form.
func (c *CounterStats) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		c.Hits = n
		c.HitsPerCountry = nil
		return nil
	}

	var obj counterStatsAlias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = CounterStats(obj)
	return nil
}

// ErrorStats holds hit counts for one HTTP status code.
type ErrorStats struct {
	Hits  int            `json:"hits"`
	Paths map[string]int `json:"paths,omitempty"`
}

// Document is one dated snapshot of cumulative-since-last-publish counters
// for a single source or server. Absent keys mean zero, never null.
type Document struct {
	Hits            int                     `json:"hits"`
	Errors          map[string]ErrorStats   `json:"errors,omitempty"`
	HitsPerCountry  map[string]int          `json:"hitsPerCountry,omitempty"`
	HitsPerLanguage map[string]int          `json:"hitsPerLanguage,omitempty"`
	Paths           map[string]CounterStats `json:"paths,omitempty"`
	Queries         map[string]CounterStats `json:"queries,omitempty"`
}

// TotalErrorHits sums hit counts across all error status codes.
func (d *Document) TotalErrorHits() int {
	total := 0
	for _, e := range d.Errors {
		total += e.Hits
	}
	return total
}

// MergedDocument is the additive combination of same-date snapshots from
// all servers of a source. Servers lists the origins whose files loaded.
type MergedDocument struct {
	Document
	Servers []string `json:"servers"`
}
