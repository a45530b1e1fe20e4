// Package merge combines per-server snapshot documents for one date into
// a single logical document with additive semantics.
package merge

import "github.com/kitswas/fdroid-metrics-dashboard/internal/model"

// Contribution is one server's loaded document for the date being merged.
// Servers whose file failed to load are simply not passed in.
type Contribution struct {
	Server string
	Doc    *model.Document
}

// Merge additively combines the contributions into one document. The
// result is independent of contribution order apart from the Servers
// list, which records contributors as supplied: every scalar and nested
// counter is the elementwise sum, and a key present in any contributor
// is present in the result.
func Merge(contributions []Contribution) *model.MergedDocument {
	merged := &model.MergedDocument{
		Document: model.Document{
			Errors:          make(map[string]model.ErrorStats),
			HitsPerCountry:  make(map[string]int),
			HitsPerLanguage: make(map[string]int),
			Paths:           make(map[string]model.CounterStats),
			Queries:         make(map[string]model.CounterStats),
		},
		Servers: make([]string, 0, len(contributions)),
	}

	for _, c := range contributions {
		if c.Doc == nil {
			continue
		}
		merged.Servers = append(merged.Servers, c.Server)
		merged.Hits += c.Doc.Hits

		for code, errStats := range c.Doc.Errors {
			acc := merged.Errors[code]
			acc.Hits += errStats.Hits
			if acc.Paths == nil {
				acc.Paths = make(map[string]int)
			}
			for path, hits := range errStats.Paths {
				acc.Paths[path] += hits
			}
			merged.Errors[code] = acc
		}

		for country, hits := range c.Doc.HitsPerCountry {
			merged.HitsPerCountry[country] += hits
		}
		for lang, hits := range c.Doc.HitsPerLanguage {
			merged.HitsPerLanguage[lang] += hits
		}

		mergeCounters(merged.Paths, c.Doc.Paths)
		mergeCounters(merged.Queries, c.Doc.Queries)
	}

	return merged
}

// mergeCounters adds src counter entries into dst, summing both the hit
// scalars and the nested per-country maps.
func mergeCounters(dst, src map[string]model.CounterStats) {
	for key, stats := range src {
		acc := dst[key]
		acc.Hits += stats.Hits
		if len(stats.HitsPerCountry) > 0 {
			if acc.HitsPerCountry == nil {
				acc.HitsPerCountry = make(map[string]int)
			}
			for country, hits := range stats.HitsPerCountry {
				acc.HitsPerCountry[country] += hits
			}
		}
		dst[key] = acc
	}
}
