package analyze

import (
	"sort"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

// entityHits is one (entity, date, hits) observation. Observations are
// only emitted for strictly positive hits, so each one counts as an
// appearance.
type entityHits struct {
	key  string
	date string
	hits int
}

// reduceRollups groups observations by entity key and reduces them to
// rollup records: total hits, appearance count, average hits per active
// appearance. Results sort descending by total hits; ties break on key so
// output is deterministic. Dates are included per record when withDates
// is set.
func reduceRollups(records []entityHits, withDates bool) []model.Rollup {
	byKey := make(map[string]*model.Rollup)
	for _, r := range records {
		acc, ok := byKey[r.key]
		if !ok {
			acc = &model.Rollup{Key: r.key}
			byKey[r.key] = acc
		}
		acc.TotalHits += r.hits
		acc.Appearances++
		if withDates {
			acc.Dates = append(acc.Dates, r.date)
		}
	}

	rollups := make([]model.Rollup, 0, len(byKey))
	for _, acc := range byKey {
		if acc.Appearances > 0 {
			acc.AvgHits = float64(acc.TotalHits) / float64(acc.Appearances)
		}
		sort.Strings(acc.Dates)
		rollups = append(rollups, *acc)
	}

	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].TotalHits != rollups[j].TotalHits {
			return rollups[i].TotalHits > rollups[j].TotalHits
		}
		return rollups[i].Key < rollups[j].Key
	})
	return rollups
}

// topCounterItems ranks a counter map descending by hits, truncated to
// limit. Ties break on key for deterministic output.
func topCounterItems(counters map[string]model.CounterStats, limit int) []model.TopItem {
	items := make([]model.TopItem, 0, len(counters))
	for key, stats := range counters {
		items = append(items, model.TopItem{Key: key, Hits: stats.Hits})
	}
	return rankItems(items, limit)
}

// topIntItems ranks a plain int map descending by hits, truncated to limit.
func topIntItems(counters map[string]int, limit int) []model.TopItem {
	items := make([]model.TopItem, 0, len(counters))
	for key, hits := range counters {
		items = append(items, model.TopItem{Key: key, Hits: hits})
	}
	return rankItems(items, limit)
}

func rankItems(items []model.TopItem, limit int) []model.TopItem {
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	sort.SliceStable(items, func(i, j int) bool { return items[i].Hits > items[j].Hits })
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
