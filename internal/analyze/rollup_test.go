package analyze

import (
	"math"
	"reflect"
	"testing"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
)

func TestReduceRollups(t *testing.T) {
	t.Parallel()

	records := []entityHits{
		{key: "/a", date: "2025-08-01", hits: 10},
		{key: "/a", date: "2025-08-02", hits: 20},
		{key: "/b", date: "2025-08-01", hits: 5},
	}

	got := reduceRollups(records, true)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	a := got[0]
	if a.Key != "/a" || a.TotalHits != 30 || a.Appearances != 2 {
		t.Errorf("rollup[0] = %+v", a)
	}
	if math.Abs(a.AvgHits-15) > 1e-9 {
		t.Errorf("AvgHits = %v, want 15", a.AvgHits)
	}
	if !reflect.DeepEqual(a.Dates, []string{"2025-08-01", "2025-08-02"}) {
		t.Errorf("Dates = %v", a.Dates)
	}

	b := got[1]
	if b.Key != "/b" || b.TotalHits != 5 || b.Appearances != 1 || b.AvgHits != 5 {
		t.Errorf("rollup[1] = %+v", b)
	}
}

func TestReduceRollups_TieBreaksOnKey(t *testing.T) {
	t.Parallel()

	records := []entityHits{
		{key: "zz", date: "2025-08-01", hits: 7},
		{key: "aa", date: "2025-08-01", hits: 7},
		{key: "mm", date: "2025-08-01", hits: 7},
	}

	got := reduceRollups(records, false)
	keys := []string{got[0].Key, got[1].Key, got[2].Key}
	if !reflect.DeepEqual(keys, []string{"aa", "mm", "zz"}) {
		t.Errorf("tie order = %v", keys)
	}
	if got[0].Dates != nil {
		t.Errorf("Dates should be omitted when withDates is false, got %v", got[0].Dates)
	}
}

func TestReduceRollups_Empty(t *testing.T) {
	t.Parallel()

	got := reduceRollups(nil, true)
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRankItems(t *testing.T) {
	t.Parallel()

	counters := map[string]int{"DE": 2, "US": 8, "FR": 2, "NL": 1}
	got := topIntItems(counters, 3)

	want := []model.TopItem{{Key: "US", Hits: 8}, {Key: "DE", Hits: 2}, {Key: "FR", Hits: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topIntItems = %v, want %v", got, want)
	}
}

func TestTopCounterItems(t *testing.T) {
	t.Parallel()

	counters := map[string]model.CounterStats{
		"/a": {Hits: 3},
		"/b": {Hits: 9},
	}
	got := topCounterItems(counters, 10)
	want := []model.TopItem{{Key: "/b", Hits: 9}, {Key: "/a", Hits: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topCounterItems = %v, want %v", got, want)
	}
}
