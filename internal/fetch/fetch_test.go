package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/testutil"
)

// fakeRemote serves a static remote metrics layout: one index.json plus
// snapshot files per server directory.
type fakeRemote struct {
	mu    sync.Mutex
	files map[string][]byte // request path -> body
	hits  map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: make(map[string][]byte), hits: make(map[string]int)}
}

func (r *fakeRemote) addServer(t *testing.T, server string, snapshots map[string]*model.Document, extraIndex ...string) {
	t.Helper()

	prefix := "/"
	if server != "" {
		prefix = "/" + server + "/"
	}

	index := append([]string{}, extraIndex...)
	for date, doc := range snapshots {
		index = append(index, date+".json")
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal snapshot: %v", err)
		}
		r.files[prefix+date+".json"] = raw
	}

	raw, err := json.Marshal(index)
	if err != nil {
		t.Fatalf("marshal index: %v", err)
	}
	r.files[prefix+"index.json"] = raw
}

func (r *fakeRemote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits[req.URL.Path]++
	body, ok := r.files[req.URL.Path]
	r.mu.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (r *fakeRemote) hitCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[path]
}

func newFetcher(t *testing.T) (*Fetcher, *store.Store) {
	t.Helper()

	st, err := store.New(t.TempDir(), 100, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	f := New(st, nil, testutil.DiscardLogger(), nil, 2, 0)
	return f, st
}

func TestRemoteDates_Union(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{
		"2025-08-01": {}, "2025-08-02": {},
	}, store.SentinelFile, "not-a-date.json", "README.md")
	remote.addServer(t, "s2", map[string]*model.Document{
		"2025-08-02": {}, "2025-08-03": {},
	})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, _ := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1", "s2"}}

	dates, err := f.RemoteDates(context.Background(), source)
	if err != nil {
		t.Fatalf("RemoteDates: %v", err)
	}
	want := []string{"2025-08-01", "2025-08-02", "2025-08-03"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestRemoteDates_FailingServerContributesNothing(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "good", map[string]*model.Document{"2025-08-01": {}})
	// "down" has no index.json; the handler answers 404.
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, _ := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"good", "down"}}

	dates, err := f.RemoteDates(context.Background(), source)
	if err != nil {
		t.Fatalf("RemoteDates: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2025-08-01"}) {
		t.Errorf("dates = %v", dates)
	}
}

func TestFetchRange(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{
		"2025-08-01": {Hits: 1},
		"2025-08-02": {Hits: 2},
		"2025-08-09": {Hits: 9}, // outside the requested range
	})
	remote.addServer(t, "s2", map[string]*model.Document{
		"2025-08-02": {Hits: 20},
	})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1", "s2"}}

	var (
		mu        sync.Mutex
		fractions []float64
		statuses  []string
	)
	opts := Options{
		Progress: func(fr float64) {
			mu.Lock()
			fractions = append(fractions, fr)
			mu.Unlock()
		},
		Status: func(msg string) {
			mu.Lock()
			statuses = append(statuses, msg)
			mu.Unlock()
		},
	}

	report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-05", opts)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.ID == "" {
		t.Error("report ID is empty")
	}
	if report.TotalFiles != 3 || report.Successful != 3 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}

	doc, err := st.Load("s2", "2025-08-02")
	if err != nil {
		t.Fatalf("Load after fetch: %v", err)
	}
	if doc.Hits != 20 {
		t.Errorf("Hits = %d, want 20", doc.Hits)
	}
	// The out-of-range date must not have been requested at all.
	if _, err := st.Load("s1", "2025-08-09"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("out-of-range date was fetched: %v", err)
	}
	if remote.hitCount("/s1/2025-08-09.json") != 0 {
		t.Error("out-of-range snapshot was requested")
	}

	if len(fractions) != 3 || fractions[len(fractions)-1] != 1.0 {
		t.Errorf("fractions = %v, want 3 values ending at 1.0", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress not monotonic: %v", fractions)
		}
	}
	if len(statuses) != 3 {
		t.Errorf("statuses = %v, want 3", statuses)
	}
}

func TestFetchRange_ProgressDeliveredInOrder(t *testing.T) {
	t.Parallel()

	// Enough same-batch tasks that goroutines routinely finish close
	// together; out-of-order delivery would surface as a decreasing
	// fraction.
	snapshots := make(map[string]*model.Document)
	for day := 1; day <= 20; day++ {
		snapshots[fmt.Sprintf("2025-08-%02d", day)] = &model.Document{Hits: day}
	}
	remote := newFakeRemote()
	remote.addServer(t, "s1", snapshots)
	srv := httptest.NewServer(remote)
	defer srv.Close()

	st, err := store.New(t.TempDir(), 100, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	f := New(st, nil, testutil.DiscardLogger(), nil, 10, 0)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	// Callbacks are serialized by the fetcher, so no extra locking here.
	var fractions []float64
	opts := Options{Progress: func(fr float64) { fractions = append(fractions, fr) }}

	report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-20", opts)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.Successful != 20 {
		t.Fatalf("report = %+v", report)
	}

	if len(fractions) != 20 || fractions[len(fractions)-1] != 1.0 {
		t.Fatalf("fractions = %v, want 20 values ending at 1.0", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] <= fractions[i-1] {
			t.Fatalf("fraction %d (%v) not greater than previous (%v)", i, fractions[i], fractions[i-1])
		}
	}
}

func TestFetchRange_Idempotent(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{"2025-08-01": {Hits: 5}})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	for i := 0; i < 2; i++ {
		report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-01", Options{})
		if err != nil {
			t.Fatalf("FetchRange run %d: %v", i, err)
		}
		if report.Successful != 1 || report.Failed != 0 {
			t.Errorf("run %d report = %+v", i, report)
		}
	}

	// Re-fetch overwrites; the file is downloaded again, not skipped.
	if got := remote.hitCount("/s1/2025-08-01.json"); got != 2 {
		t.Errorf("snapshot requested %d times, want 2", got)
	}
	doc, err := st.Load("s1", "2025-08-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Hits != 5 {
		t.Errorf("Hits = %d, want 5", doc.Hits)
	}
}

func TestFetchRange_PartialFailure(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{"2025-08-01": {Hits: 1}})
	// Listed in the index but the file itself is missing upstream.
	remote.files["/s1/index.json"], _ = json.Marshal([]string{"2025-08-01.json", "2025-08-02.json"})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-02", Options{})
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.TotalFiles != 2 || report.Successful != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Errors) != 1 {
		t.Errorf("Errors = %v", report.Errors)
	}
	// The successful download still landed.
	if _, err := st.Load("s1", "2025-08-01"); err != nil {
		t.Errorf("Load: %v", err)
	}
}

func TestFetchRange_CancelledRunReportsOnlyAttempted(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{
		"2025-08-01": {Hits: 1},
		"2025-08-02": {Hits: 2},
		"2025-08-03": {Hits: 3},
	})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	st, err := store.New(t.TempDir(), 100, nil)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	f := New(st, nil, testutil.DiscardLogger(), nil, 1, 0)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := Options{Status: func(string) { cancel() }}

	report, err := f.FetchRange(ctx, source, "2025-08-01", "2025-08-03", opts)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.TotalFiles != 3 {
		t.Fatalf("TotalFiles = %d, want 3", report.TotalFiles)
	}
	// Cancelled after the first batch: the remaining tasks are left
	// unattempted, not counted as failures.
	if got := report.Successful + report.Failed; got != 1 {
		t.Errorf("attempted = %d, want 1 (report %+v)", got, report)
	}
}

func TestFetchRange_InvalidRange(t *testing.T) {
	t.Parallel()

	f, _ := newFetcher(t)
	source := Source{Name: "apps", BaseURL: "http://unused.invalid", Servers: []string{"s1"}}

	tests := []struct {
		name       string
		start, end string
		want       error
	}{
		{"start after end", "2025-08-02", "2025-08-01", ErrInvalidRange},
		{"bad start", "August 1st", "2025-08-01", ErrInvalidRange},
		{"bad end", "2025-08-01", "20250801", ErrInvalidRange},
		{"span too large", "2020-01-01", "2025-01-01", ErrRangeTooLarge},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.FetchRange(context.Background(), source, tt.start, tt.end, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetchRange_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.files["/s1/index.json"], _ = json.Marshal([]string{"2025-08-01.json"})
	remote.files["/s1/2025-08-01.json"] = []byte("<html>not json</html>")
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-01", Options{})
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, err := st.Load("s1", "2025-08-01"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("invalid payload was stored: %v", err)
	}
}

func TestMissingDatesAndAvailability(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "s1", map[string]*model.Document{
		"2025-08-01": {}, "2025-08-02": {}, "2025-08-03": {},
	})
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := Source{Name: "apps", BaseURL: srv.URL, Servers: []string{"s1"}}

	if err := st.WriteSnapshot("s1", "2025-08-02", []byte(`{"hits":1}`)); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	missing, err := f.MissingDates(context.Background(), source)
	if err != nil {
		t.Fatalf("MissingDates: %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"2025-08-01", "2025-08-03"}) {
		t.Errorf("missing = %v", missing)
	}

	avail, err := f.CheckAvailability(context.Background(), source)
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if avail.LocalCount != 1 || avail.RemoteCount != 3 {
		t.Errorf("availability = %+v", avail)
	}
	if avail.RemoteRange.First != "2025-08-01" || avail.RemoteRange.Last != "2025-08-03" {
		t.Errorf("remote range = %+v", avail.RemoteRange)
	}
	if avail.LocalRange.First != "2025-08-02" || avail.LocalRange.Last != "2025-08-02" {
		t.Errorf("local range = %+v", avail.LocalRange)
	}
	if !reflect.DeepEqual(avail.MissingDates, missing) {
		t.Errorf("MissingDates = %v", avail.MissingDates)
	}
}

func TestSearchSource_SingleOrigin(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.addServer(t, "", map[string]*model.Document{"2025-08-01": {Hits: 3}}, store.SentinelFile)
	srv := httptest.NewServer(remote)
	defer srv.Close()

	f, st := newFetcher(t)
	source := SearchSource(srv.URL)

	report, err := f.FetchRange(context.Background(), source, "2025-08-01", "2025-08-01", Options{})
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if report.Successful != 1 {
		t.Errorf("report = %+v", report)
	}
	doc, err := st.Load("", "2025-08-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Hits != 3 {
		t.Errorf("Hits = %d, want 3", doc.Hits)
	}
}
