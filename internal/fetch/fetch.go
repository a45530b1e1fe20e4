// Package fetch downloads dated snapshot files from the remote metrics
// publication into the local snapshot store.
//
// The remote layout is one directory per server containing an index.json
// (a flat array of filenames) next to the dated snapshot files. Fetching
// always drives off the remote index, never bare calendar days, so a date
// a server never published is never requested.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/model"
	"github.com/kitswas/fdroid-metrics-dashboard/internal/store"
)

const (
	// DefaultBatchSize is the number of concurrent downloads per batch.
	DefaultBatchSize = 8
	// DefaultMaxRangeDays caps the span of one fetch-range call.
	DefaultMaxRangeDays = 730
)

// Options carries optional per-call observers. Progress reports overall
// completion monotonically from 0 to 1; Status describes each finished
// download. Both may be nil. Callbacks run serialized on fetch goroutines
// and must not block.
type Options struct {
	Progress func(fraction float64)
	Status   func(message string)
}

// Fetcher downloads remote snapshots into a Store.
type Fetcher struct {
	store        *store.Store
	client       *http.Client
	logger       *slog.Logger
	metrics      metrics.Recorder
	batchSize    int
	maxRangeDays int
}

// New creates a Fetcher writing into st. A nil client gets the default
// timeout configuration; batchSize and maxRangeDays fall back to the
// package defaults when non-positive.
func New(st *store.Store, client *http.Client, logger *slog.Logger, recorder metrics.Recorder, batchSize, maxRangeDays int) *Fetcher {
	if client == nil {
		client = NewHTTPClient(0)
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &Fetcher{
		store:        st,
		client:       client,
		logger:       logger.With("component", "fetch"),
		metrics:      recorder,
		batchSize:    batchSize,
		maxRangeDays: maxRangeDays,
	}
}

// RemoteDates returns the sorted union of snapshot dates listed in the
// source's per-server index files. A server whose index cannot be fetched
// or parsed is logged and contributes zero dates.
func (f *Fetcher) RemoteDates(ctx context.Context, source Source) ([]string, error) {
	seen := make(map[string]struct{})
	for _, server := range source.Servers {
		dates, err := f.serverDates(ctx, source, server)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("remote index unavailable",
				"source", source.Name, "server", server, "error", err)
			continue
		}
		for _, d := range dates {
			seen[d] = struct{}{}
		}
	}

	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// serverDates fetches and parses one server's index.json.
func (f *Fetcher) serverDates(ctx context.Context, source Source, server string) ([]string, error) {
	url := source.serverURL(server) + "/index.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch index: unexpected status %d", resp.StatusCode)
	}

	var filenames []string
	if err := json.NewDecoder(resp.Body).Decode(&filenames); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	dates := make([]string, 0, len(filenames))
	for _, name := range filenames {
		if name == store.SentinelFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		stem := strings.TrimSuffix(name, ".json")
		if !store.ValidDate(stem) {
			continue
		}
		dates = append(dates, stem)
	}
	sort.Strings(dates)
	return dates, nil
}

// fetchTask is one (server, date) download.
type fetchTask struct {
	server string
	date   string
}

// FetchRange downloads every snapshot the source's servers list within
// the inclusive [start, end] range, overwriting local copies. Individual
// download failures are recorded in the report and do not abort the run.
// The call blocks until every task has been attempted, unless the
// context is cancelled, in which case remaining batches are left
// unattempted and the report covers only what ran.
func (f *Fetcher) FetchRange(ctx context.Context, source Source, start, end string, opts Options) (*model.FetchReport, error) {
	startDay, err := time.Parse(store.DateFormat, start)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q", ErrInvalidRange, start)
	}
	endDay, err := time.Parse(store.DateFormat, end)
	if err != nil {
		return nil, fmt.Errorf("%w: end %q", ErrInvalidRange, end)
	}
	if startDay.After(endDay) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidRange, start, end)
	}
	if days := int(endDay.Sub(startDay).Hours()/24) + 1; days > f.maxRangeDays {
		return nil, fmt.Errorf("%w: %d days exceeds limit of %d", ErrRangeTooLarge, days, f.maxRangeDays)
	}

	// Each server downloads only the dates its own index lists.
	var tasks []fetchTask
	for _, server := range source.Servers {
		dates, err := f.serverDates(ctx, source, server)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("remote index unavailable",
				"source", source.Name, "server", server, "error", err)
			continue
		}
		for _, date := range dates {
			if date >= start && date <= end {
				tasks = append(tasks, fetchTask{server: server, date: date})
			}
		}
	}

	report := &model.FetchReport{
		ID:         ulid.Make().String(),
		TotalFiles: len(tasks),
	}
	f.logger.Info("fetch range started",
		"report_id", report.ID, "source", source.Name,
		"start", start, "end", end, "files", len(tasks))

	var (
		mu        sync.Mutex
		completed int
	)
	finish := func(task fetchTask, err error) {
		if err != nil {
			f.metrics.IncDownload("failed")
		} else {
			f.metrics.IncDownload("success")
		}

		// Callbacks run under the same lock as the counter so fractions
		// are delivered in the order they were computed.
		mu.Lock()
		defer mu.Unlock()
		completed++
		fraction := float64(completed) / float64(len(tasks))
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s/%s: %v", task.server, task.date, err))
		} else {
			report.Successful++
		}
		if opts.Progress != nil {
			opts.Progress(fraction)
		}
		if opts.Status != nil {
			if err != nil {
				opts.Status(fmt.Sprintf("failed %s/%s: %v", task.server, task.date, err))
			} else {
				opts.Status(fmt.Sprintf("fetched %s/%s", task.server, task.date))
			}
		}
	}

	batchStart := time.Now()
	for i := 0; i < len(tasks); i += f.batchSize {
		batch := tasks[i:min(i+f.batchSize, len(tasks))]
		f.metrics.ObserveFetchBatchSize(len(batch))

		var wg sync.WaitGroup
		for _, task := range batch {
			wg.Add(1)
			go func(task fetchTask) {
				defer wg.Done()
				finish(task, f.download(ctx, source, task))
			}(task)
		}
		wg.Wait()

		if ctx.Err() != nil {
			break
		}
	}
	f.metrics.ObserveFetchDuration(time.Since(batchStart))

	f.logger.Info("fetch range finished",
		"report_id", report.ID, "successful", report.Successful, "failed", report.Failed)
	return report, nil
}

// download retrieves one snapshot file and writes it to the store,
// overwriting any existing local copy.
func (f *Fetcher) download(ctx context.Context, source Source, task fetchTask) error {
	url := source.serverURL(task.server) + "/" + task.date + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read snapshot body: %w", err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("snapshot is not valid JSON")
	}

	return f.store.WriteSnapshot(task.server, task.date, raw)
}

// MissingDates returns remote dates with no local snapshot, sorted.
func (f *Fetcher) MissingDates(ctx context.Context, source Source) ([]string, error) {
	remote, err := f.RemoteDates(ctx, source)
	if err != nil {
		return nil, err
	}
	local, err := f.store.AvailableDates(source.Servers...)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(local))
	for _, d := range local {
		have[d] = struct{}{}
	}

	missing := make([]string, 0)
	for _, d := range remote {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing, nil
}

// CheckAvailability compares local snapshot presence against the remote
// index for a source.
func (f *Fetcher) CheckAvailability(ctx context.Context, source Source) (*model.Availability, error) {
	remote, err := f.RemoteDates(ctx, source)
	if err != nil {
		return nil, err
	}
	local, err := f.store.AvailableDates(source.Servers...)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(local))
	for _, d := range local {
		have[d] = struct{}{}
	}
	missing := make([]string, 0)
	for _, d := range remote {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}

	return &model.Availability{
		LocalCount:   len(local),
		RemoteCount:  len(remote),
		LocalRange:   rangeOf(local),
		RemoteRange:  rangeOf(remote),
		MissingDates: missing,
	}, nil
}

func rangeOf(dates []string) model.DateRange {
	if len(dates) == 0 {
		return model.DateRange{}
	}
	return model.DateRange{First: dates[0], Last: dates[len(dates)-1]}
}
