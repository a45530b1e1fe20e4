package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	SnapshotCacheHits     uint64
	SnapshotCacheMisses   uint64
	DownloadsSucceeded    uint64
	DownloadsFailed       uint64
	FetchBatchCount       uint64
	FetchBatchSizeTotal   int64
	FetchDurationCount    uint64
	FetchDurationTotalNs  int64
	AggregationCount      uint64
	AggregationTotalNs    int64
	MetadataCacheHits     uint64
	MetadataCacheMisses   uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	snapshotCacheHits    uint64
	snapshotCacheMisses  uint64
	downloadsSucceeded   uint64
	downloadsFailed      uint64
	fetchBatchCount      uint64
	fetchBatchSizeTotal  int64
	fetchDurationCount   uint64
	fetchDurationTotalNs int64
	aggregationCount     uint64
	aggregationTotalNs   int64
	metadataCacheHits    uint64
	metadataCacheMisses  uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		SnapshotCacheHits:    atomic.LoadUint64(&m.snapshotCacheHits),
		SnapshotCacheMisses:  atomic.LoadUint64(&m.snapshotCacheMisses),
		DownloadsSucceeded:   atomic.LoadUint64(&m.downloadsSucceeded),
		DownloadsFailed:      atomic.LoadUint64(&m.downloadsFailed),
		FetchBatchCount:      atomic.LoadUint64(&m.fetchBatchCount),
		FetchBatchSizeTotal:  atomic.LoadInt64(&m.fetchBatchSizeTotal),
		FetchDurationCount:   atomic.LoadUint64(&m.fetchDurationCount),
		FetchDurationTotalNs: atomic.LoadInt64(&m.fetchDurationTotalNs),
		AggregationCount:     atomic.LoadUint64(&m.aggregationCount),
		AggregationTotalNs:   atomic.LoadInt64(&m.aggregationTotalNs),
		MetadataCacheHits:    atomic.LoadUint64(&m.metadataCacheHits),
		MetadataCacheMisses:  atomic.LoadUint64(&m.metadataCacheMisses),
	}
}

// IncSnapshotCacheHit increments the snapshot cache hit counter.
func (m *InMemoryRecorder) IncSnapshotCacheHit() {
	atomic.AddUint64(&m.snapshotCacheHits, 1)
}

// IncSnapshotCacheMiss increments the snapshot cache miss counter.
func (m *InMemoryRecorder) IncSnapshotCacheMiss() {
	atomic.AddUint64(&m.snapshotCacheMisses, 1)
}

// IncDownload increments the download counter for the given status.
func (m *InMemoryRecorder) IncDownload(status string) {
	if status == "success" {
		atomic.AddUint64(&m.downloadsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.downloadsFailed, 1)
}

// ObserveFetchBatchSize records a fetch batch size.
func (m *InMemoryRecorder) ObserveFetchBatchSize(size int) {
	atomic.AddUint64(&m.fetchBatchCount, 1)
	atomic.AddInt64(&m.fetchBatchSizeTotal, int64(size))
}

// ObserveFetchDuration records a fetch run duration.
func (m *InMemoryRecorder) ObserveFetchDuration(duration time.Duration) {
	atomic.AddUint64(&m.fetchDurationCount, 1)
	atomic.AddInt64(&m.fetchDurationTotalNs, duration.Nanoseconds())
}

// ObserveAggregationDuration records an aggregation duration.
func (m *InMemoryRecorder) ObserveAggregationDuration(duration time.Duration) {
	atomic.AddUint64(&m.aggregationCount, 1)
	atomic.AddInt64(&m.aggregationTotalNs, duration.Nanoseconds())
}

// IncMetadataCacheHit increments the metadata cache hit counter.
func (m *InMemoryRecorder) IncMetadataCacheHit() {
	atomic.AddUint64(&m.metadataCacheHits, 1)
}

// IncMetadataCacheMiss increments the metadata cache miss counter.
func (m *InMemoryRecorder) IncMetadataCacheMiss() {
	atomic.AddUint64(&m.metadataCacheMisses, 1)
}
