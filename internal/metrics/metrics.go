// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Snapshot store metrics
	IncSnapshotCacheHit()
	IncSnapshotCacheMiss()

	// Fetch pipeline metrics
	IncDownload(status string) // status: "success" or "failed"
	ObserveFetchBatchSize(size int)
	ObserveFetchDuration(duration time.Duration)

	// Aggregation metrics
	ObserveAggregationDuration(duration time.Duration)

	// Metadata client metrics
	IncMetadataCacheHit()
	IncMetadataCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
