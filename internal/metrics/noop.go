package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncSnapshotCacheHit is a no-op.
func (n *NoopRecorder) IncSnapshotCacheHit() {}

// IncSnapshotCacheMiss is a no-op.
func (n *NoopRecorder) IncSnapshotCacheMiss() {}

// IncDownload is a no-op.
func (n *NoopRecorder) IncDownload(status string) {}

// ObserveFetchBatchSize is a no-op.
func (n *NoopRecorder) ObserveFetchBatchSize(size int) {}

// ObserveFetchDuration is a no-op.
func (n *NoopRecorder) ObserveFetchDuration(duration time.Duration) {}

// ObserveAggregationDuration is a no-op.
func (n *NoopRecorder) ObserveAggregationDuration(duration time.Duration) {}

// IncMetadataCacheHit is a no-op.
func (n *NoopRecorder) IncMetadataCacheHit() {}

// IncMetadataCacheMiss is a no-op.
func (n *NoopRecorder) IncMetadataCacheMiss() {}
