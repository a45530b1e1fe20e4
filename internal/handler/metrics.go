package handler

import (
	"fmt"
	"net/http"

	"github.com/kitswas/fdroid-metrics-dashboard/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "fdroid_metrics_snapshot_cache_hits_total %d\n", snap.SnapshotCacheHits)
	writeMetric(w, "fdroid_metrics_snapshot_cache_misses_total %d\n", snap.SnapshotCacheMisses)

	writeMetric(w, "fdroid_metrics_downloads_total{status=\"success\"} %d\n", snap.DownloadsSucceeded)
	writeMetric(w, "fdroid_metrics_downloads_total{status=\"failed\"} %d\n", snap.DownloadsFailed)
	writeMetric(w, "fdroid_metrics_fetch_batches_total %d\n", snap.FetchBatchCount)
	writeMetric(w, "fdroid_metrics_fetch_batch_size_sum %d\n", snap.FetchBatchSizeTotal)
	writeMetric(w, "fdroid_metrics_fetch_duration_seconds_count %d\n", snap.FetchDurationCount)
	writeMetric(w, "fdroid_metrics_fetch_duration_seconds_sum %.6f\n", float64(snap.FetchDurationTotalNs)/1e9)

	writeMetric(w, "fdroid_metrics_aggregation_duration_seconds_count %d\n", snap.AggregationCount)
	writeMetric(w, "fdroid_metrics_aggregation_duration_seconds_sum %.6f\n", float64(snap.AggregationTotalNs)/1e9)

	writeMetric(w, "fdroid_metrics_metadata_cache_hits_total %d\n", snap.MetadataCacheHits)
	writeMetric(w, "fdroid_metrics_metadata_cache_misses_total %d\n", snap.MetadataCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
