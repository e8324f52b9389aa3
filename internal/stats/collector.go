// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Snapshot store metrics.
	MetricSnapshotSaves   = "catalogue_snapshot_saves_total"
	MetricSnapshotPartial = "catalogue_snapshot_partial_total"
	MetricSnapshotLoads   = "catalogue_snapshot_loads_total"
	MetricSnapshotMisses  = "catalogue_snapshot_misses_total"
	MetricStorageFailures = "catalogue_storage_failures_total"

	// Record cache metrics.
	MetricRecordCacheHits   = "catalogue_record_cache_hits_total"
	MetricRecordCacheMisses = "catalogue_record_cache_misses_total"
	MetricRecordCacheSize   = "catalogue_record_cache_size"

	// Interception layer metrics.
	MetricRequests          = "catalogue_requests_total"
	MetricPassthrough       = "catalogue_passthrough_total"
	MetricPartitionHits     = "catalogue_partition_hits_total"
	MetricPartitionMisses   = "catalogue_partition_misses_total"
	MetricNetworkFailures   = "catalogue_network_failures_total"
	MetricOfflineResponses  = "catalogue_offline_responses_total"
	MetricBackgroundErrors  = "catalogue_background_errors_total"
	MetricFetchSeconds      = "catalogue_fetch_seconds"
	MetricPartitionsDeleted = "catalogue_partitions_deleted_total"

	// Network status metrics.
	MetricOnline      = "catalogue_online"
	MetricTransitions = "catalogue_network_transitions_total"

	// Data loader metrics.
	MetricLoadsNetwork = "catalogue_loads_network_total"
	MetricLoadsCache   = "catalogue_loads_cache_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

var help = map[string]string{
	MetricSnapshotSaves:     "Complete snapshots written to the structured store.",
	MetricSnapshotPartial:   "Snapshot saves that failed part way and left metadata untouched.",
	MetricSnapshotLoads:     "Snapshots served from the structured store.",
	MetricSnapshotMisses:    "Snapshot loads that found no usable data.",
	MetricStorageFailures:   "Structured store operations that failed.",
	MetricRecordCacheHits:   "Record lookups served from the in-memory cache.",
	MetricRecordCacheMisses: "Record lookups that went to the backing store.",
	MetricRecordCacheSize:   "Records currently held in the in-memory cache.",
	MetricRequests:          "Requests seen by the interception layer.",
	MetricPassthrough:       "Requests forwarded without caching.",
	MetricPartitionHits:     "Responses served from a cache partition.",
	MetricPartitionMisses:   "Partition lookups that found nothing.",
	MetricNetworkFailures:   "Upstream fetches that failed.",
	MetricOfflineResponses:  "Synthesized offline responses.",
	MetricBackgroundErrors:  "Background cache writes or revalidations that failed.",
	MetricFetchSeconds:      "Upstream fetch latency in seconds.",
	MetricPartitionsDeleted: "Stale partitions removed during activation or clear.",
	MetricOnline:            "1 while the network is believed reachable.",
	MetricTransitions:       "Online and offline transitions.",
	MetricLoadsNetwork:      "Data loads answered by the network.",
	MetricLoadsCache:        "Data loads answered by the structured store.",
}

// Help returns the description of a known metric, or the name itself.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
