// Package metrics holds the process-wide prometheus collectors the engine
// updates as it opens, writes, merges and syncs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var MergesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashindex_merges_total",
		Help: "Completed merges, by root",
	},
	[]string{"root"},
)

var Generation = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hashindex_generation",
		Help: "Current generation counter, by root",
	},
	[]string{"root"},
)

var LogEntries = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hashindex_log_entries",
		Help: "Entries currently held in the log mirror, by root",
	},
	[]string{"root"},
)

var SyncLogResyncsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hashindex_sync_log_resyncs_total",
		Help: "Full resyncs performed by read-only handles after observing a generation change, by root",
	},
	[]string{"root"},
)

var OpenInstances = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hashindex_open_instances",
		Help: "Open handles on the instance-cache engine, by root and mode",
	},
	[]string{"root", "mode"},
)

var MergeDurationHistogram = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "hashindex_merge_duration_seconds",
		Help:    "Merge wall-clock duration",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
	},
	[]string{"root"},
)
