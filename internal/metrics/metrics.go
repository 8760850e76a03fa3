package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// RunDuration tracks how long cleanup runs take
	RunDuration prometheus.Histogram

	// BytesFreedTotal tracks total bytes freed
	BytesFreedTotal prometheus.Counter

	// FilesRemovedTotal tracks total files removed
	FilesRemovedTotal prometheus.Counter

	// FilesSkippedTotal tracks files skipped because they were absent
	FilesSkippedTotal prometheus.Counter

	// ErrorsTotal tracks failed removal attempts
	ErrorsTotal prometheus.Counter

	// LastRunTimestamp records Unix timestamp of the last cleanup run
	LastRunTimestamp prometheus.Gauge

	// RemovalsBySource tracks removals per candidate source (list, glob, self)
	RemovalsBySource *prometheus.CounterVec
)

// Init initializes all metrics and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		RunDuration = NewDurationHistogram(
			"cleanup_run_duration_seconds",
			"Duration of cleanup runs in seconds.",
		)

		BytesFreedTotal = NewBytesCounter(
			"cleanup_bytes_freed_total",
			"Total bytes freed by the cleanup tool.",
		)

		FilesRemovedTotal = NewCounter(
			"cleanup_files_removed_total",
			"Total number of files removed by the cleanup tool.",
		)

		FilesSkippedTotal = NewCounter(
			"cleanup_files_skipped_total",
			"Total number of manifest entries skipped because the file was absent.",
		)

		ErrorsTotal = NewCounter(
			"cleanup_errors_total",
			"Total number of failed removal attempts.",
		)

		LastRunTimestamp = NewGauge(
			"cleanup_last_run_timestamp",
			"Timestamp of the last cleanup run (Unix epoch seconds).",
		)

		RemovalsBySource = NewCounterVec(
			"cleanup_removals_by_source_total",
			"Total removals per candidate source.",
			[]string{"source"},
		)

		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(BytesFreedTotal)
		prometheus.MustRegister(FilesRemovedTotal)
		prometheus.MustRegister(FilesSkippedTotal)
		prometheus.MustRegister(ErrorsTotal)
		prometheus.MustRegister(LastRunTimestamp)
		prometheus.MustRegister(RemovalsBySource)

		// Initialize so the gauge appears in /metrics before the first run
		LastRunTimestamp.Set(0)
	})
}

// RecordRun updates the last run timestamp to current time
func RecordRun() {
	LastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordRemoval records a successful removal from the given source
func RecordRemoval(source string, bytes int64) {
	FilesRemovedTotal.Inc()
	RemovalsBySource.WithLabelValues(source).Inc()
	BytesFreedTotal.Add(float64(bytes))
}
