package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Intake counters for the result-file processing pipeline.
var (
	RunsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "perfhub",
		Subsystem: "intake",
		Name:      "runs_processed_total",
		Help:      "Test runs processed, partitioned by terminal status.",
	}, []string{"status"})

	RowsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "perfhub",
		Subsystem: "intake",
		Name:      "rows_parsed_total",
		Help:      "Result rows successfully parsed.",
	})

	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "perfhub",
		Subsystem: "intake",
		Name:      "rows_skipped_total",
		Help:      "Malformed result rows skipped during parsing.",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "perfhub",
		Subsystem: "intake",
		Name:      "processing_duration_seconds",
		Help:      "Wall time spent parsing and aggregating one uploaded file.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)
