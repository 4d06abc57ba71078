package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ingestionsCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ingestions_total",
		Help: "Number of completed ingestion runs by status",
	},
	[]string{"status"},
)

var ingestionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "ingestion_duration_seconds",
		Help:    "Time to ingest one build, from descriptor read to staging cleanup",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), //nolint:gomnd
	},
)

var buildsRecordedCounter = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "builds_recorded_total",
		Help: "Number of build documents inserted into the document store",
	},
)
