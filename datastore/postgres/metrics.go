package postgres

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// tracer is the package-wide OpenTelemetry tracer every method() span is
// created from.
var tracer = otel.Tracer("github.com/sbomgraph/ingestor/datastore/postgres")

var (
	methodCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sbomgraph",
			Subsystem: "ingestor",
			Name:      "store_method_total",
			Help:      "Total number of Store method calls, by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	methodDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sbomgraph",
			Subsystem: "ingestor",
			Name:      "store_method_duration_seconds",
			Help:      "Duration of Store method calls, by method.",
		},
		[]string{"method"},
	)

	chunkedInsertRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sbomgraph",
			Subsystem: "ingestor",
			Name:      "chunked_insert_rows_total",
			Help:      "Total number of rows submitted across chunked ON CONFLICT DO NOTHING inserts, by table.",
		},
		[]string{"table"},
	)
)
