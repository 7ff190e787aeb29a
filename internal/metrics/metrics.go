// Package metrics holds the Prometheus collectors of the field engine.
// Collectors are registered with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	FieldsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldbase_fields_created_total",
			Help: "Fields created, by field type",
		},
		[]string{"field_type"},
	)
	FieldsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldbase_fields_deleted_total",
			Help: "Fields deleted, by field type",
		},
		[]string{"field_type"},
	)
	MirrorsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldbase_relation_mirrors_created_total",
			Help: "Mirror relation fields created",
		},
	)
	ResponsesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldbase_responses_written_total",
			Help: "Field responses upserted, by field type",
		},
		[]string{"field_type"},
	)
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldbase_validation_failures_total",
			Help: "Operations rejected with a validation error",
		},
		[]string{"op"},
	)
	IntegrityRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldbase_integrity_retries_total",
			Help: "Transactions retried after a uniqueness violation",
		},
		[]string{"op"},
	)
	ProjectionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldbase_projection_seconds",
			Help:    "Latency of page and view projections",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		FieldsCreated,
		FieldsDeleted,
		MirrorsCreated,
		ResponsesWritten,
		ValidationFailures,
		IntegrityRetries,
		ProjectionLatency,
	)
}

// ObserveSince records the time elapsed since start under op.
func ObserveSince(op string, start time.Time) {
	ProjectionLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
