// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics provides Prometheus metrics for the assignment scheduler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "readrobin"
	subsystem = "scheduler"
)

// Custom registry to avoid default Go metrics.
var registry = prometheus.NewRegistry()

var (
	assignmentsCreated = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignments_created_total",
		Help:      "Total number of assignments handed to readers",
	})

	assignmentsCompleted = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignments_completed_total",
		Help:      "Total number of assignments completed with a review",
	})

	assignmentsSkipped = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignments_skipped_total",
		Help:      "Total number of assignments released without credit",
	})

	assignmentsReaped = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assignments_reaped_total",
		Help:      "Total number of stale active assignments reclaimed by the reaper",
	})

	noWork = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "no_work_total",
		Help:      "Total number of assignment requests that found no eligible application",
	})

	consistencyViolations = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "consistency_violations_total",
		Help:      "Total number of detected registry/ledger consistency violations (should stay at zero)",
	})

	httpRequests = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path pattern, and status code",
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)
)

// RecordAssignmentCreated increments the assignments created counter.
func RecordAssignmentCreated() {
	assignmentsCreated.Inc()
}

// RecordAssignmentCompleted increments the assignments completed counter.
func RecordAssignmentCompleted() {
	assignmentsCompleted.Inc()
}

// RecordAssignmentSkipped increments the assignments skipped counter.
func RecordAssignmentSkipped() {
	assignmentsSkipped.Inc()
}

// RecordAssignmentsReaped adds to the reaped assignments counter.
func RecordAssignmentsReaped(n int) {
	assignmentsReaped.Add(float64(n))
}

// RecordNoWork increments the no-work counter.
func RecordNoWork() {
	noWork.Inc()
}

// RecordConsistencyViolation increments the consistency violation counter.
func RecordConsistencyViolation() {
	consistencyViolations.Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path, statusCode string, durationMs float64) {
	httpRequests.WithLabelValues(method, path, statusCode).Inc()
	httpRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationMs)
}

// Registry returns the custom Prometheus registry used by our metrics.
func Registry() *prometheus.Registry {
	return registry
}
