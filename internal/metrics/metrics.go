// SAI Dashboard - Fire and Smoke Detection Analytics
// Copyright 2026 SAI Platform Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sai-platform/sai-dashboard

// Package metrics defines Prometheus instrumentation for the dashboard.
// All collectors are registered on the default registry via promauto and
// exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sai_dashboard"

var (
	// HTTPRequestsTotal counts API requests by method, route pattern, and
	// status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed, by method, route, and status code.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds, by method and route.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	// DBQueryDuration observes named database query latency.
	DBQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "db_query_duration_seconds",
		Help:      "Database query latency in seconds, by query name.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"query"})

	// SSEClientsConnected tracks currently connected event stream clients.
	SSEClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sse_clients_connected",
		Help:      "Number of currently connected SSE clients.",
	})

	// SSEEventsSent counts events delivered to SSE clients.
	SSEEventsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sse_events_sent_total",
		Help:      "Total SSE events delivered to clients.",
	})

	// SSEEventsDropped counts events dropped because a client's send
	// buffer was full.
	SSEEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sse_events_dropped_total",
		Help:      "Total SSE events dropped due to slow clients.",
	})

	// NotificationsReceived counts LISTEN/NOTIFY payloads decoded from
	// PostgreSQL.
	NotificationsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pg_notifications_received_total",
		Help:      "Total execution change notifications received from PostgreSQL.",
	})

	// DatasetJobsEnqueued counts export jobs created.
	DatasetJobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_jobs_enqueued_total",
		Help:      "Total dataset export jobs enqueued.",
	})

	// DatasetJobsCompleted counts finished jobs by terminal status.
	DatasetJobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_jobs_completed_total",
		Help:      "Total dataset export jobs finished, by terminal status.",
	}, []string{"status"})

	// DatasetImagesExported counts images written during exports.
	DatasetImagesExported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_images_exported_total",
		Help:      "Total images written to exported datasets.",
	})
)

// ObserveDBQuery records query latency. Use with defer:
//
//	defer metrics.ObserveDBQuery("list_executions", time.Now())
func ObserveDBQuery(query string, start time.Time) {
	DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
