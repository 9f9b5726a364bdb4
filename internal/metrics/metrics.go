package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pass metrics
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestwatch_passes_total",
			Help: "Total number of matching passes",
		},
		[]string{"status"}, // status: completed, failed
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nestwatch_pass_duration_seconds",
			Help:    "Wall time of a matching pass",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	AlertsDue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nestwatch_alerts_due",
			Help: "Number of alerts due in the most recent pass",
		},
	)

	AlertsEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestwatch_alerts_evaluated_total",
			Help: "Alerts processed by passes, by outcome",
		},
		[]string{"outcome"}, // outcome: ok, skipped, catalog_unavailable, invalid_criteria, failed
	)

	CatalogQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nestwatch_catalog_query_duration_seconds",
			Help:    "Latency of property catalog queries",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Notification metrics
	NotificationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nestwatch_notifications_created_total",
			Help: "Notifications created by passes",
		},
	)

	NotificationDuplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nestwatch_notification_duplicates_total",
			Help: "Notification inserts skipped because the alert/property pair already existed",
		},
	)

	NotificationWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nestwatch_notification_write_failures_total",
			Help: "Notification inserts that failed",
		},
	)

	CheckpointConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nestwatch_checkpoint_conflicts_total",
			Help: "Checkpoint updates lost to a concurrent pass",
		},
	)

	// Delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestwatch_deliveries_total",
			Help: "Notification delivery attempts",
		},
		[]string{"status"}, // status: sent, failed, skipped
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nestwatch_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
