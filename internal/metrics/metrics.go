// Package metrics holds the Prometheus collectors of the schedule store.
// Collectors register with the default registry on package load.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "schedule"

var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of routed queries in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_errors_total",
			Help:      "Total number of failed queries",
		},
		[]string{"route"},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mutations_total",
			Help:      "Total number of applied inserts, updates and deletes",
		},
		[]string{"operation", "table"},
	)

	Batches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Total number of batches by outcome (committed, rolled_back)",
		},
		[]string{"outcome"},
	)

	Migrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migrations_total",
			Help:      "Schema lifecycle events by kind (create, upgrade, recreate, wipe)",
		},
		[]string{"kind"},
	)

	SearchIndexRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_index_rebuilds_total",
			Help:      "Total number of full-text index rebuilds",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Total number of published notifications by topic",
		},
		[]string{"topic"},
	)
)

// Batch outcomes.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
)

// Migration kinds.
const (
	KindCreate   = "create"
	KindUpgrade  = "upgrade"
	KindRecreate = "recreate"
	KindWipe     = "wipe"
)

// RecordQuery records one routed query.
func RecordQuery(route string, duration time.Duration, err error) {
	QueryDuration.WithLabelValues(route).Observe(duration.Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(route).Inc()
	}
}

// RecordMutation counts one applied mutation against table.
func RecordMutation(operation, table string) {
	Mutations.WithLabelValues(operation, table).Inc()
}

// RecordBatch counts a finished batch.
func RecordBatch(committed bool) {
	if committed {
		Batches.WithLabelValues(OutcomeCommitted).Inc()
		return
	}
	Batches.WithLabelValues(OutcomeRolledBack).Inc()
}

// RecordMigration counts a schema lifecycle event.
func RecordMigration(kind string) {
	Migrations.WithLabelValues(kind).Inc()
}

// RecordSearchIndexRebuild counts a full-text index rebuild.
func RecordSearchIndexRebuild() {
	SearchIndexRebuilds.Inc()
}

// RecordNotification counts a message published on topic.
func RecordNotification(topic string) {
	Notifications.WithLabelValues(topic).Inc()
}
