// Package observability exposes Prometheus collectors for materialization,
// reconciliation and reminder runs.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors recorded by the application services. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	materialized *prometheus.CounterVec
	syncs        *prometheus.CounterVec
	syncDuration prometheus.Histogram
	mutations    *prometheus.CounterVec
	reconciled   *prometheus.GaugeVec
	reminders    prometheus.Counter
}

// NewMetrics registers the collectors against registerer. A nil registerer
// uses a private registry so tests and repeated calls never collide.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m := &Metrics{
		materialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "occurrences_materialized_total",
			Help:      "Template occurrences inserted by materialization passes.",
		}, []string{"client"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "sync_runs_total",
			Help:      "Materialization passes by outcome.",
		}, []string{"status"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trainer",
			Name:      "sync_duration_seconds",
			Help:      "Duration of materialization passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "session_mutations_total",
			Help:      "Session edits by operation.",
		}, []string{"operation"}),
		reconciled: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "trainer",
			Name:      "reconciled_amount",
			Help:      "Amounts of the last reconciled month by kind.",
		}, []string{"kind"}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trainer",
			Name:      "payment_reminders_total",
			Help:      "Payment reminders produced.",
		}),
	}
	registerer.MustRegister(m.materialized, m.syncs, m.syncDuration, m.mutations, m.reconciled, m.reminders)
	return m
}

// ObserveSync records one materialization pass.
func (m *Metrics) ObserveSync(started time.Time, insertedByClient map[string]int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.syncs.WithLabelValues(status).Inc()
	m.syncDuration.Observe(time.Since(started).Seconds())
	for client, n := range insertedByClient {
		m.materialized.WithLabelValues(client).Add(float64(n))
	}
}

// CountMutation increments the counter of a session operation such as "move".
func (m *Metrics) CountMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

// SetReconciled publishes the expected, earned and pending totals of a month.
func (m *Metrics) SetReconciled(expected, earned, pending float64) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues("expected").Set(expected)
	m.reconciled.WithLabelValues("earned").Set(earned)
	m.reconciled.WithLabelValues("pending").Set(pending)
}

// AddReminders counts produced reminders.
func (m *Metrics) AddReminders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reminders.Add(float64(n))
}
