// Package metrics holds the liveness-domain Prometheus metrics. Process-wide
// metrics live in internal/platform/metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SweepDuration     prometheus.Histogram
	SweepRecords      prometheus.Counter
	SweepFailures     prometheus.Counter
	RemindersSent     prometheus.Counter
	AlertsSent        *prometheus.CounterVec
	TriggersFired     prometheus.Counter
	DispatchOutcomes  *prometheus.CounterVec
	PrivacySuppressed prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "heirloom_sweep_duration_seconds",
			Help:    "Wall-clock duration of one sweep run.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heirloom_sweep_records_processed_total",
			Help: "Liveness records visited by the sweep.",
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heirloom_sweep_record_failures_total",
			Help: "Per-record sweep failures (isolated, not fatal to the run).",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heirloom_reminders_sent_total",
			Help: "Upcoming and overdue reminders sent to account holders.",
		}),
		AlertsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heirloom_alerts_sent_total",
			Help: "Escalation alerts sent, by recipient class.",
		}, []string{"class"}),
		TriggersFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heirloom_inheritance_triggers_fired_total",
			Help: "Terminal inheritance triggers fired.",
		}),
		DispatchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "heirloom_dispatch_outcomes_total",
			Help: "Dispatcher results, by notification kind and delivery status.",
		}, []string{"kind", "status"}),
		PrivacySuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "heirloom_privacy_suppressed_decisions_total",
			Help: "Escalation decisions that suppressed messaging per user policy.",
		}),
	}
}
