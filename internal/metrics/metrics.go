// Package metrics exposes the sync service's and daemon's runtime
// behavior as Prometheus collectors (spec §6 Metrics surface, supplemented
// beyond spec.md's distillation), grounded on the teacher's
// internal/metrics prometheus.NewGaugeVec/CounterVec/HistogramVec idiom,
// generalized from object-storage counters to connection/sync counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the service and daemon register
// against their own *prometheus.Registry, so tests can build an isolated
// instance instead of fighting over the global default registry.
type Registry struct {
	ConnectedMachines prometheus.Gauge
	EventsSent        *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
	HistoryPushed     prometheus.Counter
	HistoryPushErrors prometheus.Counter
	OutboxDepth       prometheus.Gauge
	RESTLatency       *prometheus.HistogramVec
	ConflictsRecorded prometheus.Counter
}

// NewRegistry builds a Registry and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer, namespace string) *Registry {
	r := &Registry{
		ConnectedMachines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_machines",
			Help:      "Number of machines currently holding an authenticated event channel.",
		}),
		EventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_sent_total",
			Help:      "Server events written to a machine's mailbox, by event type.",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Server events dropped because a machine's mailbox was full, by event type.",
		}, []string{"event"}),
		HistoryPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_pushed_total",
			Help:      "Shell history entries successfully handed off in a history_batch frame.",
		}),
		HistoryPushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_push_errors_total",
			Help:      "Failed attempts to push a history_batch frame.",
		}),
		OutboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_outbox_depth",
			Help:      "Entries currently waiting in the local pending-history outbox.",
		}),
		RESTLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rest_request_duration_seconds",
			Help:      "Latency of authenticated REST requests, by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status_class"}),
		ConflictsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_recorded_total",
			Help:      "Advisory conflicts recorded between a machine's local alias version and the service's.",
		}),
	}

	reg.MustRegister(
		r.ConnectedMachines,
		r.EventsSent,
		r.EventsDropped,
		r.HistoryPushed,
		r.HistoryPushErrors,
		r.OutboxDepth,
		r.RESTLatency,
		r.ConflictsRecorded,
	)
	return r
}
