package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsPublishedTotal counts publish calls entering the registry.
	eventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events submitted to the broker registry.",
		},
	)

	// eventsDeliveredTotal counts successful per-sink deliveries.
	// Labels:
	// - broker: the registered broker name
	eventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "Events delivered per broker.",
		},
		[]string{"broker"},
	)

	// eventsFailedTotal counts per-sink delivery failures.
	// Labels:
	// - broker: the registered broker name
	eventsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "events",
			Name:      "failed_total",
			Help:      "Per-broker delivery failures.",
		},
		[]string{"broker"},
	)

	// eventsFilteredTotal counts deliveries skipped by topic filters.
	// Labels:
	// - broker: the registered broker name
	eventsFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "events",
			Name:      "filtered_total",
			Help:      "Deliveries skipped because the broker's topic filter rejected the topic.",
		},
		[]string{"broker"},
	)
)

// IncEventPublished increments the registry-level publish counter.
func IncEventPublished() { eventsPublishedTotal.Inc() }

// IncEventDelivered increments the per-broker delivery counter.
func IncEventDelivered(broker string) {
	if broker == "" {
		broker = "unknown"
	}
	eventsDeliveredTotal.WithLabelValues(broker).Inc()
}

// IncEventFailed increments the per-broker failure counter.
func IncEventFailed(broker string) {
	if broker == "" {
		broker = "unknown"
	}
	eventsFailedTotal.WithLabelValues(broker).Inc()
}

// IncEventFiltered increments the per-broker filtered counter.
func IncEventFiltered(broker string) {
	if broker == "" {
		broker = "unknown"
	}
	eventsFilteredTotal.WithLabelValues(broker).Inc()
}
