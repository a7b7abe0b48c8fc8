package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authzDecisionsTotal counts permission decisions by result and reason.
	// Labels:
	// - result: granted | denied | error
	// - reason: is_staff | superuser | exempt | inactive | no_grant | model_level | unconstrained | constraint | invalid_format | type_mismatch | error
	authzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Permission decisions by result and reason.",
		},
		[]string{"result", "reason"},
	)

	// authzResolveDuration tracks how long grant aggregation takes.
	authzResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel",
			Subsystem: "authz",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of per-principal grant aggregation.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// IncAuthzDecision increments the decision counter.
func IncAuthzDecision(result, reason string) {
	if result == "" {
		result = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	authzDecisionsTotal.WithLabelValues(result, reason).Inc()
}

// ObserveAuthzResolve records a grant aggregation duration in seconds.
func ObserveAuthzResolve(seconds float64) {
	authzResolveDuration.Observe(seconds)
}
