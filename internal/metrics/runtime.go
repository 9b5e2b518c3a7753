// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfigReloadsTotal counts configuration hot reloads by result.
	ConfigReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_config_reloads_total",
		Help: "Total number of configuration reloads, by result (success/failure).",
	}, []string{"result"})

	// PrefsOpsTotal counts preference store operations.
	PrefsOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_prefs_ops_total",
		Help: "Total number of preference store operations, by backend, op and result.",
	}, []string{"backend", "op", "result"})

	// HTTPRequestsTotal counts control API requests by route pattern and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_http_requests_total",
		Help: "Total number of control API requests, by route and status class.",
	}, []string{"route", "status"})

	// CircuitBreakerState is 1 for the breaker's current state and 0 otherwise.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playcore_circuit_breaker_state",
		Help: "Circuit breaker state (1 = current), by breaker and state.",
	}, []string{"breaker", "state"})

	// CircuitBreakerTripsTotal counts transitions into the open state.
	CircuitBreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker trips, by breaker and reason.",
	}, []string{"breaker", "reason"})
)

var breakerStates = []string{"closed", "open", "half-open"}

// SetCircuitBreakerState marks state as the current state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		CircuitBreakerState.WithLabelValues(label(breaker), s).Set(v)
	}
}

// RecordCircuitBreakerTrip increments the trip counter.
// reason: "threshold_exceeded" or "half_open_failure"
func RecordCircuitBreakerTrip(breaker, reason string) {
	CircuitBreakerTripsTotal.WithLabelValues(label(breaker), label(reason)).Inc()
}

// RecordConfigReload increments the reload counter.
func RecordConfigReload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ConfigReloadsTotal.WithLabelValues(result).Inc()
}

// RecordPrefsOp increments the preference store counter.
// result: "ok", "miss" or "error"
func RecordPrefsOp(backend, op, result string) {
	PrefsOpsTotal.WithLabelValues(label(backend), label(op), label(result)).Inc()
}

// RecordHTTPRequest increments the control API request counter.
func RecordHTTPRequest(route string, status int) {
	HTTPRequestsTotal.WithLabelValues(label(route), statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
