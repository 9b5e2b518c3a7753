// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics provides Prometheus metrics for the playback engine.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// No item ids or URIs in labels: every label below has a bounded value set.

var (
	// CommandsTotal counts command queue entries by command name and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_commands_total",
		Help: "Total number of command queue entries processed, by command and outcome.",
	}, []string{"command", "outcome"})

	// EventsTotal counts promoted events by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_events_total",
		Help: "Total number of events promoted on the bus, by kind.",
	}, []string{"kind"})

	// HandlerFailuresTotal counts recovered panics in handlers, by stage.
	HandlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_handler_failures_total",
		Help: "Total number of handler invocations that panicked or failed, by stage.",
	}, []string{"stage"})

	// ResolutionsTotal counts source resolutions by policy and outcome.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_resolutions_total",
		Help: "Total number of source resolutions, by policy and outcome.",
	}, []string{"policy", "outcome"})

	// CuepointFiresTotal counts cuepoint triggers by edge (on, off, pulse).
	CuepointFiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_cuepoint_fires_total",
		Help: "Total number of cuepoint triggers, by edge.",
	}, []string{"edge"})

	// StaleSignalsTotal counts backend callbacks discarded by the generation guard.
	StaleSignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_stale_signals_total",
		Help: "Total number of backend signals discarded because their binding was replaced.",
	}, []string{"signal"})

	// StateTransitionsTotal counts playback state changes by machine and target state.
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playcore_state_transitions_total",
		Help: "Total number of playback state transitions, by machine and target state.",
	}, []string{"machine", "to"})

	// QueueItems tracks the number of items in the playlist.
	QueueItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playcore_queue_items",
		Help: "Current number of items in the playback queue.",
	})
)

// RecordCommand increments the command counter.
// outcome: "ok", "error", "panic" or "flushed"
func RecordCommand(command, outcome string) {
	CommandsTotal.WithLabelValues(label(command), label(outcome)).Inc()
}

// RecordEvent increments the promoted event counter.
func RecordEvent(kind string) {
	EventsTotal.WithLabelValues(label(kind)).Inc()
}

// RecordHandlerFailure increments the handler failure counter.
// stage: "observer", "listener", "self", "cuepoint" or "thunk"
func RecordHandlerFailure(stage string) {
	HandlerFailuresTotal.WithLabelValues(label(stage)).Inc()
}

// RecordResolution increments the resolution counter.
func RecordResolution(policy, outcome string) {
	ResolutionsTotal.WithLabelValues(label(policy), label(outcome)).Inc()
}

// RecordCuepointFire increments the cuepoint trigger counter.
func RecordCuepointFire(edge string) {
	CuepointFiresTotal.WithLabelValues(label(edge)).Inc()
}

// RecordStaleSignal increments the stale signal counter.
func RecordStaleSignal(signal string) {
	StaleSignalsTotal.WithLabelValues(label(signal)).Inc()
}

// RecordTransition increments the state transition counter.
func RecordTransition(machine, to string) {
	StateTransitionsTotal.WithLabelValues(label(machine), strings.ToLower(label(to))).Inc()
}

// SetQueueItems sets the playlist length gauge.
func SetQueueItems(n int) {
	QueueItems.Set(float64(n))
}

// CounterValue returns the current value of a labeled counter (for testing).
func CounterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// GaugeValue returns the current value of a gauge (for testing).
func GaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
