// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/metrics"
)

var errDown = errors.New("down")

func fail() error { return errDown }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := loop.NewManual(time.Unix(0, 0))
	cb := NewCircuitBreaker("test_threshold", 3, 10*time.Second, WithClock(clock))
	before := metrics.CounterValue(metrics.CircuitBreakerTripsTotal, "test_threshold", "threshold_exceeded")

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Execute(fail), errDown)
	}
	assert.Equal(t, StateClosed, cb.State())

	require.ErrorIs(t, cb.Execute(fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.InDelta(t, 1, metrics.CounterValue(metrics.CircuitBreakerTripsTotal, "test_threshold", "threshold_exceeded")-before, 1e-9)

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test_reset", 2, time.Second)
	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(succeed))
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	tests := []struct {
		name  string
		trial func() error
		want  State
	}{
		{name: "success closes", trial: succeed, want: StateClosed},
		{name: "failure reopens", trial: fail, want: StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := loop.NewManual(time.Unix(0, 0))
			cb := NewCircuitBreaker("test_trial", 1, 5*time.Second, WithClock(clock))
			_ = cb.Execute(fail)
			require.Equal(t, StateOpen, cb.State())

			clock.Advance(4 * time.Second)
			require.ErrorIs(t, cb.Execute(succeed), ErrCircuitOpen)

			clock.Advance(time.Second)
			_ = cb.Execute(tt.trial)
			assert.Equal(t, tt.want, cb.State())
		})
	}
}

func TestCircuitBreaker_IgnoredErrorsCountAsSuccess(t *testing.T) {
	miss := errors.New("miss")
	cb := NewCircuitBreaker("test_ignore", 1, time.Second, WithIgnore(func(err error) bool { return errors.Is(err, miss) }))

	err := cb.Execute(func() error { return miss })
	require.ErrorIs(t, err, miss)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StateGauge(t *testing.T) {
	cb := NewCircuitBreaker("test_gauge", 1, time.Minute)
	_ = cb.Execute(fail)
	assert.InDelta(t, 1, metrics.GaugeValue(metrics.CircuitBreakerState.WithLabelValues("test_gauge", "open")), 1e-9)
	assert.InDelta(t, 0, metrics.GaugeValue(metrics.CircuitBreakerState.WithLabelValues("test_gauge", "closed")), 1e-9)
}
