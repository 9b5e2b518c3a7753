// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/playcore/internal/metrics"
)

func TestHolder_Reload(t *testing.T) {
	path := writeConfig(t, "playback:\n  volume: 0.5\n")
	loader := NewLoader(path, WithEnv(nil))
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	updates := make(chan Config, 1)
	h.Subscribe(updates)

	okBefore := metrics.CounterValue(metrics.ConfigReloadsTotal, "success")
	failBefore := metrics.CounterValue(metrics.ConfigReloadsTotal, "failure")

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  volume: 0.75\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, 0.75, h.Get().Playback.Volume)
	select {
	case cfg := <-updates:
		assert.Equal(t, 0.75, cfg.Playback.Volume)
	default:
		t.Fatal("listener was not notified")
	}

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  volume: 3\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 0.75, h.Get().Playback.Volume, "invalid reload keeps the previous config")
	assert.Empty(t, updates)

	assert.Equal(t, okBefore+1, metrics.CounterValue(metrics.ConfigReloadsTotal, "success"))
	assert.Equal(t, failBefore+1, metrics.CounterValue(metrics.ConfigReloadsTotal, "failure"))
}

func TestHolder_FullListenerDoesNotBlock(t *testing.T) {
	path := writeConfig(t, "")
	h := NewHolder(Defaults(), NewLoader(path, WithEnv(nil)))
	full := make(chan Config)
	h.Subscribe(full)
	require.NoError(t, h.Reload(context.Background()))
}

func TestHolder_Watch(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := writeConfig(t, "log_level: info\n")
	h := NewHolder(Defaults(), NewLoader(path, WithEnv(nil)))
	h.debounce = 10 * time.Millisecond
	updates := make(chan Config, 4)
	h.Subscribe(updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// The watcher may not be registered yet; keep touching the file.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got Config
wait:
	for {
		select {
		case got = <-updates:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
	assert.Equal(t, "debug", got.LogLevel)

	cancel()
	require.NoError(t, <-done)
}

func TestHolder_WatchWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", WithEnv(nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Watch(ctx))
}

func TestChangedSections(t *testing.T) {
	prev := Defaults()
	next := Defaults()
	next.Playback.Volume = 0.2
	next.HTTP.RateLimit = 10
	assert.Equal(t, []string{"playback", "http"}, ChangedSections(prev, next))
	assert.Empty(t, ChangedSections(prev, prev))
}
