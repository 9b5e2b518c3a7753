// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
)

type recorder struct {
	states   []backend.State
	times    []float64
	progress []float64
	buffer   []bool
	errors   []media.ErrorCode
}

func (r *recorder) Time(p float64) { r.times = append(r.times, p) }
func (r *recorder) Progress(l float64) { r.progress = append(r.progress, l) }
func (r *recorder) State(s backend.State) { r.states = append(r.states, s) }
func (r *recorder) Buffer(full bool) { r.buffer = append(r.buffer, full) }
func (r *recorder) Error(c media.ErrorCode) { r.errors = append(r.errors, c) }
func (r *recorder) QualityChange(string) {}

func newSim(t *testing.T, cfg Config) (*Backend, *loop.Manual, *recorder) {
	t.Helper()
	m := loop.NewManual(time.Unix(0, 0))
	b := New(m, cfg)
	rec := &recorder{}
	require.NoError(t, b.Init(context.Background(), backend.InitParams{
		Item: media.ResolvedItem{ID: "clip"},
		File: media.File{URI: "sim://clip"},
	}, rec))
	return b, m, rec
}

func TestSim_ReadyAfterDelay(t *testing.T) {
	b, m, rec := newSim(t, Config{Duration: 2, InitDelay: 100 * time.Millisecond, Tick: 500 * time.Millisecond, LoadStep: 0.5})

	m.Advance(99 * time.Millisecond)
	assert.Empty(t, rec.states)
	assert.False(t, b.Ready())

	m.Advance(time.Millisecond)
	assert.Equal(t, []backend.State{backend.StateReady}, rec.states)
	assert.Equal(t, []bool{true}, rec.buffer)
	assert.Equal(t, []float64{0.5}, rec.progress)
	assert.True(t, b.Ready())
	assert.InDelta(t, 2.0, b.Duration(), 1e-9)
}

func TestSim_PlaysToTheEnd(t *testing.T) {
	b, m, rec := newSim(t, Config{Duration: 2, InitDelay: 0, Tick: 500 * time.Millisecond, LoadStep: 0.5})
	m.Advance(0)
	require.NoError(t, b.ApplyCommand(context.Background(), backend.CmdPlay, nil))
	require.NoError(t, b.ApplyCommand(context.Background(), backend.CmdPlay, nil), "play while playing is a no-op")

	m.Advance(5 * time.Second)
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, rec.times)
	assert.Equal(t, []backend.State{backend.StateReady, backend.StatePlaying, backend.StateEnded}, rec.states)
	assert.Equal(t, []float64{0.5, 1}, rec.progress)
	assert.Equal(t, 0, m.PendingTimers())
}

func TestSim_PauseStopsPlayhead(t *testing.T) {
	ctx := context.Background()
	b, m, rec := newSim(t, Config{Duration: 10, Tick: time.Second})
	m.Advance(DefaultConfig().InitDelay)
	require.NoError(t, b.ApplyCommand(ctx, backend.CmdPlay, nil))
	m.Advance(2 * time.Second)
	require.NoError(t, b.ApplyCommand(ctx, backend.CmdPause, nil))
	m.Advance(5 * time.Second)

	assert.Equal(t, []float64{1, 2}, rec.times)
	assert.Equal(t, backend.StatePaused, b.State())

	require.NoError(t, b.ApplyCommand(ctx, backend.CmdSeek, 8.0))
	require.NoError(t, b.ApplyCommand(ctx, backend.CmdPlay, nil))
	m.Advance(time.Second)
	assert.Equal(t, []float64{1, 2, 8, 9}, rec.times)
}

func TestSim_ErrorInjection(t *testing.T) {
	b, m, rec := newSim(t, Config{Duration: 10, InitDelay: 0, Tick: time.Second, FailAt: 3})
	m.Advance(0)
	require.NoError(t, b.ApplyCommand(context.Background(), backend.CmdPlay, nil))
	m.Advance(10 * time.Second)

	assert.Equal(t, []media.ErrorCode{media.CodeDecode}, rec.errors)
	assert.Equal(t, []float64{1, 2, 3}, rec.times)
	assert.NotContains(t, rec.states, backend.StateEnded)
}

func TestSim_DestroyCancelsTimers(t *testing.T) {
	b, m, rec := newSim(t, Config{})
	require.Equal(t, 1, m.PendingTimers())
	require.NoError(t, b.Destroy())
	assert.Equal(t, 0, m.PendingTimers())
	m.Advance(time.Minute)
	assert.Empty(t, rec.states)
	assert.Equal(t, backend.StateIdle, b.State())
}
