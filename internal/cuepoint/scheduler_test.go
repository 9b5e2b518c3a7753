// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cuepoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playcore/internal/cmdqueue"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
)

type harness struct {
	t     *testing.T
	exec  *loop.Manual
	bus   *events.Bus
	sched *Scheduler
	fired []events.Cuepoint
	kinds []events.Kind
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	exec := loop.NewManual(time.Unix(0, 0))
	q := cmdqueue.New(exec, func(context.Context, string, any) error { return nil })
	bus := events.New(q)
	h := &harness{t: t, exec: exec, bus: bus, sched: New(exec, bus, opts...)}
	_, err := bus.AddListener("*", func(ev events.Event) {
		h.kinds = append(h.kinds, ev.Kind)
		if ev.Kind == events.KindCuepoint {
			h.fired = append(h.fired, ev.Payload.(events.Cuepoint))
		}
	})
	require.NoError(t, err)
	return h
}

func (h *harness) start(itemID string) {
	h.bus.Promote(events.KindItem, itemID, events.ItemChange{Item: media.ResolvedItem{ID: itemID}})
	h.bus.Promote(events.KindState, itemID, events.StateChange{From: "STARTING", To: "PLAYING"})
	h.exec.RunPending()
}

func (h *harness) times(positions ...float64) {
	for _, pos := range positions {
		h.bus.Promote(events.KindTime, "", events.TimeUpdate{Position: pos, Duration: 100})
	}
	h.exec.RunPending()
}

func (h *harness) seek(to string) {
	h.bus.Promote(events.KindSeek, "a", events.StateChange{To: to})
	h.exec.RunPending()
}

func (h *harness) set(d Descriptor) string {
	h.t.Helper()
	id, err := h.sched.Set(d)
	require.NoError(h.t, err)
	h.exec.RunPending()
	return id
}

func (h *harness) edges() []bool {
	out := make([]bool, 0, len(h.fired))
	for _, c := range h.fired {
		out = append(out, c.Active)
	}
	return out
}

func (h *harness) count(k events.Kind) int {
	n := 0
	for _, got := range h.kinds {
		if got == k {
			n++
		}
	}
	return n
}

func TestScheduler_PulseFiresOnceAndAutoClears(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	calls := 0
	h.set(Descriptor{ID: "p", On: 10, Off: 10, Callback: func(events.Cuepoint) { calls++ }})

	h.times(9.8, 9.9, 10.0, 10.0, 10.04, 10.1)
	assert.Equal(t, []bool{true}, h.edges())
	assert.Equal(t, 1, calls)
	require.Len(t, h.sched.List("a", false), 1)
	assert.True(t, h.sched.List("a", false)[0].Active)

	h.exec.Advance(100 * time.Millisecond)
	assert.False(t, h.sched.List("a", false)[0].Active)
	assert.Equal(t, []bool{true}, h.edges(), "no OFF for a pulse")
}

func TestScheduler_WindowFiresOncePerCrossing(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{On: 5, Off: 15})

	h.times(4, 5, 5, 6, 14.9, 14.9)
	assert.Equal(t, []bool{true}, h.edges())

	h.times(15, 15, 16)
	assert.Equal(t, []bool{true, false}, h.edges())

	// Backwards seek into and then below the window.
	h.times(7, 7, 2)
	assert.Equal(t, []bool{true, false, true, false}, h.edges())
}

func TestScheduler_OnceRemovesAfterFirstFire(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{ID: "once", On: 5, Off: 15, Once: true})

	h.times(6, 20, 6)
	assert.Equal(t, []bool{true}, h.edges())
	assert.Empty(t, h.sched.List("a", true))
	assert.Equal(t, 1, h.count(events.KindCuepointRemoved))
}

func TestScheduler_TeardownSynthesizesOff(t *testing.T) {
	for _, to := range []string{"STOPPED", "COMPLETED", "DESTROYING"} {
		t.Run(to, func(t *testing.T) {
			h := newHarness(t)
			h.start("a")
			h.set(Descriptor{On: 0, Off: 50})
			h.set(Descriptor{ItemID: WildcardItem, On: 1, Off: 60})
			h.times(2)
			require.Equal(t, []bool{true, true}, h.edges())

			h.bus.Promote(events.KindState, "a", events.StateChange{From: "PLAYING", To: to})
			h.exec.RunPending()
			assert.Equal(t, []bool{true, true, false, false}, h.edges())

			// Detached: time samples are ignored until the item starts again.
			h.times(3)
			assert.Len(t, h.fired, 4)
		})
	}
}

func TestScheduler_UnlockFromTimeOrBufferedProgress(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{ID: "early", On: 40, Off: 45})
	h.set(Descriptor{ID: "late", On: 60, Off: 65})

	h.bus.Promote(events.KindDurationChange, "a", events.DurationChange{Duration: 100})
	h.bus.Promote(events.KindProgress, "a", events.ProgressUpdate{Loaded: 0.5})
	h.bus.Promote(events.KindProgress, "a", events.ProgressUpdate{Loaded: 0.55})
	h.exec.RunPending()
	assert.Equal(t, 1, h.count(events.KindCuepointUnlock))

	h.times(61)
	assert.Equal(t, 2, h.count(events.KindCuepointUnlock))
	for _, c := range h.sched.List("a", false) {
		assert.True(t, c.Unlocked, c.ID)
	}
}

func TestScheduler_CallbackPanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	ok := false
	h.set(Descriptor{On: 1, Off: 5, Callback: func(events.Cuepoint) { panic("boom") }})
	h.set(Descriptor{On: 1, Off: 5, Callback: func(events.Cuepoint) { ok = true }})
	h.times(2)
	assert.True(t, ok)
	assert.Len(t, h.fired, 2)
}

func TestScheduler_SeekDoesNotTriggerSkippedPulse(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{On: 10, Off: 10})
	h.times(1)

	h.seek("SEEKING")
	h.times(50)
	h.seek("SEEKED")
	h.times(50.2)
	assert.Empty(t, h.fired)

	// Playback after the seek crosses pulses normally again.
	h.times(5)
	h.times(9.9, 10.2)
	assert.Equal(t, []bool{true}, h.edges())
}

func TestScheduler_SeekIgnoresTicksBeforeLanding(t *testing.T) {
	tests := []struct {
		name  string
		steps func(h *harness)
	}{
		{"seeked before landing sample", func(h *harness) {
			h.seek("SEEKING")
			h.times(1.2)
			h.seek("SEEKED")
			h.seek("NONE")
			h.times(50)
		}},
		{"landing sample while seeking", func(h *harness) {
			h.seek("SEEKING")
			h.times(1.2, 50)
			h.seek("SEEKED")
			h.times(50.25)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.start("a")
			h.set(Descriptor{On: 10, Off: 10})
			h.times(1)

			tt.steps(h)
			assert.Empty(t, h.fired, "a seek past a pulse does not fire it")

			h.times(50.5)
			h.seek("SEEKING")
			h.times(9.8)
			h.seek("SEEKED")
			h.times(9.9, 10.1)
			assert.Equal(t, []bool{true}, h.edges(), "forward playback after the seek crosses again")
		})
	}
}

func TestScheduler_ItemChangeScopesCuepoints(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{ItemID: "b", On: 1, Off: 5, Group: "ads"})
	h.set(Descriptor{On: 1, Off: 5, Group: "chapters"})
	h.set(Descriptor{ItemID: WildcardItem, On: 1, Off: 5, Group: "ads"})
	h.times(2)
	assert.Len(t, h.fired, 2, "item a cuepoint and wildcard")

	h.start("b")
	h.times(2)
	assert.Len(t, h.fired, 2+2+2, "OFF for a and wildcard, then ON for b and wildcard")

	assert.Len(t, h.sched.List("", false), 1)
	assert.Len(t, h.sched.List("", true), 2)
	assert.Len(t, h.sched.List("a", true, "ads"), 1)
	assert.Len(t, h.sched.List("a", true, "chapters", "ads"), 2)
}

func TestScheduler_SetReplacesAndRemoves(t *testing.T) {
	h := newHarness(t)
	h.start("a")
	h.set(Descriptor{ID: "x", On: 1, Off: 5})
	h.set(Descriptor{ID: "x", On: 2, Off: 6})
	list := h.sched.List("a", false)
	require.Len(t, list, 1)
	assert.Equal(t, 2.0, list[0].On)

	assert.False(t, h.sched.Remove("x", "other"))
	assert.True(t, h.sched.Remove("x", ""))
	assert.Empty(t, h.sched.List("a", false))

	h.set(Descriptor{ItemID: "gone", On: 1, Off: 2})
	h.set(Descriptor{ItemID: "gone", On: 3, Off: 4})
	assert.Equal(t, 2, h.sched.RemoveItem("gone"))
	assert.Empty(t, h.sched.List("gone", false))
}

func TestScheduler_SetValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.sched.Set(Descriptor{On: 1, Off: 2})
	require.Error(t, err, "no current item")

	h.start("a")
	_, err = h.sched.Set(Descriptor{On: -1, Off: 2})
	require.ErrorIs(t, err, ErrInvalidWindow)
	_, err = h.sched.Set(Descriptor{On: 5, Off: 2})
	require.ErrorIs(t, err, ErrInvalidWindow)

	id, err := h.sched.Set(Descriptor{On: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	list := h.sched.List("a", false)
	require.Len(t, list, 1)
	assert.Equal(t, list[0].On, list[0].Off, "off 0 reads as a pulse")
}

func TestScheduler_PrecisionRounding(t *testing.T) {
	h := newHarness(t, WithDefaultPrecision(0))
	h.start("a")
	h.set(Descriptor{On: 3, Off: 3})
	h.times(2.4, 2.6)
	assert.Equal(t, []bool{true}, h.edges(), "2.6 rounds to 3 at whole-second precision")

	h.exec.Advance(999 * time.Millisecond)
	assert.True(t, h.sched.List("a", false)[0].Active)
	h.exec.Advance(time.Millisecond)
	assert.False(t, h.sched.List("a", false)[0].Active)
}
