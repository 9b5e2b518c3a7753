// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback tracks the lifecycle, buffer and seek state of the active
// item. State never emits anything itself: callers turn each returned Change
// into exactly one event.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/playcore/internal/fsm"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

// Lifecycle is the primary playback state.
type Lifecycle string

const (
	Idle       Lifecycle = "IDLE"
	Awakening  Lifecycle = "AWAKENING"
	Starting   Lifecycle = "STARTING"
	Playing    Lifecycle = "PLAYING"
	Paused     Lifecycle = "PAUSED"
	Stopped    Lifecycle = "STOPPED"
	Completed  Lifecycle = "COMPLETED"
	Error      Lifecycle = "ERROR"
	Destroying Lifecycle = "DESTROYING"
)

// Buffer reports whether enough data is available to continue without stalling.
type Buffer string

const (
	BufferEmpty Buffer = "EMPTY"
	BufferFull  Buffer = "FULL"
)

// Seek tracks an in-flight seek.
type Seek string

const (
	SeekNone    Seek = "NONE"
	SeekSeeking Seek = "SEEKING"
	SeekSeeked  Seek = "SEEKED"
)

// Trigger drives one of the three machines.
type Trigger string

const (
	TriggerPlay     Trigger = "play"
	TriggerAwakened Trigger = "awakened"
	TriggerPlaying  Trigger = "playing"
	TriggerPause    Trigger = "pause"
	TriggerComplete Trigger = "complete"
	TriggerStop     Trigger = "stop"
	TriggerFail     Trigger = "fail"
	TriggerDestroy  Trigger = "destroy"

	TriggerBufferEmpty Trigger = "buffer_empty"
	TriggerBufferFull  Trigger = "buffer_full"

	TriggerSeek   Trigger = "seek"
	TriggerSeeked Trigger = "seeked"
	TriggerSettle Trigger = "settle"
)

// Machine names a state machine in a Change.
type Machine string

const (
	MachineLifecycle Machine = "lifecycle"
	MachineBuffer    Machine = "buffer"
	MachineSeek      Machine = "seek"
)

// Change is one observable state transition.
type Change struct {
	Machine Machine
	From    string
	To      string
	Trigger Trigger
}

var lifecycleTable = concat(
	fsm.Edges(TriggerPlay, Awakening, Idle, Stopped, Completed),
	fsm.Edges(TriggerAwakened, Starting, Awakening),
	fsm.Edges(TriggerPlaying, Playing, Starting, Paused),
	fsm.Edges(TriggerPause, Paused, Starting, Playing),
	fsm.Edges(TriggerComplete, Completed, Playing, Paused),
	fsm.Edges(TriggerStop, Stopped, Awakening, Starting, Playing, Paused, Completed),
	// ERROR is sticky: only teardown leaves it.
	fsm.Edges(TriggerFail, Error, Idle, Awakening, Starting, Playing, Paused, Stopped, Completed),
	fsm.Edges(TriggerDestroy, Destroying, Idle, Awakening, Starting, Playing, Paused, Stopped, Completed, Error),
)

var bufferTable = concat(
	fsm.Edges(TriggerBufferFull, BufferFull, BufferEmpty),
	fsm.Edges(TriggerBufferEmpty, BufferEmpty, BufferFull),
)

var seekTable = concat(
	fsm.Edges(TriggerSeek, SeekSeeking, SeekNone, SeekSeeked),
	fsm.Edges(TriggerSeeked, SeekSeeked, SeekSeeking),
	fsm.Edges(TriggerSettle, SeekNone, SeekSeeked),
)

var triggerMachine = map[Trigger]Machine{
	TriggerPlay:        MachineLifecycle,
	TriggerAwakened:    MachineLifecycle,
	TriggerPlaying:     MachineLifecycle,
	TriggerPause:       MachineLifecycle,
	TriggerComplete:    MachineLifecycle,
	TriggerStop:        MachineLifecycle,
	TriggerFail:        MachineLifecycle,
	TriggerDestroy:     MachineLifecycle,
	TriggerBufferEmpty: MachineBuffer,
	TriggerBufferFull:  MachineBuffer,
	TriggerSeek:        MachineSeek,
	TriggerSeeked:      MachineSeek,
	TriggerSettle:      MachineSeek,
}

// ErrUnknownTrigger is returned for triggers no machine handles.
var ErrUnknownTrigger = errors.New("unknown playback trigger")

// State is created when an item becomes active and discarded on item change
// or teardown.
type State struct {
	itemID    string
	lifecycle *fsm.Machine[Lifecycle, Trigger]
	buffer    *fsm.Machine[Buffer, Trigger]
	seek      *fsm.Machine[Seek, Trigger]
}

// New returns a state in IDLE/EMPTY/NONE for itemID.
func New(itemID string) *State {
	return &State{
		itemID:    itemID,
		lifecycle: fsm.MustNew(Idle, lifecycleTable),
		buffer:    fsm.MustNew(BufferEmpty, bufferTable),
		seek:      fsm.MustNew(SeekNone, seekTable),
	}
}

func (s *State) ItemID() string       { return s.itemID }
func (s *State) Lifecycle() Lifecycle { return s.lifecycle.State() }
func (s *State) Buffer() Buffer       { return s.buffer.State() }
func (s *State) Seek() Seek           { return s.seek.State() }

// Can reports whether trigger would change state.
func (s *State) Can(trigger Trigger) bool {
	switch triggerMachine[trigger] {
	case MachineLifecycle:
		return s.lifecycle.Can(trigger)
	case MachineBuffer:
		return s.buffer.Can(trigger)
	case MachineSeek:
		return s.seek.Can(trigger)
	}
	return false
}

// Fire applies trigger and returns the resulting changes in the order they
// happened. Buffer triggers matching the current buffer state are no-ops.
// Entering PAUSED also forces the buffer FULL.
func (s *State) Fire(ctx context.Context, trigger Trigger) ([]Change, error) {
	m, ok := triggerMachine[trigger]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}

	var changes []Change
	switch m {
	case MachineLifecycle:
		c, err := fire(ctx, s.lifecycle, m, trigger)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
		if Lifecycle(c.To) == Paused && s.buffer.State() != BufferFull {
			bc, err := fire(ctx, s.buffer, MachineBuffer, TriggerBufferFull)
			if err != nil {
				return changes, err
			}
			changes = append(changes, bc)
		}
	case MachineBuffer:
		if !s.buffer.Can(trigger) {
			return nil, nil
		}
		c, err := fire(ctx, s.buffer, m, trigger)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	case MachineSeek:
		c, err := fire(ctx, s.seek, m, trigger)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}

	logger := log.WithComponent("playback")
	for _, c := range changes {
		metrics.RecordTransition(string(c.Machine), c.To)
		logger.Debug().
			Str(log.FieldEvent, "playback.transition").
			Str(log.FieldItemID, s.itemID).
			Str(log.FieldMachine, string(c.Machine)).
			Str(log.FieldOldState, c.From).
			Str(log.FieldNewState, c.To).
			Msg("playback state changed")
	}
	return changes, nil
}

// Is reports whether the lifecycle is in any of states. With no arguments it
// reports false.
func (s *State) Is(states ...Lifecycle) bool {
	cur := s.lifecycle.State()
	for _, st := range states {
		if st == cur {
			return true
		}
	}
	return false
}

// Active reports whether a backend binding is expected to exist.
func (s *State) Active() bool {
	return s.Is(Awakening, Starting, Playing, Paused)
}

func fire[S ~string](ctx context.Context, m *fsm.Machine[S, Trigger], name Machine, trigger Trigger) (Change, error) {
	from := m.State()
	to, err := m.Fire(ctx, trigger)
	if err != nil {
		return Change{}, fmt.Errorf("%s: %w", name, err)
	}
	return Change{Machine: name, From: string(from), To: string(to), Trigger: trigger}, nil
}

func concat[S ~string, E ~string](parts ...[]fsm.Transition[S, E]) []fsm.Transition[S, E] {
	var out []fsm.Transition[S, E]
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
