// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"fmt"
	"slices"

	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/playback"
)

// State returns the lifecycle state, IDLE without an active item. The bool
// reports whether it is one of compareTo; it is true when compareTo is empty.
func (e *Engine) State(compareTo ...playback.Lifecycle) (playback.Lifecycle, bool) {
	cur := playback.Idle
	if e.state != nil {
		cur = e.state.Lifecycle()
	}
	return cur, matches(cur, compareTo)
}

// BufferState is State for the buffer machine.
func (e *Engine) BufferState(compareTo ...playback.Buffer) (playback.Buffer, bool) {
	cur := playback.BufferEmpty
	if e.state != nil {
		cur = e.state.Buffer()
	}
	return cur, matches(cur, compareTo)
}

// SeekState is State for the seek machine.
func (e *Engine) SeekState(compareTo ...playback.Seek) (playback.Seek, bool) {
	cur := playback.SeekNone
	if e.state != nil {
		cur = e.state.Seek()
	}
	return cur, matches(cur, compareTo)
}

func matches[S comparable](cur S, compareTo []S) bool {
	return len(compareTo) == 0 || slices.Contains(compareTo, cur)
}

// Position returns the last reported position in seconds.
func (e *Engine) Position() float64 { return e.position }

// Duration returns the current item duration in seconds, 0 when unknown.
func (e *Engine) Duration() float64 { return e.duration }

// Volume returns the applied volume level.
func (e *Engine) Volume() float64 { return e.volume }

// Quality returns the preferred quality key.
func (e *Engine) Quality() string { return e.quality }

// Generation returns the backend binding counter.
func (e *Engine) Generation() uint64 { return e.generation }

// CuePoints lists cuepoints of itemID ("" = current item). Without a current
// item only wildcard cuepoints can match.
func (e *Engine) CuePoints(itemID string, includeWildcard bool, groups ...string) []events.Cuepoint {
	if itemID == "" {
		itemID = e.currentID()
	}
	if itemID == "" {
		if !includeWildcard {
			return nil
		}
		itemID = cuepoint.WildcardItem
	}
	return e.cues.List(itemID, includeWildcard, groups...)
}

// SetCuePoint registers d and returns its id. d.ItemID must name a queued
// item, the wildcard, or be empty for the current item.
func (e *Engine) SetCuePoint(d cuepoint.Descriptor) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	if d.ItemID != "" && d.ItemID != cuepoint.WildcardItem && e.items.Index(d.ItemID) < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoItem, d.ItemID)
	}
	// The scheduler learns the current item from the item event, which is
	// still queued right after an activation.
	if d.ItemID == "" {
		d.ItemID = e.currentID()
	}
	return e.cues.Set(d)
}

// RemoveCuePoint deletes cuepoint id. itemID "" searches every item.
func (e *Engine) RemoveCuePoint(id, itemID string) bool {
	return e.cues.Remove(id, itemID)
}

// AddListener subscribes fn to spec ("kind", "kind.namespace", "*" or
// "*.namespace") and returns a listener id.
func (e *Engine) AddListener(spec string, fn events.Handler) (uint64, error) {
	return e.bus.AddListener(spec, fn)
}

// RemoveListener removes every listener spec covers and returns how many.
func (e *Engine) RemoveListener(spec string) (int, error) {
	return e.bus.RemoveListener(spec)
}

// RegisterObserver adds o ahead of plain listeners and returns its removal.
func (e *Engine) RegisterObserver(o events.Observer) (remove func()) {
	return e.bus.Observe(o)
}
