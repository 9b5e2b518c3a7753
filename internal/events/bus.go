// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package events fans promoted engine events out to observers, listeners and
// the engine itself. Like the command queue it must only be used from the
// engine executor.
package events

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

// Handler receives one event.
type Handler func(Event)

// Scheduler defers delivery; *cmdqueue.Queue satisfies it.
type Scheduler interface {
	Do(fn func())
}

// Observer is an internal subscriber. Handlers run first, then Any.
type Observer struct {
	Name     string
	Handlers map[Kind]Handler
	Any      Handler
}

type listener struct {
	id      uint64
	spec    Spec
	fn      Handler
	removed bool
}

// Bus delivers events in a fixed order: every observer's kind handler and
// catch-all (in registration order), then matching listeners (in
// registration order), then the self handler for the kind.
type Bus struct {
	sched  Scheduler
	logger zerolog.Logger

	observers []*Observer
	listeners []*listener
	self      map[Kind]Handler
	nextID    uint64
	seq       uint64
}

// New returns a bus that schedules delivery through sched.
func New(sched Scheduler) *Bus {
	return &Bus{
		sched:  sched,
		logger: log.WithComponent("events"),
		self:   make(map[Kind]Handler),
	}
}

// Promote is the only way to emit. Delivery happens later, in queue order
// relative to other scheduled work.
func (b *Bus) Promote(kind Kind, itemID string, payload any) {
	b.seq++
	ev := Event{Kind: kind, Seq: b.seq, ItemID: itemID, Payload: payload}
	metrics.RecordEvent(string(kind))
	b.sched.Do(func() { b.deliver(ev) })
}

// Observe registers an observer and returns a function removing it.
func (b *Bus) Observe(o Observer) (remove func()) {
	ob := &o
	b.observers = append(b.observers, ob)
	return func() {
		for i, cur := range b.observers {
			if cur == ob {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// HandleSelf installs the engine's own handler for kind, replacing any
// previous one.
func (b *Bus) HandleSelf(kind Kind, h Handler) {
	if h == nil {
		delete(b.self, kind)
		return
	}
	b.self[kind] = h
}

// AddListener registers fn under spec (name[.namespace], "*" or "*.ns") and
// returns its id.
func (b *Bus) AddListener(raw string, fn Handler) (uint64, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil handler", ErrInvalidSpec)
	}
	spec, err := ParseSpec(raw, false)
	if err != nil {
		return 0, err
	}
	b.nextID++
	b.listeners = append(b.listeners, &listener{id: b.nextID, spec: spec, fn: fn})
	b.logger.Debug().
		Str(log.FieldEvent, "events.listener_added").
		Uint64(log.FieldListenerID, b.nextID).
		Str("spec", spec.String()).
		Msg("listener added")
	return b.nextID, nil
}

// RemoveListener removes every listener addressed by raw ("name", "name.ns",
// ".ns" or "*") and returns how many were removed.
func (b *Bus) RemoveListener(raw string) (int, error) {
	spec, err := ParseSpec(raw, true)
	if err != nil {
		return 0, err
	}
	return b.removeWhere(func(l *listener) bool { return spec.covers(l.spec) }), nil
}

// RemoveListenerID removes one listener by id.
func (b *Bus) RemoveListenerID(id uint64) bool {
	return b.removeWhere(func(l *listener) bool { return l.id == id }) > 0
}

// Listeners returns the number of registered listeners.
func (b *Bus) Listeners() int { return len(b.listeners) }

func (b *Bus) removeWhere(match func(*listener) bool) int {
	kept := b.listeners[:0]
	n := 0
	for _, l := range b.listeners {
		if match(l) {
			l.removed = true
			n++
			continue
		}
		kept = append(kept, l)
	}
	clear(b.listeners[len(kept):])
	b.listeners = kept
	return n
}

func (b *Bus) deliver(ev Event) {
	// Snapshots: handlers may (un)register during delivery. Registrations
	// apply to the next event, removals take effect immediately.
	observers := append([]*Observer(nil), b.observers...)
	listeners := append([]*listener(nil), b.listeners...)

	for _, o := range observers {
		if h := o.Handlers[ev.Kind]; h != nil {
			b.invoke("observer", o.Name, ev, h)
		}
		if o.Any != nil {
			b.invoke("observer", o.Name, ev, o.Any)
		}
	}
	for _, l := range listeners {
		if l.removed || !l.spec.matchesKind(ev.Kind) {
			continue
		}
		b.invoke("listener", l.spec.String(), ev, l.fn)
	}
	if h := b.self[ev.Kind]; h != nil {
		b.invoke("self", "engine", ev, h)
	}
}

func (b *Bus) invoke(stage, name string, ev Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHandlerFailure(stage)
			b.logger.Error().
				Str(log.FieldEvent, "events.handler_panic").
				Str(log.FieldKind, string(ev.Kind)).
				Str("stage", stage).
				Str("handler", name).
				Str("panic", fmt.Sprint(r)).
				Msg("event handler panicked")
		}
	}()
	h(ev)
}
