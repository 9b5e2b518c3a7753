// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cmdqueue is the FIFO every backend-affecting operation passes
// through. It must only be used from its executor.
package cmdqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/metrics"
)

// Command is either a named backend primitive (Name, Value, Delay) or a
// deferred action (Func). Func takes precedence when both are set.
type Command struct {
	Name  string
	Value any
	Delay time.Duration
	Func  func()
}

func (c Command) thunk() bool { return c.Func != nil }

func (c Command) label() string {
	if c.thunk() {
		return "thunk"
	}
	return c.Name
}

// Dispatcher applies a primitive to the backend.
type Dispatcher func(ctx context.Context, name string, value any) error

// Option configures a Queue.
type Option func(*Queue)

// WithGate installs the readiness check for primitives. While open returns
// false the primitive at the head of the queue is held, and nothing behind
// it runs.
func WithGate(open func() bool) Option {
	return func(q *Queue) { q.gate = open }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// Queue drains entries one at a time on its executor.
type Queue struct {
	exec     loop.Executor
	dispatch Dispatcher
	gate     func() bool
	logger   zerolog.Logger

	entries   []Command
	scheduled bool
	draining  bool
	epoch     uint64
	delayed   map[uint64]delayedEntry
	nextID    uint64
}

type delayedEntry struct {
	cmd   Command
	timer loop.Timer
}

// New returns a queue dispatching primitives through dispatch.
func New(exec loop.Executor, dispatch Dispatcher, opts ...Option) *Queue {
	q := &Queue{
		exec:     exec,
		dispatch: dispatch,
		gate:     func() bool { return true },
		logger:   log.WithComponent("cmdqueue"),
		delayed:  make(map[uint64]delayedEntry),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends cmd. Delivery is always asynchronous: nothing runs before
// Enqueue returns. Entries enqueued while draining run in the same drain,
// after everything already queued.
func (q *Queue) Enqueue(cmd Command) {
	if !cmd.thunk() && cmd.Name == "" {
		q.logger.Warn().Str(log.FieldEvent, "cmdqueue.empty_command").Msg("ignoring command without name")
		return
	}
	q.entries = append(q.entries, cmd)
	q.schedule()
}

// Do is Enqueue for a deferred action.
func (q *Queue) Do(fn func()) {
	if fn == nil {
		return
	}
	q.Enqueue(Command{Func: fn})
}

// Kick schedules a drain, typically after the gate opened.
func (q *Queue) Kick() {
	if len(q.entries) > 0 {
		q.schedule()
	}
}

// Flush drops every queued and delayed primitive. Thunks survive and keep
// their relative order.
func (q *Queue) Flush() {
	kept := q.entries[:0]
	dropped := 0
	for _, c := range q.entries {
		if c.thunk() {
			kept = append(kept, c)
			continue
		}
		dropped++
		metrics.RecordCommand(c.Name, "flushed")
	}
	clear(q.entries[len(kept):])
	q.entries = kept

	for id, d := range q.delayed {
		d.timer.Stop()
		delete(q.delayed, id)
		dropped++
		metrics.RecordCommand(d.cmd.Name, "flushed")
	}
	q.epoch++
	if dropped > 0 {
		q.logger.Debug().
			Str(log.FieldEvent, "cmdqueue.flushed").
			Int("dropped", dropped).
			Msg("flushed pending commands")
	}
	q.Kick()
}

// Len returns the number of queued entries, excluding delayed primitives
// already waiting on their timer.
func (q *Queue) Len() int { return len(q.entries) }

// Delayed returns the number of primitives waiting on a timer.
func (q *Queue) Delayed() int { return len(q.delayed) }

// Held reports whether a primitive is blocked at the head by the gate.
func (q *Queue) Held() bool {
	return len(q.entries) > 0 && !q.entries[0].thunk() && q.entries[0].Delay <= 0 && !q.gate()
}

func (q *Queue) schedule() {
	if q.scheduled || q.draining {
		return
	}
	q.scheduled = true
	q.exec.Post(q.drain)
}

func (q *Queue) drain() {
	q.scheduled = false
	q.draining = true
	defer func() { q.draining = false }()

	for len(q.entries) > 0 {
		head := q.entries[0]
		if !head.thunk() && head.Delay <= 0 && !q.gate() {
			q.logger.Debug().
				Str(log.FieldEvent, "cmdqueue.held").
				Str(log.FieldCommand, head.Name).
				Int("queued", len(q.entries)).
				Msg("primitive held until backend is ready")
			return
		}
		q.entries[0] = Command{}
		q.entries = q.entries[1:]

		switch {
		case head.thunk():
			q.run(head)
		case head.Delay > 0:
			q.startDelayed(head)
		default:
			q.run(head)
		}
	}
}

func (q *Queue) startDelayed(cmd Command) {
	q.nextID++
	id := q.nextID
	epoch := q.epoch
	immediate := cmd
	immediate.Delay = 0
	t := q.exec.AfterFunc(cmd.Delay, func() {
		if _, ok := q.delayed[id]; !ok || q.epoch != epoch {
			return
		}
		delete(q.delayed, id)
		if !q.gate() {
			// Backend went away while waiting: hold at the head.
			q.entries = append([]Command{immediate}, q.entries...)
			return
		}
		q.run(immediate)
	})
	q.delayed[id] = delayedEntry{cmd: cmd, timer: t}
}

func (q *Queue) run(cmd Command) {
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			metrics.RecordHandlerFailure("thunk")
			q.logger.Error().
				Str(log.FieldEvent, "cmdqueue.panic").
				Str(log.FieldCommand, cmd.label()).
				Str("panic", fmt.Sprint(r)).
				Msg("queued command panicked")
		}
		metrics.RecordCommand(cmd.label(), outcome)
	}()

	if cmd.thunk() {
		cmd.Func()
		return
	}
	if err := q.dispatch(context.Background(), cmd.Name, cmd.Value); err != nil {
		outcome = "error"
		q.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "cmdqueue.dispatch_failed").
			Str(log.FieldCommand, cmd.Name).
			Msg("backend command failed")
	}
}
