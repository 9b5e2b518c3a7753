// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cuepoint

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/playback"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDefaultPrecision sets the precision used by descriptors that leave it 0.
func WithDefaultPrecision(digits int) Option {
	return func(s *Scheduler) { s.defaultPrecision = clampPrecision(digits) }
}

// Scheduler owns every cuepoint, keyed by item id. It learns about the
// current item, lifecycle, time and buffer progress by observing the bus.
type Scheduler struct {
	exec   loop.Executor
	bus    *events.Bus
	logger zerolog.Logger

	points           map[string][]*point
	current          string
	attached         bool
	seeking          bool
	rebase           bool
	duration         float64
	defaultPrecision int
	unobserve        func()
}

// New returns a scheduler registered as an observer on bus.
func New(exec loop.Executor, bus *events.Bus, opts ...Option) *Scheduler {
	s := &Scheduler{
		exec:             exec,
		bus:              bus,
		logger:           log.WithComponent("cuepoint"),
		points:           make(map[string][]*point),
		defaultPrecision: DefaultPrecision,
	}
	for _, o := range opts {
		o(s)
	}
	s.unobserve = bus.Observe(events.Observer{
		Name: "cuepoint",
		Handlers: map[events.Kind]events.Handler{
			events.KindItem:           s.onItem,
			events.KindState:          s.onState,
			events.KindSeek:           s.onSeek,
			events.KindTime:           s.onTime,
			events.KindProgress:       s.onProgress,
			events.KindDurationChange: s.onDuration,
		},
	})
	return s
}

// Close detaches the scheduler from the bus and stops pending pulse timers.
func (s *Scheduler) Close() {
	if s.unobserve != nil {
		s.unobserve()
		s.unobserve = nil
	}
	for _, pts := range s.points {
		for _, p := range pts {
			p.reset()
		}
	}
}

// Current returns the id of the item cuepoints are evaluated for.
func (s *Scheduler) Current() string { return s.current }

// Set registers d and returns its id. A cuepoint with an id already
// registered for the same item replaces it.
func (s *Scheduler) Set(d Descriptor) (string, error) {
	if err := d.validate(); err != nil {
		return "", err
	}
	if d.Off == 0 {
		d.Off = d.On
	}
	itemID := d.ItemID
	if itemID == "" {
		itemID = s.current
	}
	if itemID == "" {
		return "", fmt.Errorf("cuepoint: no current item to bind to")
	}
	precision := s.defaultPrecision
	if d.Precision > 0 {
		precision = clampPrecision(d.Precision)
	}
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}

	p := &point{
		id:        id,
		group:     d.Group,
		itemID:    itemID,
		precision: precision,
		once:      d.Once,
		callback:  d.Callback,
	}
	p.on, p.off = p.round(d.On), p.round(d.Off)

	pts := s.points[itemID]
	if i := slices.IndexFunc(pts, func(o *point) bool { return o.id == id }); i >= 0 {
		pts[i].reset()
		pts[i] = p
	} else {
		s.points[itemID] = append(pts, p)
	}

	s.logger.Debug().
		Str(log.FieldEvent, "cuepoint.added").
		Str(log.FieldCuepointID, id).
		Str(log.FieldItemID, itemID).
		Float64("on", p.on).
		Float64("off", p.off).
		Msg("cuepoint registered")
	s.bus.Promote(events.KindCuepointAdded, itemID, p.view())
	return id, nil
}

// Remove deletes cuepoint id. itemID "" searches every item.
func (s *Scheduler) Remove(id, itemID string) bool {
	for key, pts := range s.points {
		if itemID != "" && key != itemID {
			continue
		}
		i := slices.IndexFunc(pts, func(p *point) bool { return p.id == id })
		if i < 0 {
			continue
		}
		s.drop(key, i)
		return true
	}
	return false
}

// RemoveItem deletes every cuepoint bound to itemID, typically because the
// item left the queue.
func (s *Scheduler) RemoveItem(itemID string) int {
	pts := s.points[itemID]
	for _, p := range pts {
		p.reset()
		s.bus.Promote(events.KindCuepointRemoved, itemID, p.view())
	}
	delete(s.points, itemID)
	return len(pts)
}

// List returns snapshots of the cuepoints for itemID ("" = current),
// optionally including wildcard cuepoints, filtered to groups when given.
func (s *Scheduler) List(itemID string, includeWildcard bool, groups ...string) []events.Cuepoint {
	if itemID == "" {
		itemID = s.current
	}
	var pts []*point
	pts = append(pts, s.points[itemID]...)
	if includeWildcard && itemID != WildcardItem {
		pts = append(pts, s.points[WildcardItem]...)
	}
	if len(groups) > 0 {
		pts = lo.Filter(pts, func(p *point, _ int) bool { return lo.Contains(groups, p.group) })
	}
	return lo.Map(pts, func(p *point, _ int) events.Cuepoint { return p.view() })
}

func (s *Scheduler) drop(itemID string, i int) {
	p := s.points[itemID][i]
	p.reset()
	s.points[itemID] = slices.Delete(s.points[itemID], i, i+1)
	if len(s.points[itemID]) == 0 {
		delete(s.points, itemID)
	}
	s.bus.Promote(events.KindCuepointRemoved, itemID, p.view())
}

// live returns the cuepoints evaluated against the current item.
func (s *Scheduler) live() []*point {
	if s.current == "" {
		return nil
	}
	out := append([]*point(nil), s.points[s.current]...)
	return append(out, s.points[WildcardItem]...)
}

func (s *Scheduler) onItem(ev events.Event) {
	s.teardown(false)
	for _, p := range s.points[WildcardItem] {
		p.reset()
	}
	if ic, ok := ev.Payload.(events.ItemChange); ok {
		s.current = ic.Item.ID
	} else {
		s.current = ev.ItemID
	}
	for _, p := range s.points[s.current] {
		p.reset()
	}
	s.attached = false
	s.seeking, s.rebase = false, false
	s.duration = 0
}

func (s *Scheduler) onState(ev events.Event) {
	sc, ok := ev.Payload.(events.StateChange)
	if !ok {
		return
	}
	switch playback.Lifecycle(sc.To) {
	case playback.Stopped, playback.Completed, playback.Destroying:
		s.teardown(true)
	case playback.Awakening, playback.Starting, playback.Playing, playback.Paused:
		s.attached = true
	}
}

// onSeek keeps samples from counting as crossings until the seek has landed.
// Ticks from the old position may still arrive while SEEKING, so the rebase
// is consumed by the first sample after the seek leaves that state.
func (s *Scheduler) onSeek(ev events.Event) {
	sc, ok := ev.Payload.(events.StateChange)
	if !ok {
		return
	}
	s.seeking = playback.Seek(sc.To) == playback.SeekSeeking
	if s.seeking {
		s.rebase = true
	}
}

func (s *Scheduler) onDuration(ev events.Event) {
	if dc, ok := ev.Payload.(events.DurationChange); ok {
		s.duration = dc.Duration
	}
}

func (s *Scheduler) onProgress(ev events.Event) {
	pu, ok := ev.Payload.(events.ProgressUpdate)
	if !ok || !s.attached || s.duration <= 0 {
		return
	}
	s.unlock(s.duration * pu.Loaded)
}

func (s *Scheduler) onTime(ev events.Event) {
	tu, ok := ev.Payload.(events.TimeUpdate)
	if !ok || !s.attached {
		return
	}
	if tu.Duration > 0 {
		s.duration = tu.Duration
	}
	s.unlock(tu.Position)
	s.evaluate(tu.Position)
}

func (s *Scheduler) unlock(reach float64) {
	for _, p := range s.live() {
		if p.unlocked || p.round(reach) < p.on {
			continue
		}
		p.unlocked = true
		s.bus.Promote(events.KindCuepointUnlock, s.current, p.view())
	}
}

// evaluate applies one position sample. Positions may jump backwards.
func (s *Scheduler) evaluate(position float64) {
	rebase := s.rebase
	if !s.seeking {
		s.rebase = false
	}
	for _, p := range s.live() {
		t := p.round(position)
		if p.hasLast && t == p.last {
			continue
		}
		last, hasLast := p.last, p.hasLast
		p.last, p.hasLast = t, true

		if p.degenerate() {
			// Pulses fire on forward crossings only; a seek landing past
			// them does not count.
			crossed := (hasLast && !rebase && last < p.on && t >= p.on) ||
				(!hasLast && t == p.on)
			if crossed && !p.active {
				s.pulse(p)
			}
			continue
		}

		inside := p.contains(t)
		switch {
		case inside && !p.active:
			p.active = true
			s.fire(p, true)
		case !inside && p.active:
			p.active = false
			s.fire(p, false)
		}
	}
}

func (s *Scheduler) pulse(p *point) {
	p.active = true
	s.fire(p, true)
	metrics.RecordCuepointFire("pulse")
	if !p.active {
		return
	}
	unit := time.Duration(p.unit() * float64(time.Second))
	p.pulse = s.exec.AfterFunc(unit, func() {
		p.pulse = nil
		p.active = false
	})
}

// fire notifies the callback and listeners. Once cuepoints are removed after
// their first firing.
func (s *Scheduler) fire(p *point, on bool) {
	edge := "off"
	if on {
		edge = "on"
	}
	if !p.degenerate() {
		metrics.RecordCuepointFire(edge)
	}
	view := p.view()
	view.Active = on
	s.logger.Debug().
		Str(log.FieldEvent, "cuepoint.fired").
		Str(log.FieldCuepointID, p.id).
		Str(log.FieldItemID, p.itemID).
		Str("edge", edge).
		Msg("cuepoint fired")

	s.bus.Promote(events.KindCuepoint, s.current, view)
	s.invoke(p, view)

	if p.once && on {
		if i := slices.Index(s.points[p.itemID], p); i >= 0 {
			s.drop(p.itemID, i)
		}
	}
}

func (s *Scheduler) invoke(p *point, view events.Cuepoint) {
	if p.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHandlerFailure("cuepoint")
			s.logger.Error().
				Str(log.FieldEvent, "cuepoint.callback_panic").
				Str(log.FieldCuepointID, p.id).
				Str("panic", fmt.Sprint(r)).
				Msg("cuepoint callback panicked")
		}
	}()
	p.callback(view)
}

// teardown synthesizes OFF for every active windowed cuepoint of the current
// item and resets their runtime state. Pulses are cleared silently.
func (s *Scheduler) teardown(detach bool) {
	for _, p := range s.live() {
		if p.active && !p.degenerate() {
			p.active = false
			s.fire(p, false)
		}
		p.reset()
	}
	if detach {
		s.attached = false
	}
}

func clampPrecision(digits int) int {
	return max(0, min(digits, MaxPrecision))
}
