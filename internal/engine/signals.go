// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/metrics"
	"github.com/ManuGH/playcore/internal/playback"
	"github.com/ManuGH/playcore/internal/playlist"
)

// signals is the sink handed to one backend binding. Every callback is
// re-posted onto the executor and dropped there if the binding it belongs
// to has been replaced in the meantime.
type signals struct {
	e   *Engine
	gen uint64
}

func (s *signals) post(name string, fn func()) {
	s.e.exec.Post(func() {
		if s.gen != s.e.generation || s.e.binding == nil {
			metrics.RecordStaleSignal(name)
			s.e.logger.Debug().
				Str(log.FieldEvent, "engine.stale_signal").
				Str("signal", name).
				Uint64(log.FieldGeneration, s.gen).
				Uint64("current_generation", s.e.generation).
				Msg("discarding signal from previous binding")
			return
		}
		fn()
	})
}

func (s *signals) Time(position float64) { s.post("time", func() { s.e.onTime(position) }) }

func (s *signals) Progress(loaded float64) { s.post("progress", func() { s.e.onProgress(loaded) }) }

func (s *signals) State(st backend.State) { s.post("state", func() { s.e.onBackendState(st) }) }

func (s *signals) Buffer(full bool) { s.post("buffer", func() { s.e.onBuffer(full) }) }

func (s *signals) Error(code media.ErrorCode) { s.post("error", func() { s.e.fail(code, "") }) }

func (s *signals) QualityChange(key string) { s.post("quality", func() { s.e.onQuality(key) }) }

var _ backend.Signals = (*signals)(nil)

func (e *Engine) onBackendState(st backend.State) {
	switch st {
	case backend.StateReady:
		e.onReady()
	case backend.StatePlaying:
		e.fireIf(playback.TriggerPlaying)
	case backend.StatePaused:
		e.fireIf(playback.TriggerPause)
	case backend.StateSeeked:
		e.fireIf(playback.TriggerSeeked)
	case backend.StateEnded:
		e.onEnded()
	case backend.StateStopped:
		if e.state != nil && e.state.Can(playback.TriggerStop) {
			e.unbind()
			e.fireIf(playback.TriggerStop)
		}
	}
}

func (e *Engine) onReady() {
	if e.ready {
		return
	}
	e.ready = true
	e.fireIf(playback.TriggerAwakened)
	e.setDuration(e.binding.Duration())
	e.cmds.Kick()
}

func (e *Engine) onEnded() {
	if d := e.binding.Duration(); d > 0 {
		e.position = d
	}
	e.items.Update(e.items.CurrentIndex(), func(it *media.ResolvedItem) { it.ViewCount++ })
	e.unbind()
	e.fireIf(playback.TriggerComplete)
}

func (e *Engine) onTime(position float64) {
	e.position = position
	if e.state.Seek() == playback.SeekSeeked {
		e.fireIf(playback.TriggerSettle)
	}
	e.setDuration(e.binding.Duration())
	e.bus.Promote(events.KindTime, e.currentID(), events.TimeUpdate{Position: position, Duration: e.duration})
}

// onProgress promotes progress at most at the configured rate. Reaching a
// fully loaded item is always reported.
func (e *Engine) onProgress(loaded float64) {
	loaded = clamp01(loaded)
	finished := loaded >= 1 && e.loaded < 1
	e.loaded = loaded
	if e.progress != nil && !finished && !e.progress.AllowN(e.exec.Now(), 1) {
		return
	}
	e.bus.Promote(events.KindProgress, e.currentID(), events.ProgressUpdate{Loaded: loaded})
}

func (e *Engine) onBuffer(full bool) {
	trigger := playback.TriggerBufferEmpty
	if full {
		trigger = playback.TriggerBufferFull
	}
	if err := e.fire(trigger); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.buffer_transition").Msg("buffer transition failed")
	}
}

func (e *Engine) onQuality(key string) {
	e.quality = key
	e.bus.Promote(events.KindQualityChange, e.currentID(), events.QualityChange{Key: key})
}

func (e *Engine) setDuration(d float64) {
	if d <= 0 || d == e.duration {
		return
	}
	e.duration = d
	e.bus.Promote(events.KindDurationChange, e.currentID(), events.DurationChange{Duration: d})
}

// onStateEvent is the engine's own state handler. It runs after every
// observer and listener saw the transition.
func (e *Engine) onStateEvent(ev events.Event) {
	sc, ok := ev.Payload.(events.StateChange)
	if !ok || playback.Lifecycle(sc.To) != playback.Completed {
		return
	}
	if e.closed || e.state == nil || ev.ItemID != e.state.ItemID() || !e.state.Is(playback.Completed) {
		return
	}
	next, ok := e.items.Resolve(playlist.Next)
	if !ok {
		e.bus.Promote(events.KindDone, ev.ItemID, nil)
		return
	}
	if !e.cfg.AutoAdvance {
		return
	}
	if err := e.activate(next, true); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.advance_failed").Msg("advancing queue failed")
	}
}

func (e *Engine) onErrorEvent(ev events.Event) {
	f, ok := ev.Payload.(events.Failure)
	if !ok {
		return
	}
	e.logger.Warn().
		Str(log.FieldEvent, "engine.playback_error").
		Str(log.FieldItemID, ev.ItemID).
		Int(log.FieldErrorCode, int(f.Code)).
		Str("message", f.Message).
		Msg("playback error")
}
