// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/cmdqueue"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/fsm"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/playback"
	"github.com/ManuGH/playcore/internal/playlist"
)

// dispatch applies a primitive to the bound backend. It runs from the command
// queue, so the gate guarantees a ready binding.
func (e *Engine) dispatch(ctx context.Context, name string, value any) error {
	if e.binding == nil {
		return fmt.Errorf("%s: no backend bound", name)
	}
	if err := e.binding.ApplyCommand(ctx, name, value); err != nil {
		return err
	}
	if name == backend.CmdVolume {
		if v, ok := value.(float64); ok {
			e.applyVolume(v)
		}
	}
	return nil
}

// Play starts or resumes the current item. Without a current item the first
// queued item is activated.
func (e *Engine) Play() error {
	if err := e.check(); err != nil {
		return err
	}
	if e.state == nil {
		i, ok := e.items.Resolve(playlist.Current)
		if !ok {
			i, ok = e.items.Resolve(playlist.First)
		}
		if !ok {
			return ErrNoItem
		}
		return e.activate(i, true)
	}

	switch lc := e.state.Lifecycle(); lc {
	case playback.Idle, playback.Stopped, playback.Completed:
		it, _ := e.items.Current()
		if !it.Playable() {
			code := it.Error
			if code == media.CodeNone {
				code = media.CodeUnsupportedFormat
			}
			e.fail(code, "")
			return fmt.Errorf("%w: %s", ErrNotPlayable, code)
		}
		if lc == playback.Completed {
			e.position = 0
		}
		if err := e.fire(playback.TriggerPlay); err != nil {
			return err
		}
		if err := e.bind(); err != nil {
			e.fail(media.CodeSourceNotSupported, err.Error())
			return err
		}
		e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdPlay})
		return nil
	case playback.Paused:
		e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdPlay})
		return nil
	case playback.Awakening, playback.Starting, playback.Playing:
		return nil
	default:
		return fmt.Errorf("play in %s: %w", lc, fsm.ErrInvalidTransition)
	}
}

// Pause asks the backend to pause. The state changes once it confirms.
func (e *Engine) Pause() error {
	if err := e.check(); err != nil {
		return err
	}
	if e.state == nil {
		return ErrNoItem
	}
	if e.state.Is(playback.Paused) {
		return nil
	}
	if !e.state.Can(playback.TriggerPause) {
		return fmt.Errorf("pause in %s: %w", e.state.Lifecycle(), fsm.ErrInvalidTransition)
	}
	e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdPause})
	return nil
}

// Stop releases the backend. Unless toZero is set the position is kept and
// the next Play resumes from it.
func (e *Engine) Stop(toZero bool) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.state == nil {
		return ErrNoItem
	}
	if toZero {
		e.position = 0
	}
	if e.state.Is(playback.Idle, playback.Stopped) {
		return nil
	}
	if !e.state.Can(playback.TriggerStop) {
		return fmt.Errorf("stop in %s: %w", e.state.Lifecycle(), fsm.ErrInvalidTransition)
	}
	e.unbind()
	return e.fire(playback.TriggerStop)
}

// Seek moves to target seconds, or by target seconds when relative is set.
// Without a bound backend the position is stored and used as the start of
// the next Play.
func (e *Engine) Seek(target float64, relative bool) error {
	if err := e.check(); err != nil {
		return err
	}
	if e.state == nil {
		return ErrNoItem
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return fmt.Errorf("seek: invalid target %v", target)
	}
	if e.state.Is(playback.Error, playback.Destroying) {
		return fmt.Errorf("seek in %s: %w", e.state.Lifecycle(), fsm.ErrInvalidTransition)
	}
	pos := target
	if relative {
		pos += e.position
	}
	pos = max(0, pos)
	if e.duration > 0 {
		pos = min(pos, e.duration)
	}

	if e.binding == nil {
		e.position = pos
		return nil
	}
	if e.state.Can(playback.TriggerSeek) {
		if err := e.fire(playback.TriggerSeek); err != nil {
			return err
		}
	}
	e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdSeek, Value: pos})
	return nil
}

// SetVolume sets the level in [0, 1], or changes it by target when relative
// is set. A positive fade spreads the change over delayed volume commands
// spaced by the configured fade step.
func (e *Engine) SetVolume(target float64, relative bool, fade time.Duration) error {
	if err := e.check(); err != nil {
		return err
	}
	level := target
	if relative {
		level += e.volume
	}
	level = clamp01(level)
	e.savePref(PrefVolume, level)

	if e.binding == nil {
		e.applyVolume(level)
		return nil
	}
	if fade <= 0 {
		e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdVolume, Value: level})
		return nil
	}

	steps := int(math.Ceil(float64(fade) / float64(e.cfg.FadeStep)))
	from := e.volume
	for i := 1; i <= steps; i++ {
		v := from + (level-from)*float64(i)/float64(steps)
		if i == steps {
			v = level
		}
		e.cmds.Enqueue(cmdqueue.Command{
			Name:  backend.CmdVolume,
			Value: v,
			Delay: time.Duration(i) * e.cfg.FadeStep,
		})
	}
	e.logger.Debug().
		Str(log.FieldEvent, "engine.fade").
		Float64("from", from).
		Float64("to", level).
		Int("steps", steps).
		Msg("volume fade scheduled")
	return nil
}

func (e *Engine) applyVolume(v float64) {
	if v == e.volume {
		return
	}
	e.volume = v
	e.bus.Promote(events.KindVolume, e.currentID(), events.VolumeChange{Level: v})
}

// SetQuality switches the current item to the file tagged key and stores
// key as the preferred quality.
func (e *Engine) SetQuality(key string) error {
	if err := e.check(); err != nil {
		return err
	}
	it, ok := e.items.Current()
	if !ok {
		return ErrNoItem
	}
	if !it.HasQuality(key) {
		return fmt.Errorf("%w: %q", ErrUnknownQuality, key)
	}
	e.savePref(PrefQuality, key)
	if e.binding == nil {
		e.onQuality(key)
		return nil
	}
	e.cmds.Enqueue(cmdqueue.Command{Name: backend.CmdQuality, Value: key})
	return nil
}
