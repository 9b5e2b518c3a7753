// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package engine

import (
	"fmt"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/media"
	"github.com/ManuGH/playcore/internal/playback"
)

// activate makes the item at index current with a fresh state in IDLE.
// The previous item is torn down first.
func (e *Engine) activate(index int, autoplay bool) error {
	it, ok := e.items.Get(index)
	if !ok {
		return fmt.Errorf("%w: index %d", ErrNoItem, index)
	}
	e.teardown()

	it = e.res.Reresolve(e.ctx, it)
	e.items.Update(index, func(p *media.ResolvedItem) { *p = it })
	e.items.SetCurrent(index)
	e.state = playback.New(it.ID)
	e.position, e.duration, e.loaded = 0, 0, 0

	e.logger.Info().
		Str(log.FieldEvent, "engine.item_activated").
		Str(log.FieldItemID, it.ID).
		Int("index", index).
		Str(log.FieldModel, it.Model).
		Str(log.FieldPlatform, it.Platform).
		Msg("item activated")
	e.bus.Promote(events.KindItem, it.ID, events.ItemChange{Index: index, Item: it})

	if autoplay {
		return e.Play()
	}
	return nil
}

// teardown releases the backend and moves the current state to DESTROYING.
func (e *Engine) teardown() {
	if e.state == nil {
		return
	}
	e.unbind()
	if e.state.Can(playback.TriggerDestroy) {
		if err := e.fire(playback.TriggerDestroy); err != nil {
			e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.destroy_failed").Msg("destroying state failed")
		}
	}
	e.state = nil
}

// bind creates a backend for the current item and starts its
// initialization. Readiness arrives later as a signal.
func (e *Engine) bind() error {
	it, ok := e.items.Current()
	if !ok {
		return ErrNoItem
	}
	model, ok := e.reg.Model(it.Model)
	if !ok || model.Factory == nil {
		return fmt.Errorf("model %q has no backend factory", it.Model)
	}
	b := model.Factory()

	e.generation++
	gen := e.generation
	file, quality := e.fileFor(it)
	params := backend.InitParams{
		Item:     it,
		File:     file,
		Platform: it.Platform,
		Volume:   e.volume,
		Quality:  quality,
		Start:    e.position,
	}
	e.binding = b
	e.ready = false
	if err := b.Init(e.ctx, params, &signals{e: e, gen: gen}); err != nil {
		e.binding = nil
		return fmt.Errorf("init %s backend: %w", it.Model, err)
	}
	e.logger.Debug().
		Str(log.FieldEvent, "engine.bound").
		Str(log.FieldItemID, it.ID).
		Uint64(log.FieldGeneration, gen).
		Str(log.FieldURI, file.URI).
		Str(log.FieldQuality, quality).
		Msg("backend binding started")
	return nil
}

// unbind destroys the backend, drops its queued primitives and advances the
// generation so late signals are discarded.
func (e *Engine) unbind() {
	e.cmds.Flush()
	if e.binding != nil {
		if err := e.binding.Destroy(); err != nil {
			e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.destroy_backend_failed").Msg("backend destroy failed")
		}
	}
	e.binding = nil
	e.ready = false
	e.generation++
}

// fileFor picks the file matching the preferred quality, else the head.
func (e *Engine) fileFor(it media.ResolvedItem) (media.File, string) {
	if it.HasQuality(e.quality) {
		if f, ok := it.FileForQuality(e.quality); ok {
			return f, e.quality
		}
	}
	if len(it.Files) == 0 {
		return media.File{}, media.QualityAuto
	}
	return it.Files[0], media.QualityAuto
}

// fail releases the backend, moves to ERROR and promotes the error event.
func (e *Engine) fail(code media.ErrorCode, message string) {
	if message == "" {
		message = code.String()
	}
	id := e.currentID()
	e.unbind()
	if e.state != nil && e.state.Can(playback.TriggerFail) {
		if err := e.fire(playback.TriggerFail); err != nil {
			e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.fail_transition").Msg("error transition failed")
		}
	}
	e.bus.Promote(events.KindError, id, events.Failure{Code: code, Message: message})
}
