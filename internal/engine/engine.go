// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package engine ties the playback subsystems together: the queue of
// resolved items, the active item's state machines, the command queue in
// front of the backend, the event bus and the cuepoint scheduler.
//
// An Engine is confined to one executor. Every method must be called from
// that executor, either directly when the engine is driven by loop.Manual
// or through loop.Loop.Do from other goroutines.
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/capability"
	"github.com/ManuGH/playcore/internal/cmdqueue"
	"github.com/ManuGH/playcore/internal/cuepoint"
	"github.com/ManuGH/playcore/internal/events"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/playback"
	"github.com/ManuGH/playcore/internal/playlist"
	"github.com/ManuGH/playcore/internal/prefs"
	"github.com/ManuGH/playcore/internal/resolver"
)

var (
	// ErrNoItem is returned when a selector or id matches no queued item,
	// or an operation needs an active item and there is none.
	ErrNoItem = errors.New("no such item")
	// ErrNotPlayable is returned by Play for items that failed resolution.
	ErrNotPlayable = errors.New("item not playable")
	// ErrUnknownQuality is returned by SetQuality for keys the item lacks.
	ErrUnknownQuality = errors.New("unknown quality")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
)

// Preference keys.
const (
	PrefVolume  = "volume"
	PrefQuality = "quality"
)

// Config holds engine behavior settings.
type Config struct {
	// Volume applies when no preference was saved.
	Volume float64
	// Quality is the preferred quality key when no preference was saved.
	Quality string
	// FadeStep is the spacing of the volume commands making up a fade.
	FadeStep time.Duration
	// ProgressRate caps progress events per second. 0 disables the cap.
	ProgressRate float64
	// CuepointPrecision is the default cuepoint precision in decimal digits.
	CuepointPrecision int
	// AutoAdvance activates and plays the next item when one completes.
	AutoAdvance bool
}

// DefaultConfig returns the settings used by the daemon when nothing is
// configured.
func DefaultConfig() Config {
	return Config{
		Volume:            1,
		Quality:           "auto",
		FadeStep:          50 * time.Millisecond,
		ProgressRate:      4,
		CuepointPrecision: cuepoint.DefaultPrecision,
		AutoAdvance:       true,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPrefs persists volume and quality in store.
func WithPrefs(store prefs.Store) Option {
	return func(e *Engine) { e.prefs = store }
}

// Engine is the public playback surface.
type Engine struct {
	// ctx bounds backend calls and preference I/O for the engine lifetime.
	ctx    context.Context
	exec   loop.Executor
	reg    *capability.Registry
	res    *resolver.Resolver
	cfg    Config
	prefs  prefs.Store
	logger zerolog.Logger

	bus   *events.Bus
	cmds  *cmdqueue.Queue
	cues  *cuepoint.Scheduler
	items *playlist.Queue

	state      *playback.State
	binding    backend.Backend
	generation uint64
	ready      bool

	volume   float64
	quality  string
	position float64
	duration float64
	loaded   float64
	progress *rate.Limiter
	closed   bool
}

// New builds an engine on exec. It must be called before exec starts
// running or from exec itself. Saved preferences are restored before the
// ready event is promoted.
func New(ctx context.Context, exec loop.Executor, reg *capability.Registry, res *resolver.Resolver, cfg Config, opts ...Option) *Engine {
	if cfg.FadeStep <= 0 {
		cfg.FadeStep = DefaultConfig().FadeStep
	}
	if cfg.Quality == "" {
		cfg.Quality = "auto"
	}
	e := &Engine{
		ctx:     ctx,
		exec:    exec,
		reg:     reg,
		res:     res,
		cfg:     cfg,
		logger:  log.WithComponent("engine"),
		items:   playlist.New(),
		volume:  clamp01(cfg.Volume),
		quality: cfg.Quality,
	}
	for _, o := range opts {
		o(e)
	}
	if cfg.ProgressRate > 0 {
		e.progress = rate.NewLimiter(rate.Limit(cfg.ProgressRate), 1)
	}

	e.cmds = cmdqueue.New(exec, e.dispatch, cmdqueue.WithGate(e.bound))
	e.bus = events.New(e.cmds)
	e.cues = cuepoint.New(exec, e.bus, cuepoint.WithDefaultPrecision(cfg.CuepointPrecision))
	e.bus.HandleSelf(events.KindState, e.onStateEvent)
	e.bus.HandleSelf(events.KindError, e.onErrorEvent)

	e.restorePrefs()
	e.bus.Promote(events.KindReady, "", nil)
	return e
}

// Close tears down the active item and detaches the cuepoint scheduler.
// The preference store is owned by the caller.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.teardown()
	e.cues.Close()
	e.closed = true
	e.logger.Info().Str(log.FieldEvent, "engine.closed").Msg("engine closed")
	return nil
}

func (e *Engine) check() error {
	if e.closed {
		return ErrClosed
	}
	return nil
}

// bound is the command queue gate: primitives wait for a ready backend.
func (e *Engine) bound() bool {
	return e.binding != nil && e.ready
}

func (e *Engine) currentID() string {
	if e.state == nil {
		return ""
	}
	return e.state.ItemID()
}

// emit promotes one event per state change.
func (e *Engine) emit(changes []playback.Change) {
	for _, c := range changes {
		kind := events.KindState
		switch c.Machine {
		case playback.MachineBuffer:
			kind = events.KindBuffer
		case playback.MachineSeek:
			kind = events.KindSeek
		}
		e.bus.Promote(kind, e.state.ItemID(), events.StateChange{From: c.From, To: c.To})
	}
}

func (e *Engine) fire(trigger playback.Trigger) error {
	if e.state == nil {
		return ErrNoItem
	}
	changes, err := e.state.Fire(e.ctx, trigger)
	e.emit(changes)
	return err
}

// fireIf fires trigger when the current state accepts it. Backend reports
// that do not fit the current state are logged and dropped.
func (e *Engine) fireIf(trigger playback.Trigger) {
	if e.state == nil {
		return
	}
	if !e.state.Can(trigger) {
		e.logger.Debug().
			Str(log.FieldEvent, "engine.trigger_ignored").
			Str(log.FieldItemID, e.state.ItemID()).
			Str("trigger", string(trigger)).
			Str(log.FieldOldState, string(e.state.Lifecycle())).
			Msg("trigger does not apply in current state")
		return
	}
	if err := e.fire(trigger); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.trigger_failed").Msg("state transition failed")
	}
}

func (e *Engine) restorePrefs() {
	if e.prefs == nil {
		return
	}
	var v float64
	switch err := e.prefs.Restore(e.ctx, PrefVolume, &v); {
	case err == nil:
		e.volume = clamp01(v)
	case !errors.Is(err, prefs.ErrNotFound):
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.prefs_restore_failed").Str("key", PrefVolume).Msg("restoring preference failed")
	}
	var q string
	switch err := e.prefs.Restore(e.ctx, PrefQuality, &q); {
	case err == nil && q != "":
		e.quality = q
	case err != nil && !errors.Is(err, prefs.ErrNotFound):
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.prefs_restore_failed").Str("key", PrefQuality).Msg("restoring preference failed")
	}
}

func (e *Engine) savePref(key string, value any) {
	if e.prefs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Second)
	defer cancel()
	if err := e.prefs.Save(ctx, key, value); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldEvent, "engine.prefs_save_failed").Str("key", key).Msg("saving preference failed")
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}
