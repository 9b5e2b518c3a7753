// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sim provides a backend that plays nothing. It advances a virtual
// playhead on executor timers and reports the same signals a real decoder
// would, which makes it the backend of the demo daemon and of end-to-end
// tests.
package sim

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/playcore/internal/backend"
	"github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/loop"
	"github.com/ManuGH/playcore/internal/media"
)

// ModelName is the capability model name the daemon registers sim under.
const ModelName = "sim"

// Config tunes the simulation.
type Config struct {
	// Duration of every simulated item in seconds.
	Duration float64 `yaml:"duration"`
	// InitDelay is the time between Init and the ready report.
	InitDelay time.Duration `yaml:"init_delay"`
	// Tick is the playhead update interval.
	Tick time.Duration `yaml:"tick"`
	// LoadStep is the fraction of the item buffered per tick.
	LoadStep float64 `yaml:"load_step"`
	// FailAt, when positive, reports FailCode once the playhead reaches it.
	FailAt   float64         `yaml:"fail_at"`
	FailCode media.ErrorCode `yaml:"fail_code"`
}

// DefaultConfig returns a one minute item that becomes ready after 200ms.
func DefaultConfig() Config {
	return Config{
		Duration:  60,
		InitDelay: 200 * time.Millisecond,
		Tick:      250 * time.Millisecond,
		LoadStep:  0.05,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Duration <= 0 {
		c.Duration = d.Duration
	}
	if c.InitDelay < 0 {
		c.InitDelay = 0
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.LoadStep <= 0 {
		c.LoadStep = d.LoadStep
	}
	if c.FailAt > 0 && c.FailCode == media.CodeNone {
		c.FailCode = media.CodeDecode
	}
	return c
}

// Backend is a simulated adapter. All methods and timer callbacks run on
// the executor it was created with.
type Backend struct {
	backend.Base

	exec   loop.Executor
	cfg    Config
	logger zerolog.Logger

	ready   bool
	playing bool
	failed  bool
	loaded  float64
	init    loop.Timer
	ticker  loop.Timer
}

// New returns a simulated backend driven by exec.
func New(exec loop.Executor, cfg Config) *Backend {
	return &Backend{
		exec:   exec,
		cfg:    cfg.withDefaults(),
		logger: log.WithComponent("sim"),
	}
}

// Factory returns a constructor suitable for capability.Model.Factory.
func Factory(exec loop.Executor, cfg Config) func() backend.Backend {
	return func() backend.Backend { return New(exec, cfg) }
}

// Init binds the item and reports ready, a full buffer and the first load
// progress after the configured delay.
func (b *Backend) Init(_ context.Context, params backend.InitParams, signals backend.Signals) error {
	b.stopTimers()
	b.Bind(params, signals)
	b.SetDuration(b.cfg.Duration)
	b.ready, b.playing, b.failed = false, false, false
	b.loaded = 0

	b.init = b.exec.AfterFunc(b.cfg.InitDelay, func() {
		b.init = nil
		b.ready = true
		b.advanceLoad()
		b.Report(backend.StateReady)
		b.Sink().Buffer(true)
	})
	b.logger.Debug().
		Str(log.FieldEvent, "sim.init").
		Str(log.FieldItemID, params.Item.ID).
		Str(log.FieldURI, params.File.URI).
		Float64("duration", b.cfg.Duration).
		Msg("simulated backend bound")
	return nil
}

// ApplyCommand starts and stops the playhead around the shared behavior.
func (b *Backend) ApplyCommand(ctx context.Context, name string, value any) error {
	switch name {
	case backend.CmdPlay:
		if b.playing {
			return nil
		}
		if err := b.Base.ApplyCommand(ctx, name, value); err != nil {
			return err
		}
		b.playing = true
		b.schedule()
		return nil
	case backend.CmdPause, backend.CmdStop:
		b.playing = false
		b.stopTicker()
	}
	return b.Base.ApplyCommand(ctx, name, value)
}

// Destroy stops every timer and detaches the signals.
func (b *Backend) Destroy() error {
	b.stopTimers()
	b.playing = false
	return b.Base.Destroy()
}

// Ready reports whether the ready signal went out for the current binding.
func (b *Backend) Ready() bool { return b.ready }

// Loaded returns the buffered fraction.
func (b *Backend) Loaded() float64 { return b.loaded }

func (b *Backend) schedule() {
	b.stopTicker()
	b.ticker = b.exec.AfterFunc(b.cfg.Tick, b.tick)
}

func (b *Backend) tick() {
	b.ticker = nil
	if !b.playing {
		return
	}
	sink := b.Sink()
	pos := b.Position() + b.cfg.Tick.Seconds()
	b.SetPosition(pos)
	pos = b.Position()
	b.advanceLoad()
	sink.Time(pos)

	if b.cfg.FailAt > 0 && !b.failed && pos >= b.cfg.FailAt {
		b.failed = true
		b.playing = false
		sink.Error(b.cfg.FailCode)
		return
	}
	if pos >= b.Duration() {
		b.playing = false
		b.Report(backend.StateEnded)
		return
	}
	b.schedule()
}

func (b *Backend) advanceLoad() {
	if b.loaded >= 1 {
		return
	}
	b.loaded = math.Min(1, b.loaded+b.cfg.LoadStep)
	b.Sink().Progress(b.loaded)
}

func (b *Backend) stopTicker() {
	if b.ticker != nil {
		b.ticker.Stop()
		b.ticker = nil
	}
}

func (b *Backend) stopTimers() {
	b.stopTicker()
	if b.init != nil {
		b.init.Stop()
		b.init = nil
	}
}

var _ backend.Backend = (*Backend)(nil)
