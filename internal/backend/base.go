// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package backend

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Base implements the behavior every adapter shares. Concrete adapters embed
// it and override the methods they need, calling back into Base for the rest.
type Base struct {
	mu       sync.Mutex
	signals  Signals
	params   InitParams
	state    State
	position float64
	duration float64
	volume   float64
	quality  string
}

// Init binds and reports readiness straight away.
func (b *Base) Init(_ context.Context, params InitParams, signals Signals) error {
	b.Bind(params, signals)
	b.Report(StateReady)
	return nil
}

// Bind stores the binding parameters without reporting anything. Adapters
// with asynchronous readiness call it from their own Init.
func (b *Base) Bind(params InitParams, signals Signals) {
	if signals == nil {
		signals = NopSignals{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = signals
	b.params = params
	b.state = StateIdle
	b.volume = params.Volume
	b.quality = params.Quality
	b.position = params.Start
}

// ApplyCommand maps primitive commands onto state reports.
func (b *Base) ApplyCommand(_ context.Context, name string, value any) error {
	switch name {
	case CmdPlay:
		b.Report(StatePlaying)
	case CmdPause:
		b.Report(StatePaused)
	case CmdStop:
		b.Report(StateStopped)
	case CmdSeek:
		pos, err := floatValue(name, value)
		if err != nil {
			return err
		}
		b.SetPosition(pos)
		b.Report(StateSeeked)
		b.Sink().Time(b.Position())
	case CmdVolume:
		v, err := floatValue(name, value)
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.volume = math.Max(0, math.Min(1, v))
		b.mu.Unlock()
	case CmdQuality:
		key, ok := value.(string)
		if !ok {
			return fmt.Errorf("backend: %s expects string, got %T", name, value)
		}
		b.mu.Lock()
		b.quality = key
		b.mu.Unlock()
		b.Sink().QualityChange(key)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return nil
}

// Report records s and forwards it to the signals sink. Seeked is a
// notification, not a resting state, so it is not recorded. An unbound or
// destroyed adapter ignores reports.
func (b *Base) Report(s State) {
	b.mu.Lock()
	sink := b.signals
	if sink == nil {
		b.mu.Unlock()
		return
	}
	if s != StateSeeked {
		b.state = s
	}
	b.mu.Unlock()
	sink.State(s)
}

// Sink returns the signals the adapter was initialised with.
func (b *Base) Sink() Signals {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signals == nil {
		return NopSignals{}
	}
	return b.signals
}

// Params returns the parameters passed to Init.
func (b *Base) Params() InitParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == "" {
		return StateIdle
	}
	return b.state
}

func (b *Base) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// SetPosition clamps pos into [0, duration] when the duration is known.
func (b *Base) SetPosition(pos float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if b.duration > 0 && pos > b.duration {
		pos = b.duration
	}
	b.position = pos
}

func (b *Base) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

func (b *Base) SetDuration(d float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duration = d
}

// Volume returns the last applied volume.
func (b *Base) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volume
}

// Quality returns the last applied quality key.
func (b *Base) Quality() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.quality
}

// Destroy drops the signals sink so late reports go nowhere.
func (b *Base) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = nil
	b.state = StateIdle
	return nil
}

func floatValue(name string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("backend: %s expects number, got %T", name, value)
	}
}

var _ Backend = (*Base)(nil)
